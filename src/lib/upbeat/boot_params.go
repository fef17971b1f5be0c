package upbeat

import (
	"encoding/json"
	"fmt"
	"os"
)

// BootParamsDef is what the kernel is told at startup.  It can be read from
// a json file and then patched by command line flags.
type BootParamsDef struct {
	TimerHz      int      `json:"timer_hz"`
	RTCBaseHz    int      `json:"rtc_base_hz"`
	FSImage      string   `json:"fs_image"`
	Shell        string   `json:"shell"`
	LogLevel     []string `json:"log_level"`
	LogFile      string   `json:"log_file"`
	SnapshotPath string   `json:"snapshot_path"`
	TTYDevice    string   `json:"tty_device"`
}

// DefaultBootParams matches the hardware the kernel was written for: the PIT
// at 100Hz for scheduling and the RTC at its 1024Hz maximum.
func DefaultBootParams() BootParamsDef {
	return BootParamsDef{
		TimerHz:   100,
		RTCBaseHz: 1024,
		Shell:     "shell",
		LogLevel:  []string{"error", "warn"},
	}
}

// DecodeBootParams reads the json file at path on top of the defaults.  Fields
// missing from the file keep their default value.
func DecodeBootParams(path string) (BootParamsDef, error) {
	result := DefaultBootParams()
	fp, err := os.Open(path)
	if err != nil {
		return result, err
	}
	defer fp.Close()
	dec := json.NewDecoder(fp)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("boot params %s: %v", path, err)
	}
	return result, result.Validate()
}

func (b BootParamsDef) Validate() error {
	if b.TimerHz <= 0 || b.TimerHz > 1000 {
		return fmt.Errorf("timer_hz out of range (1-1000): %d", b.TimerHz)
	}
	if b.RTCBaseHz < 2 || b.RTCBaseHz&(b.RTCBaseHz-1) != 0 {
		return fmt.Errorf("rtc_base_hz must be a power of two >= 2: %d", b.RTCBaseHz)
	}
	if b.Shell == "" {
		return fmt.Errorf("shell must be named")
	}
	return nil
}
