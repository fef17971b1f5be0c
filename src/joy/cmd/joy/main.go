package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"serenity/src/drivers/rofs"
	"serenity/src/hardware/vga"
	"serenity/src/joy"
	"serenity/src/lib/trust"
	"serenity/src/lib/upbeat"
	"serenity/src/userland"

	tty "github.com/mattn/go-tty"
)

var helpFlag = flag.Bool("h", false, "get usage info")
var bootFlag = flag.String("boot", "", "json file of boot parameters")
var timerFlag = flag.Int("timer", 0, "scheduler tick rate in Hz")
var rtcFlag = flag.Int("rtc", 0, "real time clock base rate in Hz")
var imageFlag = flag.String("image", "", "file system image to boot (default: the built in programs)")
var writeImageFlag = flag.String("write-image", "", "write the built in file system image here and exit")
var shellFlag = flag.String("shell", "", "program each terminal starts")
var logFlag = flag.String("log", "", "log levels, comma separated: error,warn,info,debug,stats")
var logFileFlag = flag.String("logfile", "", "write the log here instead of stderr")
var snapshotFlag = flag.String("snapshot", "", "write the screen as a PNG here on exit")
var ttyFlag = flag.String("tty", "", "terminal device for the keyboard and screen (default: the controlling tty)")
var headlessFlag = flag.Duration("headless", 0, "run without a terminal for this long, then stop")
var typeFlag = flag.String("type", "", "keys to type at boot (headless); \\n is enter")

const ctrlC = 0x03

func usage() {
	fmt.Fprintf(os.Stderr, "usage: joy [flags]\n")
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	flag.Parse()
	if *helpFlag || flag.NArg() != 0 {
		usage()
	}
	if *writeImageFlag != "" {
		writeImage(*writeImageFlag)
		return
	}
	params := bootParams()
	setupLogging(params)

	fs, programs, err := fileSystem(params.FSImage)
	if err != nil {
		trust.Fatalf(1, "%v", err)
	}
	k, err := joy.New(joy.Config{
		FS:        fs,
		Programs:  programs,
		Shell:     params.Shell,
		TimerHz:   params.TimerHz,
		RTCBaseHz: params.RTCBaseHz,
		RTCClock:  true,
		Logger:    trust.Default(),
	})
	if err != nil {
		trust.Fatalf(1, "%v", err)
	}
	go k.Run()

	if *headlessFlag > 0 {
		runHeadless(k, *headlessFlag)
	} else {
		runTTY(k, params.TTYDevice)
	}
	<-k.Done()
	if params.SnapshotPath != "" {
		snapshot(k, params.SnapshotPath)
	}
}

// bootParams is the defaults, then the json file, then any flags given.
func bootParams() upbeat.BootParamsDef {
	params := upbeat.DefaultBootParams()
	if *bootFlag != "" {
		var err error
		if params, err = upbeat.DecodeBootParams(*bootFlag); err != nil {
			trust.Fatalf(1, "%v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "timer":
			params.TimerHz = *timerFlag
		case "rtc":
			params.RTCBaseHz = *rtcFlag
		case "image":
			params.FSImage = *imageFlag
		case "shell":
			params.Shell = *shellFlag
		case "log":
			params.LogLevel = strings.Split(*logFlag, ",")
		case "logfile":
			params.LogFile = *logFileFlag
		case "snapshot":
			params.SnapshotPath = *snapshotFlag
		case "tty":
			params.TTYDevice = *ttyFlag
		}
	})
	if err := params.Validate(); err != nil {
		trust.Fatalf(1, "%v", err)
	}
	return params
}

func setupLogging(params upbeat.BootParamsDef) {
	if params.LogFile != "" {
		fp, err := os.Create(params.LogFile)
		if err != nil {
			trust.Fatalf(1, "unable to create log file: %v", err)
		}
		trust.SetOutput(fp)
	}
	trust.SetLevel(trust.ParseLevel(params.LogLevel))
}

// fileSystem loads the image at path, or builds the standard one.  Programs
// are always the built in ones; an image written by -write-image has the
// same entry points.
func fileSystem(path string) (*rofs.FS, map[uint32]joy.Program, error) {
	fs, programs, err := userland.Boot()
	if err != nil || path == "" {
		return fs, programs, err
	}
	img, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	fs, err = rofs.New(img)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %v", path, err)
	}
	return fs, programs, nil
}

func writeImage(path string) {
	b := rofs.NewBuilder()
	if _, err := userland.Install(b, userland.Programs()); err != nil {
		trust.Fatalf(1, "%v", err)
	}
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		trust.Fatalf(1, "%v", err)
	}
}

// runTTY puts the terminal in raw mode, sends what is typed to the keyboard
// and redraws the screen until ^C.
func runTTY(k *joy.Kernel, device string) {
	var t *tty.TTY
	var err error
	if device == "" {
		t, err = tty.Open()
	} else {
		t, err = tty.OpenDevice(device)
	}
	if err != nil {
		trust.Fatalf(1, "unable to open terminal: %v", err)
	}
	restore := t.MustRaw()
	defer func() {
		restore()
		t.Close()
	}()

	go func() {
		in := bufio.NewReader(t.Input())
		for {
			b, err := in.ReadByte()
			if err != nil || b == ctrlC {
				k.Stop()
				return
			}
			k.Keyboard().Push(b)
		}
	}()

	out := t.Output()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	last := ""
	for {
		select {
		case <-k.Done():
			io.WriteString(out, "\x1b[2J\x1b[H")
			return
		case <-ticker.C:
			var screen string
			var cursor vga.Cursor
			if !k.Do(func() {
				screen = vga.Screen(k.Console().Video())
				cursor = k.Cursor()
			}) {
				continue
			}
			frame := fmt.Sprintf("\x1b[H\x1b[2J%s\x1b[%d;%dH", strings.ReplaceAll(screen, "\n", "\r\n"), cursor.Y+1, cursor.X+1)
			if frame != last {
				io.WriteString(out, frame)
				last = frame
			}
		}
	}
}

func runHeadless(k *joy.Kernel, d time.Duration) {
	if *typeFlag != "" {
		keys := strings.ReplaceAll(*typeFlag, `\n`, "\n")
		// give terminal 0's shell a moment to come up
		time.AfterFunc(d/4, func() { k.Keyboard().Push([]byte(keys)...) })
	}
	time.Sleep(d)
	k.Stop()
	<-k.Done()
	for t := 0; t < 3; t++ {
		fmt.Printf("--- terminal %d ---\n%s\n", t+1, k.Console().Screen(t))
	}
}

func snapshot(k *joy.Kernel, path string) {
	fp, err := os.Create(path)
	if err != nil {
		trust.Errorf("snapshot: %v", err)
		return
	}
	defer fp.Close()
	if err := vga.WritePNG(fp, k.Console().Video(), k.Cursor()); err != nil {
		trust.Errorf("snapshot: %v", err)
	}
}
