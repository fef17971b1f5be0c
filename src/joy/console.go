package joy

import (
	"fmt"

	"serenity/src/hardware/i8259"
)

// Logf prints on terminal t's screen, the way the kernel talks to users.
func (k *Kernel) Logf(t int, format string, values ...interface{}) {
	if format == "" {
		return
	}
	k.console.Write(t, []byte(fmt.Sprintf(format, values...)))
}

// keyboardInterrupt feeds the scancodes that came in to the foreground
// terminal and switches terminals on Alt+F1..F3.
func (k *Kernel) keyboardInterrupt() {
	for _, b := range k.keyboard.Drain() {
		if t := k.console.Key(b); t >= 0 {
			k.SwitchDisplay(t)
		}
	}
	k.pic.Acknowledge(i8259.KeyboardIRQ)
}

func (k *Kernel) rtcInterrupt() {
	k.rtc.Tick()
	k.pic.Acknowledge(i8259.RTCIRQ)
}
