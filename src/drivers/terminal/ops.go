package terminal

import (
	"serenity/src/fdops"
)

// Waiter parks the caller until the next interrupt has been serviced.
type Waiter interface {
	Hlt()
}

// StdinDriver reads lines from the file's terminal.  It has no write and no
// close.
type StdinDriver struct {
	Console *Console
	Wait    Waiter
}

func (d *StdinDriver) Kind() fdops.Kind {
	return fdops.KindStdin
}

func (d *StdinDriver) Open(f *fdops.File, _ string) error {
	return nil
}

// Read blocks until the terminal has a complete line.
func (d *StdinDriver) Read(f *fdops.File, buf []byte) (int, error) {
	for {
		if n, ok := d.Console.ReadLine(f.Terminal, buf); ok {
			return n, nil
		}
		d.Wait.Hlt()
	}
}

// StdoutDriver writes to the file's terminal.  It has no read and no close.
type StdoutDriver struct {
	Console *Console
}

func (d *StdoutDriver) Kind() fdops.Kind {
	return fdops.KindStdout
}

func (d *StdoutDriver) Open(f *fdops.File, _ string) error {
	return nil
}

func (d *StdoutDriver) Write(f *fdops.File, buf []byte) (int, error) {
	return d.Console.Write(f.Terminal, buf), nil
}
