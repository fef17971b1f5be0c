// Package fdops is the interface between file descriptors and the drivers
// behind them.  A driver names its kind and implements whichever of the
// operation interfaces it supports; the descriptor layer reports the rest as
// ErrUnsupported.
package fdops

import "errors"

type Kind int

const (
	KindStdin Kind = iota
	KindStdout
	KindRTC
	KindDirectory
	KindFile
)

var kindName = [...]string{"stdin", "stdout", "rtc", "directory", "file"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindName) {
		return "unknown"
	}
	return kindName[k]
}

var (
	ErrUnsupported = errors.New("operation not supported")
	ErrInvalid     = errors.New("invalid argument")
	ErrNotFound    = errors.New("no such file")
)

// File is the per-descriptor state a driver works on.
type File struct {
	Inode    uint32
	Offset   uint32
	Terminal int
	Private  interface{}
}

type Driver interface {
	Kind() Kind
}

type Opener interface {
	Open(f *File, name string) error
}

type Closer interface {
	Close(f *File) error
}

type Reader interface {
	Read(f *File, buf []byte) (int, error)
}

type Writer interface {
	Write(f *File, buf []byte) (int, error)
}

// Cursor is implemented by drivers that move the file offset themselves
// after a successful read instead of advancing it by the byte count.
type Cursor interface {
	Advance(f *File, n int)
}
