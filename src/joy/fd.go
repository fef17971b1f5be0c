package joy

import (
	"errors"

	"serenity/src/drivers/rofs"
	"serenity/src/fdops"
)

// Descriptors 0 and 1 are the console; the rest are for open.
const (
	StdinFD    = 0
	StdoutFD   = 1
	firstOpen  = 2
	StdinName  = "stdin"
	StdoutName = "stdout"
)

// FileSystem is what the kernel needs from the boot file system.
type FileSystem interface {
	LookupByName(name string) (rofs.Dentry, error)
	LookupByIndex(i uint32) (rofs.Dentry, error)
	ReadData(inode uint32, offset uint32, buf []byte) (int, error)
}

// Drivers are the operation tables descriptors can point at.
type Drivers struct {
	Stdin     fdops.Driver
	Stdout    fdops.Driver
	RTC       fdops.Driver
	Directory fdops.Driver
	File      fdops.Driver
}

func (d *Drivers) forType(t uint32) (fdops.Driver, bool) {
	switch t {
	case rofs.TypeRTC:
		return d.RTC, d.RTC != nil
	case rofs.TypeDirectory:
		return d.Directory, d.Directory != nil
	case rofs.TypeFile:
		return d.File, d.File != nil
	}
	return nil, false
}

func (k *Kernel) driverError(err error, p *Process) error {
	switch {
	case errors.Is(err, fdops.ErrUnsupported):
		return MakeError(ErrorFileUnsupported, p.Slot)
	case errors.Is(err, fdops.ErrNotFound):
		return MakeError(ErrorFileNoSuchFile, p.Slot)
	case errors.Is(err, fdops.ErrInvalid):
		return MakeError(ErrorFileInvalidArgument, p.Slot)
	}
	k.log.Debugf("slot %d: driver error: %v", p.Slot, err)
	return MakeError(ErrorFileDriverFailed, p.Slot)
}

// installConsole gives a new process its stdin and stdout.
func (k *Kernel) installConsole(p *Process) {
	for i := range p.Files {
		p.Files[i] = Descriptor{}
	}
	p.Files[StdinFD] = Descriptor{Driver: k.drivers.Stdin, File: fdops.File{Terminal: p.Terminal}, InUse: true}
	p.Files[StdoutFD] = Descriptor{Driver: k.drivers.Stdout, File: fdops.File{Terminal: p.Terminal}, InUse: true}
}

// openFile puts name in the lowest free descriptor from 2 up.  "stdin" and
// "stdout" open the console again; anything else comes from the file
// system and gets the driver for its entry type.
func (k *Kernel) openFile(p *Process, name string) (int, error) {
	if len(name) == 0 {
		return -1, MakeError(ErrorFileInvalidArgument, p.Slot)
	}
	fd := -1
	for i := firstOpen; i < NumDescriptors; i++ {
		if !p.Files[i].InUse {
			fd = i
			break
		}
	}
	if fd < 0 {
		return -1, MakeError(ErrorFileTableFull, p.Slot)
	}

	var drv fdops.Driver
	switch name {
	case StdinName:
		drv = k.drivers.Stdin
	case StdoutName:
		drv = k.drivers.Stdout
	default:
		d, err := k.fs.LookupByName(name)
		if err != nil {
			return -1, MakeError(ErrorFileNoSuchFile, p.Slot)
		}
		var ok bool
		if drv, ok = k.drivers.forType(d.Type); !ok {
			k.log.Warnf("slot %d: %s has unknown type %d", p.Slot, name, d.Type)
			return -1, MakeError(ErrorFileUnsupported, p.Slot)
		}
	}

	desc := Descriptor{Driver: drv, File: fdops.File{Terminal: p.Terminal}}
	if op, ok := drv.(fdops.Opener); ok {
		if err := op.Open(&desc.File, name); err != nil {
			return -1, k.driverError(err, p)
		}
	}
	desc.InUse = true
	p.Files[fd] = desc
	k.log.Debugf("slot %d: opened %s (%v) as fd %d", p.Slot, name, drv.Kind(), fd)
	return fd, nil
}

func (k *Kernel) closeFile(p *Process, fd int) error {
	if fd < firstOpen || fd >= NumDescriptors {
		return MakeError(ErrorFileInvalidArgument, p.Slot)
	}
	desc := &p.Files[fd]
	if !desc.InUse {
		return MakeError(ErrorFileAlreadyClosed, p.Slot)
	}
	cl, ok := desc.Driver.(fdops.Closer)
	if !ok {
		return MakeError(ErrorFileUnsupported, p.Slot)
	}
	if err := cl.Close(&desc.File); err != nil {
		return k.driverError(err, p)
	}
	*desc = Descriptor{}
	return nil
}

// closeAll releases descriptors 2-7 whatever their drivers say, for a
// process that is going away.
func (k *Kernel) closeAll(p *Process) {
	for fd := firstOpen; fd < NumDescriptors; fd++ {
		if !p.Files[fd].InUse {
			continue
		}
		if err := k.closeFile(p, fd); err != nil {
			k.log.Debugf("slot %d: fd %d released without close: %v", p.Slot, fd, err)
		}
		p.Files[fd] = Descriptor{}
	}
}

func (k *Kernel) descriptor(p *Process, fd int, forbidden int) (*Descriptor, error) {
	if fd < 0 || fd >= NumDescriptors || fd == forbidden {
		return nil, MakeError(ErrorFileInvalidArgument, p.Slot)
	}
	desc := &p.Files[fd]
	if !desc.InUse {
		return nil, MakeError(ErrorFileNotOpen, p.Slot)
	}
	return desc, nil
}

func (k *Kernel) readFile(p *Process, fd int, buf []byte) (int, error) {
	desc, err := k.descriptor(p, fd, StdoutFD)
	if err != nil {
		return -1, err
	}
	rd, ok := desc.Driver.(fdops.Reader)
	if !ok {
		return -1, MakeError(ErrorFileUnsupported, p.Slot)
	}
	n, err := rd.Read(&desc.File, buf)
	if err != nil {
		return -1, k.driverError(err, p)
	}
	if cur, ok := desc.Driver.(fdops.Cursor); ok {
		cur.Advance(&desc.File, n)
	} else if n > 0 {
		desc.File.Offset += uint32(n)
	}
	return n, nil
}

func (k *Kernel) writeFile(p *Process, fd int, buf []byte) (int, error) {
	desc, err := k.descriptor(p, fd, StdinFD)
	if err != nil {
		return -1, err
	}
	wr, ok := desc.Driver.(fdops.Writer)
	if !ok {
		return -1, MakeError(ErrorFileUnsupported, p.Slot)
	}
	n, err := wr.Write(&desc.File, buf)
	if err != nil {
		return -1, k.driverError(err, p)
	}
	return n, nil
}
