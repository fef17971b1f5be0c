package rofs

import (
	"serenity/src/fdops"
)

// DirectoryDriver reads the directory one name per call.  The file offset is
// the index of the next entry.
type DirectoryDriver struct {
	FS *FS
}

func (d *DirectoryDriver) Kind() fdops.Kind {
	return fdops.KindDirectory
}

func (d *DirectoryDriver) Open(f *fdops.File, name string) error {
	ent, err := d.FS.LookupByName(name)
	if err != nil {
		return err
	}
	f.Inode = ent.Inode
	return nil
}

func (d *DirectoryDriver) Close(f *fdops.File) error {
	f.Inode = 0
	return nil
}

// Read copies the name of entry f.Offset, at most 32 bytes and not NUL
// terminated.  It returns 0 once every entry has been read.
func (d *DirectoryDriver) Read(f *fdops.File, buf []byte) (int, error) {
	if f.Offset >= MaxEntries {
		return 0, fdops.ErrInvalid
	}
	ent, err := d.FS.LookupByIndex(f.Offset)
	if err != nil {
		return 0, nil
	}
	n := len(ent.Name)
	if n > len(buf) {
		n = len(buf)
	}
	return copy(buf, ent.Name[:n]), nil
}

func (d *DirectoryDriver) Advance(f *fdops.File, n int) {
	if n > 0 {
		f.Offset++
	}
}

// FileDriver reads regular files.  The image is read only, so there is no
// write.
type FileDriver struct {
	FS *FS
}

func (d *FileDriver) Kind() fdops.Kind {
	return fdops.KindFile
}

func (d *FileDriver) Open(f *fdops.File, name string) error {
	ent, err := d.FS.LookupByName(name)
	if err != nil {
		return err
	}
	f.Inode = ent.Inode
	return nil
}

func (d *FileDriver) Close(f *fdops.File) error {
	f.Inode = 0
	return nil
}

func (d *FileDriver) Read(f *fdops.File, buf []byte) (int, error) {
	return d.FS.ReadData(f.Inode, f.Offset, buf)
}
