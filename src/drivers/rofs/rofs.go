// Package rofs reads the flat read-only file system image the kernel boots
// with.  The image is a boot block holding the directory, one block per
// inode, then the data blocks, all 4KiB.
package rofs

import (
	"encoding/binary"
	"fmt"
	"strings"

	"serenity/src/fdops"
)

const (
	BlockSize      = 4096
	NameLength     = 32
	MaxEntries     = 63
	dentrySize     = 64
	statsSize      = 64
	maxInodeBlocks = BlockSize/4 - 1
)

// Entry types.
const (
	TypeRTC       = 0
	TypeDirectory = 1
	TypeFile      = 2
)

type Dentry struct {
	Name  string
	Type  uint32
	Inode uint32
}

type FS struct {
	img        []byte
	numEntries uint32
	numInodes  uint32
	numData    uint32
}

// New checks that img is big enough for the block counts in its boot block.
func New(img []byte) (*FS, error) {
	if len(img) < BlockSize {
		return nil, fmt.Errorf("rofs: image too small (%d bytes)", len(img))
	}
	fs := &FS{
		img:        img,
		numEntries: binary.LittleEndian.Uint32(img[0:]),
		numInodes:  binary.LittleEndian.Uint32(img[4:]),
		numData:    binary.LittleEndian.Uint32(img[8:]),
	}
	if fs.numEntries > MaxEntries {
		return nil, fmt.Errorf("rofs: %d directory entries", fs.numEntries)
	}
	need := (1 + uint64(fs.numInodes) + uint64(fs.numData)) * BlockSize
	if uint64(len(img)) < need {
		return nil, fmt.Errorf("rofs: image is %d bytes, blocks need %d", len(img), need)
	}
	return fs, nil
}

func (fs *FS) Entries() uint32 {
	return fs.numEntries
}

func (fs *FS) dentry(i uint32) Dentry {
	raw := fs.img[statsSize+i*dentrySize:]
	name := raw[:NameLength]
	if n := strings.IndexByte(string(name), 0); n >= 0 {
		name = name[:n]
	}
	return Dentry{
		Name:  string(name),
		Type:  binary.LittleEndian.Uint32(raw[NameLength:]),
		Inode: binary.LittleEndian.Uint32(raw[NameLength+4:]),
	}
}

// LookupByName finds an entry by its exact name.  Names longer than 32 bytes
// can never match.
func (fs *FS) LookupByName(name string) (Dentry, error) {
	if len(name) == 0 || len(name) > NameLength {
		return Dentry{}, fdops.ErrNotFound
	}
	for i := uint32(0); i < fs.numEntries; i++ {
		d := fs.dentry(i)
		if d.Name == name {
			return d, nil
		}
	}
	return Dentry{}, fdops.ErrNotFound
}

func (fs *FS) LookupByIndex(i uint32) (Dentry, error) {
	if i >= fs.numEntries {
		return Dentry{}, fdops.ErrNotFound
	}
	return fs.dentry(i), nil
}

func (fs *FS) inode(n uint32) []byte {
	start := (1 + n) * BlockSize
	return fs.img[start : start+BlockSize]
}

// Length is the size in bytes of the file at inode.
func (fs *FS) Length(inode uint32) (uint32, error) {
	if inode >= fs.numInodes {
		return 0, fdops.ErrInvalid
	}
	return binary.LittleEndian.Uint32(fs.inode(inode)), nil
}

// ReadData copies file bytes starting at offset into buf.  It returns 0 at or
// past the end of the file and never reads beyond it.
func (fs *FS) ReadData(inode uint32, offset uint32, buf []byte) (int, error) {
	length, err := fs.Length(inode)
	if err != nil {
		return 0, err
	}
	if offset >= length {
		return 0, nil
	}
	want := length - offset
	if uint32(len(buf)) < want {
		want = uint32(len(buf))
	}
	node := fs.inode(inode)
	copied := uint32(0)
	for copied < want {
		pos := offset + copied
		idx := pos / BlockSize
		if idx >= maxInodeBlocks {
			return int(copied), fdops.ErrInvalid
		}
		block := binary.LittleEndian.Uint32(node[4+4*idx:])
		if block >= fs.numData {
			return int(copied), fmt.Errorf("rofs: inode %d names data block %d of %d", inode, block, fs.numData)
		}
		start := (1+fs.numInodes+block)*BlockSize + pos%BlockSize
		n := BlockSize - pos%BlockSize
		if n > want-copied {
			n = want - copied
		}
		copy(buf[copied:copied+n], fs.img[start:start+n])
		copied += n
	}
	return int(copied), nil
}
