package rofs

import (
	"encoding/binary"
	"fmt"
)

type builderEntry struct {
	name string
	typ  uint32
	data []byte
}

// Builder lays out an image from a list of entries.  The first entry is
// always the "." directory.
type Builder struct {
	entries []builderEntry
}

func NewBuilder() *Builder {
	return &Builder{entries: []builderEntry{{name: ".", typ: TypeDirectory}}}
}

func (b *Builder) add(name string, typ uint32, data []byte) error {
	if len(name) == 0 || len(name) > NameLength {
		return fmt.Errorf("rofs: bad name %q", name)
	}
	if len(b.entries) == MaxEntries {
		return fmt.Errorf("rofs: directory full adding %q", name)
	}
	for _, e := range b.entries {
		if e.name == name {
			return fmt.Errorf("rofs: duplicate name %q", name)
		}
	}
	if len(data) > maxInodeBlocks*BlockSize {
		return fmt.Errorf("rofs: %q is too large (%d bytes)", name, len(data))
	}
	b.entries = append(b.entries, builderEntry{name: name, typ: typ, data: data})
	return nil
}

func (b *Builder) AddFile(name string, data []byte) error {
	return b.add(name, TypeFile, data)
}

// AddRTC adds the real time clock device node.
func (b *Builder) AddRTC(name string) error {
	return b.add(name, TypeRTC, nil)
}

// Bytes produces the image.  Regular files get inodes in the order added.
func (b *Builder) Bytes() []byte {
	numInodes, numData := uint32(0), uint32(0)
	for _, e := range b.entries {
		if e.typ == TypeFile {
			numInodes++
			numData += uint32((len(e.data) + BlockSize - 1) / BlockSize)
		}
	}
	img := make([]byte, (1+numInodes+numData)*BlockSize)
	le := binary.LittleEndian
	le.PutUint32(img[0:], uint32(len(b.entries)))
	le.PutUint32(img[4:], numInodes)
	le.PutUint32(img[8:], numData)

	inode, block := uint32(0), uint32(0)
	for i, e := range b.entries {
		d := img[statsSize+i*dentrySize:]
		copy(d[:NameLength], e.name)
		le.PutUint32(d[NameLength:], e.typ)
		if e.typ != TypeFile {
			continue
		}
		le.PutUint32(d[NameLength+4:], inode)
		node := img[(1+inode)*BlockSize:]
		le.PutUint32(node, uint32(len(e.data)))
		for off, k := 0, 0; off < len(e.data); off, k = off+BlockSize, k+1 {
			le.PutUint32(node[4+4*k:], block)
			end := off + BlockSize
			if end > len(e.data) {
				end = len(e.data)
			}
			copy(img[(1+numInodes+block)*BlockSize:], e.data[off:end])
			block++
		}
		inode++
	}
	return img
}
