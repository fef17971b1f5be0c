// Package userland is the set of user programs the kernel boots with and the
// file system image that carries them.
package userland

import (
	"encoding/binary"
	"fmt"

	"serenity/src/drivers/rofs"
	"serenity/src/joy"
	"serenity/src/lib/loader"
)

// Entry is one program: the file it is installed as and its code.
type Entry struct {
	Name    string
	Program joy.Program
	// Size is the image size; zero means DefaultImageSize.
	Size int
}

// DefaultImageSize spans a couple of loader sections and a page boundary.
const DefaultImageSize = 6000

// firstEntry is where the first program's code starts, just past the
// headers of a small linked image.
const firstEntry = loader.UserProcessLinkAddr + 0xe8

// MakeImage is an executable file: the magic, the entry point at offset 24,
// then filler up to size bytes.
func MakeImage(name string, entry uint32, size int) []byte {
	if size < loader.HeaderSize {
		size = loader.HeaderSize
	}
	img := make([]byte, size)
	copy(img, loader.Magic)
	binary.LittleEndian.PutUint32(img[24:], entry)
	for i, n := loader.HeaderSize, 0; i < size; i, n = i+1, n+1 {
		img[i] = name[n%len(name)]
	}
	return img
}

// Install adds each program to b and returns the table the kernel uses to
// find a program from the entry point of the image it just loaded.
func Install(b *rofs.Builder, progs []Entry) (map[uint32]joy.Program, error) {
	table := make(map[uint32]joy.Program, len(progs))
	for i, p := range progs {
		entry := firstEntry + uint32(i)*0x100
		size := p.Size
		if size == 0 {
			size = DefaultImageSize
		}
		if err := b.AddFile(p.Name, MakeImage(p.Name, entry, size)); err != nil {
			return nil, err
		}
		table[entry] = p.Program
	}
	return table, nil
}

// Programs are the standard user programs.
func Programs() []Entry {
	return []Entry{
		{Name: "shell", Program: Shell},
		{Name: "ls", Program: Ls},
		{Name: "cat", Program: Cat},
		{Name: "grep", Program: Grep},
		{Name: "hello", Program: Hello},
		{Name: "counter", Program: Counter},
		{Name: "testprint", Program: TestPrint},
		{Name: "pingpong", Program: PingPong},
		{Name: "fish", Program: Fish},
		{Name: "sigtest", Program: SigTest},
		{Name: "syserr", Program: SysErr},
	}
}

// Boot builds the standard file system: the programs, the RTC device and
// the text files they read.
func Boot() (*rofs.FS, map[uint32]joy.Program, error) {
	b := rofs.NewBuilder()
	table, err := Install(b, Programs())
	if err != nil {
		return nil, nil, err
	}
	if err := b.AddRTC("rtc"); err != nil {
		return nil, nil, err
	}
	for _, f := range textFiles {
		if err := b.AddFile(f.name, []byte(f.data)); err != nil {
			return nil, nil, err
		}
	}
	fs, err := rofs.New(b.Bytes())
	if err != nil {
		return nil, nil, fmt.Errorf("userland: %v", err)
	}
	return fs, table, nil
}

var textFiles = []struct {
	name, data string
}{
	{"frame0.txt", frame0},
	{"frame1.txt", frame1},
	{"verylargetextwithverylongname.tx", veryLarge},
	{"created.txt", "This file was created on the host and is read only.\n"},
}

const frame0 = `/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\
      o
   o      _
      o  | \_/|
        <  o  |
         |_/ \|
/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\
`

const frame1 = `/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\
   o
      o       _
   o        | \_/|
           <  o  |
            |_/ \|
/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\
`

const veryLarge = `very large text file with a very long name
123456789012345678901234567890123456789012345678901234567890
abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghij
ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFGHIJ
the name is 32 characters long, so it has no terminating NUL
in the directory entry and cannot be opened by a 33 byte name
`
