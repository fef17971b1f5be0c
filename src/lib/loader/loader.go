package loader

import (
	"bytes"
	"encoding/binary"

	"serenity/src/lib/trust"
)

const sectionBufferSize = 512

// HeaderSize is the part of the image read before deciding whether it can
// run at all: the magic number and, at offset 24, the entry point.
const HeaderSize = 28

const entryOffset = 24

var Magic = []byte{0x7f, 'E', 'L', 'F'}

type LoaderError int

const LoaderNoError LoaderError = 0
const LoaderProcFileNotFound LoaderError = -1
const LoaderProcNotExecutable LoaderError = -2
const LoaderProcCannotReadImage LoaderError = -3
const LoaderProcImageTooLarge LoaderError = -4

func (e LoaderError) Error() string {
	return e.String()
}

func (e LoaderError) String() string {
	switch e {
	case 0:
		return "LoaderNoError"
	case -1:
		return "LoaderProcFileNotFound"
	case -2:
		return "LoaderProcNotExecutable"
	case -3:
		return "LoaderProcCannotReadImage"
	case -4:
		return "LoaderProcImageTooLarge"
	default:
		return "unknown loader error code"
	}
}

// ImageReader is the file system as the loader sees it.
type ImageReader interface {
	ReadData(inode uint32, offset uint32, buf []byte) (int, error)
}

// Memory is the running address space.  Writes go through the page tables,
// so the target slot must be mapped before Load.
type Memory interface {
	StoreBytes(vaddr uint32, data []byte)
}

// CheckHeader validates the first bytes of an image and returns the entry
// point stored at offset 24.
func CheckHeader(header []byte) (uint32, LoaderError) {
	if len(header) < len(Magic) || !bytes.Equal(header[:len(Magic)], Magic) {
		return 0, LoaderProcNotExecutable
	}
	if len(header) < HeaderSize {
		return 0, LoaderProcNotExecutable
	}
	return binary.LittleEndian.Uint32(header[entryOffset:]), LoaderNoError
}

// Load copies the whole image into the user page at ProcLinkVirt.
func (u *UserProcStartupInfo) Load(logger *trust.Logger, fs ImageReader, mem Memory) LoaderError {
	var sectionBuffer [sectionBufferSize]byte
	limit := u.ProcLimitVirt - u.ProcLinkVirt
	read := uint32(0)
	for {
		n, err := fs.ReadData(u.Inode, read, sectionBuffer[:])
		if err != nil {
			logger.Errorf("unable to read %s at %d: %v", u.Filename, read, err)
			return LoaderProcCannotReadImage
		}
		if n == 0 {
			break
		}
		if read+uint32(n) > limit {
			logger.Errorf("%s does not fit in the user page (%d bytes and counting)", u.Filename, read+uint32(n))
			return LoaderProcImageTooLarge
		}
		if read == 0 {
			entry, lerr := CheckHeader(sectionBuffer[:n])
			if lerr != LoaderNoError {
				return lerr
			}
			u.EntryPoint = entry
		}
		mem.StoreBytes(u.ProcLinkVirt+read, sectionBuffer[:n])
		read += uint32(n)
	}
	if read == 0 {
		return LoaderProcNotExecutable
	}
	u.ImageSize = read
	logger.Debugf("loaded %s: %d bytes @ 0x%x, entry 0x%x", u.Filename, read, u.ProcLinkVirt, u.EntryPoint)
	return LoaderNoError
}
