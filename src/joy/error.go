package joy

import "fmt"

const subsystemMask = 0x00ff_0000_0000_0000
const slotIDMask = 0x0000_ffff_0000_0000
const errorNumberMask = 0x0000_0000_0000_ffff

const JoyNoError = JoyError(0)

// noSlotID is the slot field for errors raised with no process running.
const noSlotID = 0xffff

// Memory Errors
const MemorySubsystem = 1
const MemoryBadPageRequest = 3

var ErrorMemoryBadPageRequest = errorValue(MemorySubsystem, MemoryBadPageRequest)

// Family (process) Errors
const FamilySubsystem = 2
const FamilyNoMoreFamilies = 1
const FamilyNotRunning = 2

var ErrorFamilyNoMoreFamilies = errorValue(FamilySubsystem, FamilyNoMoreFamilies)
var ErrorFamilyNotRunning = errorValue(FamilySubsystem, FamilyNotRunning)

// File Errors
const FileSubsystem = 3
const FileInvalidArgument = 1
const FileTableFull = 2
const FileNoSuchFile = 3
const FileAlreadyClosed = 4
const FileNotOpen = 5
const FileUnsupported = 6
const FileDriverFailed = 7

var ErrorFileInvalidArgument = errorValue(FileSubsystem, FileInvalidArgument)
var ErrorFileTableFull = errorValue(FileSubsystem, FileTableFull)
var ErrorFileNoSuchFile = errorValue(FileSubsystem, FileNoSuchFile)
var ErrorFileAlreadyClosed = errorValue(FileSubsystem, FileAlreadyClosed)
var ErrorFileNotOpen = errorValue(FileSubsystem, FileNotOpen)
var ErrorFileUnsupported = errorValue(FileSubsystem, FileUnsupported)
var ErrorFileDriverFailed = errorValue(FileSubsystem, FileDriverFailed)

// Exec Errors
const ExecSubsystem = 5
const ExecInvalidArgument = 1
const ExecNotFound = 2
const ExecNotExecutable = 3
const ExecLoadFailed = 4
const ExecFatalFault = 5

var ErrorExecInvalidArgument = errorValue(ExecSubsystem, ExecInvalidArgument)
var ErrorExecNotFound = errorValue(ExecSubsystem, ExecNotFound)
var ErrorExecNotExecutable = errorValue(ExecSubsystem, ExecNotExecutable)
var ErrorExecLoadFailed = errorValue(ExecSubsystem, ExecLoadFailed)
var ErrorExecFatalFault = errorValue(ExecSubsystem, ExecFatalFault)

// Kind is the broad class of an error, which is all a user program ever
// learns about it (as -1).
type Kind int

const (
	KindNone Kind = iota
	InvalidArgument
	NotFound
	NotExecutable
	ResourceExhausted
	AlreadyClosed
	NotOpen
	Unsupported
	LoadFailed
	FatalFault
)

type JoyError uint64
type RawJoyError uint64 // error with just the constant part of the value filled in

type errorInfo struct {
	text string
	kind Kind
}

var errorMap map[uint64]errorInfo

func init() {
	errorMap = make(map[uint64]errorInfo)
	createError(MemorySubsystem, MemoryBadPageRequest, InvalidArgument,
		"address is not in the user page")
	createError(FamilySubsystem, FamilyNoMoreFamilies, ResourceExhausted,
		"no free process slots")
	createError(FamilySubsystem, FamilyNotRunning, InvalidArgument,
		"process is not running")
	createError(FileSubsystem, FileInvalidArgument, InvalidArgument,
		"bad file descriptor or argument")
	createError(FileSubsystem, FileTableFull, ResourceExhausted,
		"file descriptor table full")
	createError(FileSubsystem, FileNoSuchFile, NotFound,
		"no such file")
	createError(FileSubsystem, FileAlreadyClosed, AlreadyClosed,
		"file descriptor already closed")
	createError(FileSubsystem, FileNotOpen, NotOpen,
		"file descriptor not open")
	createError(FileSubsystem, FileUnsupported, Unsupported,
		"operation not supported by the driver")
	createError(FileSubsystem, FileDriverFailed, InvalidArgument,
		"driver rejected the request")
	createError(ExecSubsystem, ExecInvalidArgument, InvalidArgument,
		"bad argument")
	createError(ExecSubsystem, ExecNotFound, NotFound,
		"no such program")
	createError(ExecSubsystem, ExecNotExecutable, NotExecutable,
		"not an executable")
	createError(ExecSubsystem, ExecLoadFailed, LoadFailed,
		"program could not be loaded")
	createError(ExecSubsystem, ExecFatalFault, FatalFault,
		"process killed by an exception")
}

func createError(subsys byte, errorNumber uint16, kind Kind, format string) {
	n := errorValue(subsys, errorNumber)
	errorMap[uint64(n)] = errorInfo{text: format, kind: kind}
}

func JoyErrorMessage(j JoyError) string {
	return errorText(uint64(j))
}

func errorText(raw uint64) string {
	t, ok := errorMap[raw&^slotIDMask]
	if !ok {
		return "Unknown error code"
	}
	sid := (raw & slotIDMask) >> 32
	if sid == noSlotID {
		return fmt.Sprintf("kernel: %s", t.text)
	}
	return fmt.Sprintf("slot %d: %s", sid, t.text)
}

func errorValue(subsys byte, errorNumber uint16) RawJoyError {
	ss := subsystemMask & (uint64(subsys) << 48)
	en := errorNumberMask & (uint64(errorNumber) << 0)
	return RawJoyError(ss | en)
}

// MakeError adds the dynamic fields (the slot of the process the error
// happened to) to the error value.
func MakeError(rawError RawJoyError, slot int) JoyError {
	raw := uint64(rawError)
	id := uint64(noSlotID)
	if slot != NoSlot {
		id = uint64(slot)
	}
	sid := (id << 32) & slotIDMask
	return JoyError(raw | sid)
}

func (j JoyError) Error() string {
	return errorText(uint64(j))
}

func (j JoyError) Raw() RawJoyError {
	return RawJoyError(uint64(j) &^ slotIDMask)
}

func (j JoyError) Slot() int {
	sid := (uint64(j) & slotIDMask) >> 32
	if sid == noSlotID {
		return NoSlot
	}
	return int(sid)
}

func (j JoyError) Kind() Kind {
	return errorMap[uint64(j.Raw())].kind
}

// Is matches on subsystem and error number, ignoring the slot.
func (j JoyError) Is(target error) bool {
	switch t := target.(type) {
	case RawJoyError:
		return j.Raw() == t
	case JoyError:
		return j.Raw() == t.Raw()
	}
	return false
}

func (r RawJoyError) Error() string {
	return errorText(uint64(r))
}

// KindOf classifies any error coming out of the kernel.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var j JoyError
	switch e := err.(type) {
	case JoyError:
		j = e
	case RawJoyError:
		j = JoyError(e)
	default:
		return InvalidArgument
	}
	return j.Kind()
}
