package x86

import (
	"fmt"
	"runtime"
)

// resumeToken unwinds a kernel stack back to the EnterUser frame that
// created a process, which then returns status to the process's parent.
type resumeToken struct {
	frame  SavedContext
	status int32
}

// restartToken unwinds to the frame and enters user mode again at its entry.
type restartToken struct {
	frame SavedContext
}

type outcome int

const (
	outResumed outcome = iota
	outRestarted
	outFaulted
	outReturned
)

// EnterUser runs entry in user mode on the current thread.  frame is the
// caller's kernel stack position as recorded in the new process; a Resume or
// Restart naming that frame comes back here.  EnterUser returns only when the
// process is resumed past, with the status given to Resume.
//
// A panic that is not one of ours is a processor exception: it goes to the
// fault handler, on this same frame, which is expected to halt the process.
func (c *CPU) EnterUser(frame SavedContext, entry func()) int32 {
	th := c.current
	savedESP, savedEBP := th.esp, th.ebp
	prevIF := c.iflag
	defer func() {
		th.esp, th.ebp = savedESP, savedEBP
		c.iflag = prevIF
	}()

	run := entry
	user := true
	for {
		// user mode always runs with IF set; trapping back in lands on esp0
		th.esp, th.ebp = c.TSS.ESP0, c.TSS.ESP0
		if user {
			c.iflag = true
		}
		out, status, f := c.trap(frame, run)
		switch out {
		case outResumed:
			return status
		case outRestarted:
			run, user = entry, true
		case outFaulted:
			if !user {
				panic(fmt.Sprintf("kernel fault handling %v: %v", frame, f))
			}
			run, user = func() { c.fault(f) }, false
		case outReturned:
			if !user {
				panic(fmt.Sprintf("halt returned on frame %v", frame))
			}
			run, user = c.exit, false
		}
	}
}

func (c *CPU) trap(frame SavedContext, fn func()) (out outcome, status int32, f Fault) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch tok := r.(type) {
		case resumeToken:
			if !tok.frame.sameFrame(frame) {
				panic(r)
			}
			out, status = outResumed, tok.status
		case restartToken:
			if !tok.frame.sameFrame(frame) {
				panic(r)
			}
			out = outRestarted
		case Fault:
			out, f = outFaulted, tok
		case runtime.Error:
			out, f = outFaulted, faultFromRuntime(tok)
		default:
			out, f = outFaulted, Fault{Vector: GeneralProtection, Detail: fmt.Sprint(tok)}
		}
	}()
	fn()
	return outReturned, 0, Fault{}
}

func faultFromRuntime(err runtime.Error) Fault {
	msg := err.Error()
	if msg == "runtime error: integer divide by zero" {
		return Fault{Vector: DivideError, Detail: msg}
	}
	return Fault{Vector: GeneralProtection, Detail: msg}
}

// Resume abandons the current kernel stack and returns status from the
// EnterUser call that owns frame.  It does not return.
func (c *CPU) Resume(frame SavedContext, status int32) {
	panic(resumeToken{frame: frame, status: status})
}

// Restart abandons the current kernel stack and re-enters user mode at the
// entry of the EnterUser call that owns frame.  It does not return.
func (c *CPU) Restart(frame SavedContext) {
	panic(restartToken{frame: frame})
}
