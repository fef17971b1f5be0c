package joy

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"serenity/src/hardware/vga"
	"serenity/src/lib/loader"
)

func TestParseCommand(t *testing.T) {
	long := strings.Repeat("x", 200)
	tests := []struct {
		cmd       string
		name, arg string
		bad       bool
	}{
		{cmd: "ls", name: "ls"},
		{cmd: "   ls\n", name: "ls"},
		{cmd: "cat frame0.txt\n", name: "cat", arg: "frame0.txt"},
		{cmd: "grep   a b  \n", name: "grep", arg: "a b  "},
		{cmd: "cat notes\x00junk", name: "cat", arg: "notes"},
		{cmd: "    ", name: ""},
		{cmd: "", name: ""},
		{cmd: "echo " + long, name: "echo", arg: long[:MaxArgLength]},
		{cmd: strings.Repeat("n", MaxNameLength), name: strings.Repeat("n", MaxNameLength)},
		{cmd: strings.Repeat("n", MaxNameLength+1), bad: true},
	}
	for _, tc := range tests {
		name, arg, err := parseCommand([]byte(tc.cmd))
		if tc.bad {
			if err == nil {
				t.Errorf("%q: expected an error", tc.cmd)
			}
			continue
		}
		if err != nil || name != tc.name || arg != tc.arg {
			t.Errorf("%q: got %q %q %v", tc.cmd, name, arg, err)
		}
	}
}

func TestExecuteReturnsHaltStatus(t *testing.T) {
	zero := 0
	prog, out := report(func(u User) string {
		var got []int32
		for _, cmd := range []string{"seven", "crash", "quiet", "divide", "  big  "} {
			got = append(got, u.Execute([]byte(cmd)))
		}
		return fmt.Sprint(got)
	})
	k := bootKernel(t,
		testProgram{"root", prog},
		testProgram{"seven", func(u User) { u.Halt(7) }},
		testProgram{"crash", func(u User) { u.LoadWord(0) }},
		testProgram{"quiet", func(u User) {}},
		testProgram{"divide", func(u User) { u.Write(StdoutFD, make([]byte, 10/zero)) }},
		testProgram{"big", func(u User) { u.Halt(255) }},
	)
	tick(t, k)
	if got := result(t, out); got != "[7 256 0 256 255]" {
		t.Errorf("statuses %s", got)
	}
	s := screen(k, 0)
	if !strings.Contains(s, "Page Fault") || !strings.Contains(s, "Divide Error") {
		t.Errorf("exceptions not reported:\n%s", s)
	}
	var count, current int
	k.Do(func() { count, current = k.procs.Count(), k.current })
	if count != 1 || current != 0 {
		t.Errorf("%d processes, current %d", count, current)
	}
}

func TestSeventhExecuteFails(t *testing.T) {
	var k *Kernel
	var depthErr error
	peak := 0
	nest := func(u User) {
		status, err := k.Execute([]byte("nest"))
		if err != nil {
			depthErr = err
			peak = k.procs.Count()
			u.Halt(9)
		}
		u.Halt(uint8(status))
	}
	prog, out := report(func(u User) string {
		return fmt.Sprint(u.Execute([]byte("nest")))
	})
	k = bootKernel(t, testProgram{"root", prog}, testProgram{"nest", nest})
	tick(t, k)
	if got := result(t, out); got != "9" {
		t.Errorf("root got %s", got)
	}
	var count int
	k.Do(func() { count = k.procs.Count() })
	if peak != NumSlots || count != 1 {
		t.Errorf("peak %d processes, %d left", peak, count)
	}
	if KindOf(depthErr) != ResourceExhausted || !errors.Is(depthErr, ErrorFamilyNoMoreFamilies) {
		t.Errorf("wrong error %v", depthErr)
	}
	if !strings.Contains(screen(k, 0), "Max programs reached") {
		t.Errorf("no message:\n%s", screen(k, 0))
	}
}

func TestRootHaltRestarts(t *testing.T) {
	var k *Kernel
	runs := 0
	var slots []int
	var fds []int32
	out := make(chan string, 1)
	root := func(u User) {
		runs++
		slots = append(slots, k.current)
		fds = append(fds, u.Open([]byte("notes.txt")))
		if runs == 1 {
			u.Vidmap(loader.UserProcessStackAddr - 16)
			u.Halt(5)
		}
		p, _ := k.procs.Get(k.current)
		out <- fmt.Sprint(runs, slots, fds, k.procs.Count(), p.Vidmap, k.space.DisplayWindowMapped())
		idle(u)
	}
	k = bootKernel(t, testProgram{"root", root})
	tick(t, k)
	// the restarted shell keeps its open file and its display window
	if got := result(t, out); got != "2 [0 0] [2 3] 1 true true" {
		t.Errorf("restart: %s", got)
	}
	if !strings.Contains(screen(k, 0), "Halting final shell is not allowed") {
		t.Errorf("no message:\n%s", screen(k, 0))
	}
}

func TestExecuteRejects(t *testing.T) {
	var k *Kernel
	var kinds []Kind
	prog, out := report(func(u User) string {
		var got []int32
		for _, cmd := range []string{strings.Repeat("a", 33), "missing", "notes.txt", "rtc", "   "} {
			got = append(got, u.Execute([]byte(cmd)))
			_, err := k.Execute([]byte(cmd))
			kinds = append(kinds, KindOf(err))
		}
		return fmt.Sprint(got, k.procs.Count())
	})
	k = bootKernel(t, testProgram{"root", prog})
	tick(t, k)
	if got := result(t, out); got != "[-1 -1 -1 -1 0] 1" {
		t.Errorf("got %s", got)
	}
	want := []Kind{InvalidArgument, NotFound, NotExecutable, NotExecutable, KindNone}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Errorf("kinds %v, want %v", kinds, want)
	}
}

func TestGetArgs(t *testing.T) {
	var got []string
	args := func(u User) {
		buf := make([]byte, 128)
		if u.GetArgs(buf) == -1 {
			got = append(got, "-1")
		} else {
			got = append(got, string(buf[:strings.IndexByte(string(buf), 0)]))
		}
		if u.GetArgs(make([]byte, 3)) != -1 {
			got = append(got, "small buffer accepted")
		}
		u.Halt(0)
	}
	prog, out := report(func(u User) string {
		u.Execute([]byte("args   arg1 arg2"))
		u.Execute([]byte("args"))
		u.Execute([]byte("args abc"))
		return strings.Join(got, "|")
	})
	k := bootKernel(t, testProgram{"root", prog}, testProgram{"args", args})
	tick(t, k)
	if s := result(t, out); s != "arg1 arg2|-1|abc" {
		t.Errorf("got %q", s)
	}
}

func TestOpenReadWriteClose(t *testing.T) {
	prog, out := report(func(u User) string {
		buf := make([]byte, 64)
		var r []int32
		r = append(r, u.Read(StdoutFD, buf), u.Write(StdinFD, buf), u.Close(StdinFD), u.Close(StdoutFD))
		a, b := u.Open([]byte("stdin")), u.Open([]byte("stdin"))
		c := u.Open([]byte("stdout"))
		r = append(r, a, b, c, u.Write(a, buf), u.Read(c, buf), u.Write(c, []byte("ok\n")), u.Close(a))

		f := u.Open([]byte("notes.txt"))
		n := u.Read(f, buf[:5])
		first := string(buf[:n])
		n = u.Read(f, buf)
		rest := string(buf[:n])
		r = append(r, f, u.Read(f, buf), u.Write(f, buf), u.Close(f), u.Close(f), u.Read(f, buf))

		d := u.Open([]byte("."))
		var names []string
		for {
			n := u.Read(d, buf[:32])
			if n <= 0 {
				break
			}
			names = append(names, string(buf[:n]))
		}
		r = append(r, u.Open([]byte("nope")), u.Open(nil))
		return fmt.Sprint(r, first, "|", rest, "|", strings.Join(names, ","))
	})
	k := bootKernel(t, testProgram{"root", prog})
	tick(t, k)
	want := fmt.Sprint([]int32{-1, -1, -1, -1, 2, 3, 4, -1, -1, 2, -1, 5, 0, -1, 0, -1, -1, -1, -1},
		"hello", "|", " notes\nsecond line\n", "|", ".,root,rtc,notes.txt")
	if got := result(t, out); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestDescriptorTableFull(t *testing.T) {
	prog, out := report(func(u User) string {
		var fds []int32
		for i := 0; i < 7; i++ {
			fds = append(fds, u.Open([]byte("notes.txt")))
		}
		u.Close(4)
		fds = append(fds, u.Open([]byte("rtc")))
		return fmt.Sprint(fds)
	})
	k := bootKernel(t, testProgram{"root", prog})
	tick(t, k)
	if got := result(t, out); got != "[2 3 4 5 6 7 -1 4]" {
		t.Errorf("got %s", got)
	}
}

func TestVidmap(t *testing.T) {
	var k *Kernel
	ptr := uint32(loader.UserProcessStackAddr - 16)
	var addrs []uint32
	var phys uint32
	viewer := func(u User) {
		for i := 0; i < 2; i++ {
			if u.Vidmap(ptr) == -1 {
				u.Halt(1)
			}
			addrs = append(addrs, u.LoadWord(ptr))
		}
		phys = k.space.Translate(loader.UserVideoAddr, true, true)
		u.StoreByte(loader.UserVideoAddr, 'Z')
		for _, bad := range []uint32{0, loader.UserProcessLinkAddr, loader.UserProcessEnd, 0x00400000} {
			if u.Vidmap(bad) != -1 {
				u.Halt(2)
			}
		}
		u.Halt(0)
	}
	prog, out := report(func(u User) string {
		status := u.Execute([]byte("viewer"))
		return fmt.Sprint(status, k.space.DisplayWindowMapped())
	})
	k = bootKernel(t, testProgram{"root", prog}, testProgram{"viewer", viewer})
	tick(t, k)
	if got := result(t, out); got != "0 false" {
		t.Fatalf("got %s", got)
	}
	if fmt.Sprint(addrs) != fmt.Sprint([]uint32{loader.UserVideoAddr, loader.UserVideoAddr}) {
		t.Errorf("stored %x", addrs)
	}
	if phys != vga.PhysAddr {
		t.Errorf("window at %x", phys)
	}
	var first byte
	k.Do(func() { first = k.console.Video()[0] })
	if first != 'Z' {
		t.Errorf("video memory starts with %q", first)
	}
}
