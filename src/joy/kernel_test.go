package joy

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"serenity/src/drivers/rofs"
	"serenity/src/drivers/terminal"
	"serenity/src/hardware/i8259"
	"serenity/src/lib/loader"
	"serenity/src/lib/trust"
)

type testProgram struct {
	name string
	prog Program
}

func testImage(name string, entry uint32) []byte {
	img := make([]byte, 5000)
	copy(img, loader.Magic)
	binary.LittleEndian.PutUint32(img[24:], entry)
	copy(img[loader.HeaderSize:], name)
	return img
}

const notesText = "hello notes\nsecond line\n"

// bootKernel starts a kernel whose shell is the first program.  Nothing runs
// until the first tick.
func bootKernel(t *testing.T, progs ...testProgram) *Kernel {
	t.Helper()
	b := rofs.NewBuilder()
	table := make(map[uint32]Program)
	for i, p := range progs {
		entry := loader.UserProcessLinkAddr + 0x100*uint32(i+1)
		if err := b.AddFile(p.name, testImage(p.name, entry)); err != nil {
			t.Fatalf("adding %s: %v", p.name, err)
		}
		table[entry] = p.prog
	}
	if err := b.AddRTC("rtc"); err != nil {
		t.Fatal(err)
	}
	if err := b.AddFile("notes.txt", []byte(notesText)); err != nil {
		t.Fatal(err)
	}
	fs, err := rofs.New(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	k, err := New(Config{FS: fs, Programs: table, Shell: progs[0].name, Logger: trust.NewLogger(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	go k.Run()
	t.Cleanup(func() {
		k.Stop()
		<-k.Done()
	})
	return k
}

// waitFor polls cond on the kernel's CPU until it holds.
func waitFor(t *testing.T, k *Kernel, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ok := false
		if !k.Do(func() { ok = cond() }) {
			t.Fatalf("kernel stopped waiting for %s", what)
		}
		if ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// tick delivers one timer interrupt and waits for it to be scheduled.
func tick(t *testing.T, k *Kernel) {
	t.Helper()
	var before uint64
	k.Do(func() { before = k.sched.tick })
	k.Raise(i8259.TimerIRQ)
	waitFor(t, k, "timer tick", func() bool { return k.sched.tick > before })
}

// idle parks a program on its terminal's keyboard for good.
func idle(u User) {
	buf := make([]byte, 128)
	for {
		u.Read(StdinFD, buf)
	}
}

// report runs body once as the root shell, hands its result to the test
// and then idles.
func report(body func(u User) string) (Program, <-chan string) {
	out := make(chan string, 1)
	ran := false
	return func(u User) {
		if !ran {
			ran = true
			out <- body(u)
		}
		idle(u)
	}, out
}

func result(t *testing.T, out <-chan string) string {
	t.Helper()
	select {
	case s := <-out:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("program did not report")
	}
	return ""
}

func screen(k *Kernel, term int) string {
	var s string
	k.Do(func() { s = k.console.Screen(term) })
	return s
}

func TestBootstrapAllTerminals(t *testing.T) {
	prompt := func(u User) {
		u.Write(StdoutFD, []byte("ready> "))
		idle(u)
	}
	k := bootKernel(t, testProgram{"waiter", prompt})

	for term := 0; term < 3; term++ {
		tick(t, k)
		waitFor(t, k, "shell started", func() bool {
			return k.sched.states[term] == Active && k.console.Foreground() == term
		})
	}
	var roots [3]int
	k.Do(func() { roots = k.sched.roots })
	if roots != [3]int{0, 1, 2} {
		t.Errorf("roots: %v", roots)
	}

	// the tick after the last bootstrap brings terminal 0 home
	tick(t, k)
	waitFor(t, k, "rehome", func() bool { return k.console.Foreground() == 0 })
	var current, active int
	k.Do(func() { current, active = k.current, k.sched.active })
	if current != 0 || active != 0 {
		t.Errorf("after rehome: current %d on terminal %d", current, active)
	}
	for term := 0; term < 3; term++ {
		// rows come back without trailing blanks
		if !strings.Contains(screen(k, term), "ready>") {
			t.Errorf("terminal %d has no prompt:\n%s", term, screen(k, term))
		}
	}

	for i := 0; i < 6; i++ {
		tick(t, k)
	}
	k.Stop()
	<-k.Done()
	if got := k.Processes().Count(); got != 3 {
		t.Errorf("%d processes after bootstrap", got)
	}
	if k.pic.Serviced(i8259.TimerIRQ) != k.pic.Acks(i8259.TimerIRQ) {
		t.Errorf("timer serviced %d times but acknowledged %d", k.pic.Serviced(i8259.TimerIRQ), k.pic.Acks(i8259.TimerIRQ))
	}
	if k.Ticks() != 10 {
		t.Errorf("scheduled %d ticks", k.Ticks())
	}
}

// Every root runs a child that waits on the keyboard.  A terminal's turn
// goes to the bottom of its chain, and the child's halt lands back in its
// parent's execute.
func TestScheduleRunsLeafOfChain(t *testing.T) {
	statuses := make(chan int32, terminal.Count)
	root := func(u User) {
		statuses <- u.Execute([]byte("child"))
		idle(u)
	}
	child := func(u User) {
		buf := make([]byte, 128)
		u.Read(StdinFD, buf)
		u.Halt(4)
	}
	k := bootKernel(t, testProgram{"root", root}, testProgram{"child", child})

	for term := 0; term < terminal.Count; term++ {
		tick(t, k)
		want := 2 * (term + 1)
		waitFor(t, k, "child started", func() bool {
			return k.sched.states[term] == Active && k.procs.Count() == want
		})
	}
	tick(t, k)
	var current, leaf, rootSlot int
	var leaves []int
	k.Do(func() {
		current, rootSlot = k.current, k.sched.roots[0]
		leaf = k.procs.Leaf(rootSlot)
		for _, r := range k.sched.roots {
			leaves = append(leaves, k.procs.Leaf(r))
		}
	})
	if current != leaf || current == rootSlot {
		t.Errorf("terminal 0 runs slot %d, leaf %d, root %d", current, leaf, rootSlot)
	}
	if fmt.Sprint(leaves) != "[1 3 5]" {
		t.Errorf("leaves %v", leaves)
	}

	k.Keyboard().Push([]byte("done\n")...)
	select {
	case status := <-statuses:
		if status != 4 {
			t.Errorf("execute returned %d", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("child never halted")
	}
	waitFor(t, k, "child freed", func() bool {
		return k.procs.Count() == 5 && k.current == rootSlot
	})
}

func TestKeyboardLineReachesForegroundShell(t *testing.T) {
	echo := func(u User) {
		buf := make([]byte, 128)
		for {
			n := u.Read(StdinFD, buf)
			u.Write(StdoutFD, append([]byte("got: "), buf[:n]...))
		}
	}
	k := bootKernel(t, testProgram{"echo", echo})
	tick(t, k)
	k.Keyboard().Push([]byte("hi there\r")...)
	waitFor(t, k, "echo", func() bool {
		return strings.Contains(k.console.Screen(0), "got: hi there")
	})
}

func TestHotkeySwitchesDisplay(t *testing.T) {
	k := bootKernel(t, testProgram{"idle", idle})
	tick(t, k)
	k.Keyboard().Push(0x1b, '3')
	waitFor(t, k, "switch to terminal 3", func() bool { return k.console.Foreground() == 2 })
	k.Keyboard().Push(0x1b, 'O', 'Q')
	waitFor(t, k, "switch to terminal 2", func() bool { return k.console.Foreground() == 1 })
}

func TestRTCReadWaitsForTicks(t *testing.T) {
	var k *Kernel
	prog, out := report(func(u User) string {
		fd := u.Open([]byte("rtc"))
		rate := make([]byte, 4)
		binary.LittleEndian.PutUint32(rate, 512)
		if u.Write(fd, rate) == -1 {
			return "rate rejected"
		}
		binary.LittleEndian.PutUint32(rate, 3)
		if u.Write(fd, rate) != -1 {
			return "rate 3 accepted"
		}
		start := k.rtc.Ticks()
		u.Read(fd, nil)
		if n := k.rtc.Ticks() - start; n < 2 {
			return fmt.Sprintf("woke after %d", n)
		}
		return "woke"
	})
	k = bootKernel(t, testProgram{"clock", prog})
	tick(t, k)
	for i := 0; i < 8; i++ {
		select {
		case got := <-out:
			// 1024Hz base at 512Hz is two interrupts per read
			if got != "woke" {
				t.Fatal(got)
			}
			return
		default:
		}
		var before uint64
		k.Do(func() { before = k.rtc.Ticks() })
		k.Raise(i8259.RTCIRQ)
		waitFor(t, k, "rtc tick", func() bool { return k.rtc.Ticks() > before })
	}
	if got := result(t, out); got != "woke" {
		t.Fatal(got)
	}
}
