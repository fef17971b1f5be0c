package userland

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"serenity/src/joy"
	"serenity/src/lib/loader"
)

const (
	stdin  = 0
	stdout = 1

	Prompt = "391OS> "
)

func puts(u joy.User, s string) {
	u.Write(stdout, []byte(s))
}

// args is the program's argument, or "" if it has none.
func args(u joy.User) string {
	buf := make([]byte, joy.MaxArgLength+1)
	if u.GetArgs(buf) == -1 {
		return ""
	}
	return string(buf[:bytes.IndexByte(buf, 0)])
}

// Shell reads command lines and runs them until told to exit.
func Shell(u joy.User) {
	buf := make([]byte, 128)
	for {
		puts(u, Prompt)
		n := u.Read(stdin, buf)
		if n == -1 {
			puts(u, "read from keyboard failed\n")
			u.Halt(3)
		}
		line := bytes.TrimRight(buf[:n], "\n")
		if string(line) == "exit" {
			u.Halt(0)
		}
		switch status := u.Execute(line); status {
		case -1:
			puts(u, "no such command\n")
		case joy.ExceptionStatus:
			puts(u, "program terminated by exception\n")
		case 0:
		default:
			puts(u, "program terminated abnormally\n")
		}
	}
}

// Ls prints the directory, one name per line.
func Ls(u joy.User) {
	fd := u.Open([]byte("."))
	if fd == -1 {
		puts(u, "directory open failed\n")
		u.Halt(2)
	}
	buf := make([]byte, 33)
	for {
		n := u.Read(fd, buf[:32])
		if n == -1 {
			puts(u, "directory entry read failed\n")
			u.Halt(3)
		}
		if n == 0 {
			break
		}
		u.Write(stdout, append(buf[:n:n], '\n'))
	}
	u.Halt(0)
}

// Cat copies the file named by its argument to the terminal.
func Cat(u joy.User) {
	name := args(u)
	if name == "" {
		puts(u, "could not read arguments\n")
		u.Halt(3)
	}
	fd := u.Open([]byte(name))
	if fd == -1 {
		puts(u, "file open failed\n")
		u.Halt(2)
	}
	buf := make([]byte, 1024)
	for {
		n := u.Read(fd, buf)
		if n == -1 {
			puts(u, "file read failed\n")
			u.Halt(3)
		}
		if n == 0 {
			break
		}
		u.Write(stdout, buf[:n])
	}
	u.Halt(0)
}

// Grep prints every line, of every file, that contains its argument.
func Grep(u joy.User) {
	pattern := args(u)
	if pattern == "" {
		puts(u, "could not read arguments\n")
		u.Halt(3)
	}
	dir := u.Open([]byte("."))
	if dir == -1 {
		puts(u, "directory open failed\n")
		u.Halt(2)
	}
	name := make([]byte, 33)
	for {
		n := u.Read(dir, name[:32])
		if n <= 0 {
			break
		}
		if f := string(name[:n]); f == "." || f == "rtc" {
			continue
		}
		fd := u.Open(name[:n])
		if fd == -1 {
			continue
		}
		var data []byte
		chunk := make([]byte, 1024)
		for {
			m := u.Read(fd, chunk)
			if m <= 0 {
				break
			}
			data = append(data, chunk[:m]...)
		}
		u.Close(fd)
		for _, line := range bytes.Split(data, []byte("\n")) {
			if bytes.Contains(line, []byte(pattern)) && isText(line) {
				u.Write(stdout, append(append(append([]byte{}, name[:n]...), ':'), append(line, '\n')...))
			}
		}
	}
	u.Halt(0)
}

func isText(line []byte) bool {
	for _, b := range line {
		if b != '\t' && (b < 0x20 || b >= 0x7f) {
			return false
		}
	}
	return true
}

// Hello asks for a name and says hello.
func Hello(u joy.User) {
	puts(u, "Hi, what's your name? ")
	buf := make([]byte, 33)
	n := u.Read(stdin, buf[:32])
	if n == -1 {
		puts(u, "Can't read name from keyboard.\n")
		u.Halt(3)
	}
	puts(u, "Hello, "+string(bytes.TrimRight(buf[:n], "\n"))+"\n")
	u.Halt(0)
}

// Counter counts up to a number given as its argument, or typed in.
func Counter(u joy.User) {
	s := args(u)
	if s == "" {
		puts(u, "Enter the Test Number: (0): 100\n")
		buf := make([]byte, 128)
		n := u.Read(stdin, buf)
		if n == -1 {
			u.Halt(3)
		}
		s = string(bytes.TrimSpace(buf[:n]))
	}
	count, err := strconv.Atoi(s)
	if err != nil || count < 0 {
		puts(u, "not a number\n")
		u.Halt(2)
	}
	for i := 0; i < count; i++ {
		puts(u, strconv.Itoa(i)+"\n")
	}
	u.Halt(0)
}

// TestPrint writes a fixed message.
func TestPrint(u joy.User) {
	puts(u, "Hi, this is a test print.  Every character should be on screen.\n")
	u.Halt(0)
}

// openRTC opens the clock at hz and halts on failure.
func openRTC(u joy.User, hz uint32) int32 {
	fd := u.Open([]byte("rtc"))
	if fd == -1 {
		puts(u, "rtc open failed\n")
		u.Halt(2)
	}
	var rate [4]byte
	binary.LittleEndian.PutUint32(rate[:], hz)
	if u.Write(fd, rate[:]) == -1 {
		puts(u, "rtc rate failed\n")
		u.Halt(2)
	}
	return fd
}

// rounds is the argument as a count, or 0 for no limit.
func rounds(u joy.User) int {
	n, err := strconv.Atoi(args(u))
	if err != nil {
		return 0
	}
	return n
}

// PingPong bounces a ball across a line at 32Hz.
func PingPong(u joy.User) {
	rtc := openRTC(u, 32)
	limit := rounds(u)
	line := make([]byte, 80)
	pos, dir := 0, 1
	for i := 0; limit == 0 || i < limit; i++ {
		for j := range line[:79] {
			line[j] = ' '
		}
		line[pos] = '*'
		line[79] = '\n'
		u.Write(stdout, line)
		if pos+dir < 0 || pos+dir >= 79 {
			dir = -dir
		}
		pos += dir
		u.Read(rtc, nil)
	}
	u.Halt(0)
}

// Fish draws the two frames of the aquarium straight into video memory,
// alternating at 4Hz.
func Fish(u joy.User) {
	// the pointer lands on the user stack like a local variable would
	slot := uint32(loader.UserProcessStackAddr - 4)
	if u.Vidmap(slot) == -1 {
		puts(u, "vidmap failed\n")
		u.Halt(2)
	}
	screen := u.LoadWord(slot)
	frames := [2][]byte{readAll(u, "frame0.txt"), readAll(u, "frame1.txt")}
	rtc := openRTC(u, 4)
	limit := rounds(u)
	for i := 0; limit == 0 || i < limit; i++ {
		drawFrame(u, screen, frames[i%2])
		u.Read(rtc, nil)
	}
	u.Close(rtc)
	u.Halt(0)
}

func readAll(u joy.User, name string) []byte {
	fd := u.Open([]byte(name))
	if fd == -1 {
		puts(u, name+": open failed\n")
		u.Halt(2)
	}
	var data []byte
	buf := make([]byte, 512)
	for {
		n := u.Read(fd, buf)
		if n <= 0 {
			break
		}
		data = append(data, buf[:n]...)
	}
	u.Close(fd)
	return data
}

func drawFrame(u joy.User, screen uint32, frame []byte) {
	const columns, rows = 80, 25
	x, y := 0, 0
	for _, b := range frame {
		if b == '\n' {
			for ; x < columns; x++ {
				u.StoreByte(screen+uint32((y*columns+x)*2), ' ')
			}
			x, y = 0, y+1
			continue
		}
		if y >= rows {
			return
		}
		if x < columns {
			u.StoreByte(screen+uint32((y*columns+x)*2), b)
		}
		x++
	}
}

// SigTest touches memory outside its page and is killed for it.
func SigTest(u joy.User) {
	puts(u, "sigtest: reading address 0\n")
	v := u.LoadWord(0)
	puts(u, "sigtest: read "+strconv.FormatUint(uint64(v), 16)+", should not be here\n")
	u.Halt(1)
}

// SysErr checks that bad system calls fail without hurting anything.
func SysErr(u joy.User) {
	failed := 0
	check := func(what string, got, want int32) {
		result := "PASS"
		if got != want {
			result = "FAIL"
			failed++
		}
		puts(u, result+": "+what+"\n")
	}
	buf := make([]byte, 16)
	check("read from stdout", u.Read(stdout, buf), -1)
	check("write to stdin", u.Write(stdin, buf), -1)
	check("read bad fd", u.Read(8, buf), -1)
	check("read negative fd", u.Read(-1, buf), -1)
	check("read unopened fd", u.Read(5, buf), -1)
	check("close stdin", u.Close(stdin), -1)
	check("close stdout", u.Close(stdout), -1)
	check("close unopened fd", u.Close(2), -1)
	check("open missing file", u.Open([]byte("nonexistent")), -1)
	check("open empty name", u.Open([]byte("")), -1)
	check("getargs with no argument", u.GetArgs(buf), -1)
	check("vidmap null", u.Vidmap(0), -1)
	check("vidmap kernel address", u.Vidmap(0x00400000), -1)
	check("execute missing program", u.Execute([]byte("nonexistent")), -1)
	check("execute data file", u.Execute([]byte("frame0.txt")), -1)

	opened := 0
	for {
		if fd := u.Open([]byte(".")); fd == -1 {
			break
		}
		opened++
	}
	check("open until full", int32(opened), 6)
	for fd := int32(2); fd < 8; fd++ {
		u.Close(fd)
	}
	if failed > 0 {
		u.Halt(1)
	}
	u.Halt(0)
}
