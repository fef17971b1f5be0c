package loader

// total addressable size of a user process is one 4MB page at 128MB

const UserProcessBase = 0x0800_0000
const UserProcessSize = 0x0040_0000
const UserProcessEnd = UserProcessBase + UserProcessSize

// where the program image is copied and where it thinks it is running
const UserProcessLinkAddr = 0x0804_8000

// the user stack starts at the last word of the page and grows down
const UserProcessStackAddr = UserProcessEnd - 4

// slot n's page is at 8MB + n * 4MB in physical memory
const UserProcessLowestPhys = 0x0080_0000

func UserProcessPhys(slot int) uint32 {
	return UserProcessLowestPhys + uint32(slot)*UserProcessSize
}

// the display window is a single 4KB page mapped at 148MB
const UserVideoAddr = 0x0940_0000
