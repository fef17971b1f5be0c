package loader

// UserProcStartupInfo describes one program being loaded into a process
// slot.  EntryPoint and ImageSize are filled in by Load.
type UserProcStartupInfo struct {
	Filename      string
	Inode         uint32
	ProcLinkVirt  uint32 // where the image is copied
	ProcLimitVirt uint32 // first address past the user page
	ProcStackVirt uint32
	// these are return values back to the caller
	EntryPoint uint32
	ImageSize  uint32
}

func NewUserProcStartupInfo(filename string, inode uint32) *UserProcStartupInfo {
	return &UserProcStartupInfo{
		Filename:      filename,
		Inode:         inode,
		ProcLinkVirt:  UserProcessLinkAddr,
		ProcLimitVirt: UserProcessEnd,
		ProcStackVirt: UserProcessStackAddr,
	}
}
