package kernel

import "runtime"

// curGID returns the runtime's id for the calling goroutine.
//
// The kernel keys its thread registry on it, the same way the native kernel
// keys the current-thread pointer on the running stack. The id is parsed from
// the first stack trace line ("goroutine N [running]: ...").
func curGID() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for _, c := range buf[len("goroutine "):n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
