package cache

import "runtime"

// goroutineID returns an identifier for the calling goroutine, stable for
// that goroutine's lifetime and unique among concurrently-running
// goroutines. There is no supported API for this in Go, so — like the
// teacher's internal/race/api goid_generic.go fallback path — we parse the
// header line of runtime.Stack's output.
//
// This module does not port the teacher's assembly fast path
// (goid_fast.go): that path shaves the extraction from ~1.5us to ~1-2ns, a
// difference that matters on the teacher's per-memory-access hot path
// (raceread/racewrite, called millions of times) but not on ours, where a
// goroutine calls through here once or twice per Get (Set never does), not
// once per memory access. See DESIGN.md.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the numeric goroutine id from a single stack header
// line of the form "goroutine 123 [running]:...".
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var gid int64
	for i := len(prefix); i < len(buf); i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		gid = gid*10 + int64(c-'0')
	}
	return gid
}

// liveGoroutineIDs parses a full (all=true) runtime.Stack dump and returns
// the set of currently-live goroutine ids. Used only by the periodic
// liveness sweep (Store.Sweep in cache.go) — never on a read/write fast path — since it
// allocates a growing buffer and walks every goroutine's header line.
func liveGoroutineIDs() map[int64]struct{} {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return parseAllGIDs(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}

// parseAllGIDs extracts every "goroutine N [...]:" header id from a full
// stack dump produced by runtime.Stack(buf, true).
func parseAllGIDs(buf []byte) map[int64]struct{} {
	ids := make(map[int64]struct{})
	const prefix = "goroutine "
	for i := 0; i < len(buf); i++ {
		if i+len(prefix) > len(buf) || string(buf[i:i+len(prefix)]) != prefix {
			continue
		}
		// Only match at the start of a line, mirroring the single-stack
		// parser's assumption that "goroutine " only appears as a header.
		if i != 0 && buf[i-1] != '\n' {
			continue
		}
		j := i + len(prefix)
		var gid int64
		for ; j < len(buf) && buf[j] >= '0' && buf[j] <= '9'; j++ {
			gid = gid*10 + int64(buf[j]-'0')
		}
		if j > i+len(prefix) {
			ids[gid] = struct{}{}
		}
	}
	return ids
}
