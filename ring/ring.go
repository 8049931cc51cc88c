// Package ring implements the postmortem ring buffer (§4.6): a
// wrap-aware byte store with a write pointer and a read pointer, one
// slot permanently reserved so that fill == N-1 unambiguously means
// "full" without a separate count field (§9 Design Notes, "Ring
// buffer").
package ring

// Mode selects what happens when a write would collide with the read
// pointer.
type Mode int

const (
	// ModeContinuous drops the oldest byte (advances rp) to make room.
	ModeContinuous Mode = iota
	// ModeSingleShot holds writes until Release is called.
	ModeSingleShot
)

// Buffer is the postmortem ring buffer's data structure. It performs no
// I/O; the byte source and the ETM consumer are wired in by the
// postmortem package.
type Buffer struct {
	data []byte
	rp   int
	wp   int
	held bool

	// wrapped records whether the buffer has reached fill == len-1 since
	// it was last consulted via ConsumeWrapped.
	wrapped bool

	mode Mode
}

// New allocates a buffer of size bytes. size must be at least 2 so the
// one-slot reservation leaves room for at least one live byte.
func New(size int, mode Mode) *Buffer {
	if size < 2 {
		size = 2
	}
	return &Buffer{data: make([]byte, size), mode: mode}
}

// Len returns the buffer's capacity, N.
func (b *Buffer) Len() int { return len(b.data) }

// Fill returns (wp - rp + N) mod N, the number of live bytes.
func (b *Buffer) Fill() int {
	n := len(b.data)
	return ((b.wp - b.rp) + n) % n
}

// Held reports whether the buffer is in single-shot mode and has stopped
// accepting writes pending a Release.
func (b *Buffer) Held() bool { return b.held }

// Release clears a single-shot hold, resuming writes.
func (b *Buffer) Release() { b.held = false }

// ConsumeWrapped reports whether the buffer has reached fill == N-1
// since the last call, clearing the flag.
func (b *Buffer) ConsumeWrapped() bool {
	w := b.wrapped
	b.wrapped = false
	return w
}

// Write appends one byte, per the write path of §4.6: continuous mode
// drops the oldest byte on collision with rp; single-shot mode sets
// held and stops accepting writes until Release.
func (b *Buffer) Write(v byte) {
	if b.held {
		return
	}
	n := len(b.data)
	next := (b.wp + 1) % n

	if next == b.rp {
		if b.mode == ModeSingleShot {
			b.held = true
			return
		}
		b.data[b.wp] = v
		b.wp = next
		b.rp = (b.rp + 1) % n
		b.wrapped = true
		return
	}

	b.data[b.wp] = v
	b.wp = next
	if b.Fill() == n-1 {
		b.wrapped = true
	}
}

// ReplayRange returns the live bytes from rp up to (but not including)
// wp, split at the buffer boundary when rp > wp (§4.6 replay procedure
// steps 2-3). It does not consume or mutate the buffer.
func (b *Buffer) ReplayRange() (first, second []byte) {
	if b.rp <= b.wp {
		return b.data[b.rp:b.wp], nil
	}
	return b.data[b.rp:], b.data[:b.wp]
}
