package fs

import (
	"runtime"
	"sync"

	"rvkernel/internal/config"
	"rvkernel/internal/defs"
)

// Yield is called by a blocked pipe end between polling attempts,
// giving another task a chance to run. proc overrides this at startup
// with TCB_t.Yield so a blocked pipe read/write actually gives up the
// hart rather than busy-spinning the host OS thread; the default here
// (used only by this package's own tests) just reschedules the
// goroutine. Grounded on os/src/fs/pipe.rs's read/write loops, which
// call suspend_current_and_run_next in exactly this spot.
var Yield func() = runtime.Gosched

type ringStatus int

const (
	ringEmpty ringStatus = iota
	ringFull
	ringNormal
)

// ringBuffer_t is the fixed-capacity byte queue shared by a pipe's two
// ends. Grounded on os/src/fs/pipe.rs's PipeRingBuffer.
type ringBuffer_t struct {
	mu            sync.Mutex
	buf           [config.PipeBufSize]byte
	head, tail    int
	status        ringStatus
	writersClosed bool
}

func newRingBuffer() *ringBuffer_t {
	return &ringBuffer_t{status: ringEmpty}
}

func (r *ringBuffer_t) writeByte(b byte) {
	r.status = ringNormal
	r.buf[r.tail] = b
	r.tail = (r.tail + 1) % config.PipeBufSize
	if r.tail == r.head {
		r.status = ringFull
	}
}

func (r *ringBuffer_t) readByte() byte {
	r.status = ringNormal
	b := r.buf[r.head]
	r.head = (r.head + 1) % config.PipeBufSize
	if r.head == r.tail {
		r.status = ringEmpty
	}
	return b
}

func (r *ringBuffer_t) availableRead() int {
	if r.status == ringEmpty {
		return 0
	}
	if r.tail > r.head {
		return r.tail - r.head
	}
	return r.tail + config.PipeBufSize - r.head
}

func (r *ringBuffer_t) availableWrite() int {
	if r.status == ringFull {
		return 0
	}
	return config.PipeBufSize - r.availableRead()
}

// Pipe_t is one end (read or write) of a pipe, implementing fd.File_i.
// Grounded on os/src/fs/pipe.rs's Pipe.
type Pipe_t struct {
	readable bool
	writable bool
	ring     *ringBuffer_t
}

// NewPipe returns the (read end, write end) pair of a fresh pipe.
// Grounded on make_pipe.
func NewPipe() (*Pipe_t, *Pipe_t) {
	ring := newRingBuffer()
	return &Pipe_t{readable: true, ring: ring}, &Pipe_t{writable: true, ring: ring}
}

func (p *Pipe_t) Readable() bool { return p.readable }
func (p *Pipe_t) Writable() bool { return p.writable }

// Close marks a write end closed so blocked readers can observe EOF;
// read ends need no special release. Grounded on the write_end weak
// reference os/src/fs/pipe.rs uses to detect every writer having gone
// away -- this simulator tracks it with an explicit flag instead, since
// there is exactly one write end per pipe in spec.md's model (no dup'd
// pipe write ends to count).
func (p *Pipe_t) Close() defs.Err_t {
	if p.writable {
		p.ring.mu.Lock()
		p.ring.writersClosed = true
		p.ring.mu.Unlock()
	}
	return 0
}

// Read implements fd.File_i: it blocks (yielding between attempts)
// until len(buf) bytes have been read or every writer has closed, and
// returns the number of bytes read. Grounded on Pipe::read.
func (p *Pipe_t) Read(buf []byte) (int, defs.Err_t) {
	if !p.readable {
		return 0, -defs.EBADF
	}
	want := len(buf)
	read := 0
	for read < want {
		p.ring.mu.Lock()
		avail := p.ring.availableRead()
		if avail == 0 {
			closed := p.ring.writersClosed
			p.ring.mu.Unlock()
			if closed {
				return read, 0
			}
			Yield()
			continue
		}
		for i := 0; i < avail && read < want; i++ {
			buf[read] = p.ring.readByte()
			read++
		}
		p.ring.mu.Unlock()
	}
	return read, 0
}

// Write implements fd.File_i: it blocks (yielding between attempts)
// until the full buffer has been queued. Grounded on Pipe::write.
func (p *Pipe_t) Write(buf []byte) (int, defs.Err_t) {
	if !p.writable {
		return 0, -defs.EBADF
	}
	want := len(buf)
	written := 0
	for written < want {
		p.ring.mu.Lock()
		avail := p.ring.availableWrite()
		if avail == 0 {
			p.ring.mu.Unlock()
			Yield()
			continue
		}
		for i := 0; i < avail && written < want; i++ {
			p.ring.writeByte(buf[written])
			written++
		}
		p.ring.mu.Unlock()
	}
	return written, 0
}
