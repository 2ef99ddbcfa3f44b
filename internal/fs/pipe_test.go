package fs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPipeWriteThenReadSameGoroutine(t *testing.T) {
	rd, wr := NewPipe()
	n, err := wr.Write([]byte("hello"))
	require.Equal(t, 0, int(err))
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = rd.Read(buf)
	require.Equal(t, 0, int(err))
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestPipeReadBlocksUntilWriterProduces(t *testing.T) {
	rd, wr := NewPipe()
	var wg sync.WaitGroup
	wg.Add(1)
	var got string
	go func() {
		defer wg.Done()
		buf := make([]byte, 5)
		n, _ := rd.Read(buf)
		got = string(buf[:n])
	}()

	time.Sleep(10 * time.Millisecond)
	wr.Write([]byte("world"))
	wg.Wait()
	require.Equal(t, "world", got)
}

func TestPipeWriteBlocksWhenBufferFull(t *testing.T) {
	rd, wr := NewPipe()
	full := make([]byte, pipeBufSize())
	for i := range full {
		full[i] = byte(i)
	}
	wr.Write(full)

	progressed := make(chan int, 1)
	go func() {
		extra := []byte("more")
		n, _ := wr.Write(extra)
		progressed <- n
	}()

	select {
	case <-progressed:
		t.Fatal("write should have blocked with a full ring buffer")
	case <-time.After(20 * time.Millisecond):
	}

	// draining exactly as many bytes as the blocked write needs must let
	// it complete.
	drained := make([]byte, 4)
	rd.Read(drained)

	select {
	case n := <-progressed:
		require.Equal(t, 4, n)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("writer never unblocked after reader drained the ring")
	}
}

func TestPipeReadReturnsEOFAfterWriterCloses(t *testing.T) {
	rd, wr := NewPipe()
	wr.Write([]byte("ab"))
	wr.Close()

	buf := make([]byte, 10)
	n, err := rd.Read(buf)
	require.Equal(t, 0, int(err))
	require.Equal(t, 2, n)
	require.Equal(t, "ab", string(buf[:2]))

	// a subsequent read against a drained, writer-closed pipe reports EOF
	// as a zero-length, zero-error read rather than blocking forever.
	n, err = rd.Read(buf)
	require.Equal(t, 0, int(err))
	require.Equal(t, 0, n)
}

func pipeBufSize() int {
	return len((&ringBuffer_t{}).buf)
}
