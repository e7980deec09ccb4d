package audio

import (
	"fmt"
	"sync"
	"testing"
)

func TestRingBufferReadReturnsWrittenPrefix(t *testing.T) {
	rb := NewRingBuffer(16)

	// Interleave writes and reads with sizes that force wrap-around and
	// verify the read stream is exactly the written stream.
	var written, read []float32
	next := float32(0)

	writeN := func(n int) {
		chunk := make([]float32, n)
		for i := range chunk {
			chunk[i] = next
			next++
		}
		accepted := rb.Write(chunk)
		written = append(written, chunk[:accepted]...)
	}
	readN := func(n int) {
		out := make([]float32, n)
		got := rb.Read(out)
		read = append(read, out[:got]...)
	}

	steps := []struct {
		write int
		read  int
	}{
		{5, 0}, {7, 3}, {10, 10}, {0, 6}, {16, 4}, {3, 16}, {12, 12},
	}
	for _, s := range steps {
		if s.write > 0 {
			writeN(s.write)
		}
		if s.read > 0 {
			readN(s.read)
		}
		if got, want := rb.Available(), len(written)-len(read); got != want {
			t.Fatalf("Available() = %d, want %d (written=%d read=%d)",
				got, want, len(written), len(read))
		}
	}

	for i := range read {
		if read[i] != written[i] {
			t.Fatalf("read[%d] = %v, want %v", i, read[i], written[i])
		}
	}
}

func TestRingBufferOverflowDropsTail(t *testing.T) {
	rb := NewRingBuffer(8)

	data := make([]float32, 12)
	for i := range data {
		data[i] = float32(i)
	}

	if got := rb.Write(data); got != 8 {
		t.Fatalf("Write accepted %d samples, want 8", got)
	}
	if got := rb.Available(); got != 8 {
		t.Fatalf("Available() = %d, want 8", got)
	}

	out := make([]float32, 8)
	rb.Read(out)
	for i := range out {
		if out[i] != float32(i) {
			t.Fatalf("out[%d] = %v, want %v (tail must be dropped, not head)",
				i, out[i], float32(i))
		}
	}
}

func TestRingBufferEmptyRead(t *testing.T) {
	rb := NewRingBuffer(8)
	out := make([]float32, 4)
	if got := rb.Read(out); got != 0 {
		t.Fatalf("Read from empty ring = %d, want 0", got)
	}
}

// Single producer + single consumer hammering the ring concurrently must
// deliver every sample in order.
func TestRingBufferSPSC(t *testing.T) {
	const total = 100000
	rb := NewRingBuffer(256)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		chunk := make([]float32, 17)
		sent := 0
		for sent < total {
			n := len(chunk)
			if total-sent < n {
				n = total - sent
			}
			for i := 0; i < n; i++ {
				chunk[i] = float32(sent + i)
			}
			sent += rb.Write(chunk[:n])
		}
	}()

	out := make([]float32, 23)
	received := 0
	var mismatch error
	for received < total {
		n := rb.Read(out)
		for i := 0; i < n; i++ {
			if out[i] != float32(received+i) && mismatch == nil {
				mismatch = fmt.Errorf("sample %d = %v, want %v",
					received+i, out[i], float32(received+i))
			}
		}
		received += n
	}

	wg.Wait()
	if mismatch != nil {
		t.Fatal(mismatch)
	}
}
