package shmring

import (
	"sync"
	"testing"
)

func TestOrderAcrossWrap(t *testing.T) {
	r := New(64)
	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}

	p := src
	dst := make([]byte, 0, N)
	for len(dst) < N {
		if len(p) > 0 {
			step := len(p)
			if step > 7 {
				step = 7
			}
			p = p[r.TryWriteFrom(p[:step]):]
		}
		var tmp [17]byte
		n := r.TryReadInto(tmp[:])
		dst = append(dst, tmp[:n]...)
	}
	for i := 0; i < N; i++ {
		if dst[i] != src[i] {
			t.Fatalf("mismatch at %d: got=%d want=%d", i, dst[i], src[i])
		}
	}
}

func TestReadableWritableEdges(t *testing.T) {
	r := New(4)
	select {
	case <-r.Readable():
		t.Fatal("unexpected Readable on empty ring")
	default:
	}
	if n := r.TryWriteFrom([]byte{1, 2, 3, 4, 5}); n != 4 {
		t.Fatalf("write into 4-byte ring accepted %d", n)
	}
	select {
	case <-r.Readable():
	default:
		t.Fatal("expected Readable after write")
	}
	if r.Space() != 0 || r.Available() != 4 {
		t.Fatalf("space=%d avail=%d", r.Space(), r.Available())
	}
	if b, ok := r.TryReadByte(); !ok || b != 1 {
		t.Fatalf("TryReadByte = %d,%v", b, ok)
	}
	select {
	case <-r.Writable():
	default:
		t.Fatal("expected Writable after read")
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	r := New(16)
	const N = 10000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < N; {
			if r.TryWriteFrom([]byte{byte(i)}) == 1 {
				i++
				continue
			}
			<-r.Writable()
		}
	}()
	for i := 0; i < N; {
		b, ok := r.TryReadByte()
		if !ok {
			<-r.Readable()
			continue
		}
		if b != byte(i) {
			t.Fatalf("byte %d = %d", i, b)
		}
		i++
	}
	wg.Wait()
}

func TestNewRejectsBadSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non power-of-two size")
		}
	}()
	New(6)
}

func TestTryWriteByteStopsWhenFull(t *testing.T) {
	r := New(2)
	if !r.TryWriteByte('a') || !r.TryWriteByte('b') {
		t.Fatal("ring with room refused a byte")
	}
	if r.TryWriteByte('c') {
		t.Fatal("full ring accepted a byte")
	}
	if b, ok := r.TryReadByte(); !ok || b != 'a' {
		t.Fatalf("TryReadByte = %q,%v", b, ok)
	}
	if !r.TryWriteByte('c') {
		t.Fatal("freed space not reusable")
	}
}
