package slot

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"devicehal-go/errcode"
)

type inst struct{ id int }

func TestClaimReleaseStateMachine(t *testing.T) {
	b := NewBank[inst]("uart", 4, 4)
	a, _ := b.Register(&inst{id: 1})
	c, _ := b.Register(&inst{id: 2})

	if err := b.Claim(2, a); err != nil {
		t.Fatalf("claim empty slot: %v", err)
	}
	if err := b.Claim(2, c); err != errcode.Busy {
		t.Fatalf("claim occupied slot: got %v, want busy", err)
	}
	if got := b.Lookup(2); got == nil || got.id != 1 {
		t.Fatalf("Lookup(2) = %+v, want id 1", got)
	}
	b.Release(2)
	if b.Lookup(2) != nil {
		t.Fatal("slot should be empty after release")
	}
	if err := b.Claim(2, c); err != nil {
		t.Fatalf("reclaim after release: %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	tb := NewTable("timer", 2)
	tb.Release(0)
	tb.Release(0)
	tb.Release(7) // out of range is ignored
	if tb.Load(0) != 0 {
		t.Fatal("slot should stay empty")
	}
}

func TestClaimOutOfRangeAndZeroHandle(t *testing.T) {
	tb := NewTable("dma", 8)
	if err := tb.Claim(8, 1); !errors.Is(err, errcode.OutOfRange) {
		t.Fatalf("err = %v, want out_of_range", err)
	}
	if err := tb.Claim(-1, 1); !errors.Is(err, errcode.OutOfRange) {
		t.Fatalf("err = %v, want out_of_range", err)
	}
	if err := tb.Claim(0, 0); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("err = %v, want invalid_params", err)
	}
}

func TestReleaseOwnedKeepsNewOwner(t *testing.T) {
	b := NewBank[inst]("dma", 1, 2)
	first, _ := b.Register(&inst{id: 1})
	second, _ := b.Register(&inst{id: 2})

	if err := b.Claim(0, first); err != nil {
		t.Fatal(err)
	}
	// Interrupt side frees the slot, a new owner claims it before the first
	// owner's destructor runs.
	b.Release(0)
	if err := b.Claim(0, second); err != nil {
		t.Fatal(err)
	}
	b.Unbind(0, first)
	if got := b.Lookup(0); got == nil || got.id != 2 {
		t.Fatalf("Lookup = %+v, the second owner must survive", got)
	}
}

func TestBindRollsBackRegistration(t *testing.T) {
	b := NewBank[inst]("wdt", 1, 2)
	if _, err := b.Bind(0, &inst{id: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Bind(0, &inst{id: 2}); err != errcode.Busy {
		t.Fatalf("second bind: %v, want busy", err)
	}
	if n := b.Arena().Len(); n != 1 {
		t.Fatalf("arena holds %d instances, want 1 after rollback", n)
	}
}

func TestStaleHandleResolvesToNil(t *testing.T) {
	a := NewArena[inst](1)
	h1, _ := a.Put(&inst{id: 1})
	a.Remove(h1)
	h2, _ := a.Put(&inst{id: 2})
	if h1 == h2 {
		t.Fatal("reused entry must carry a new generation")
	}
	if a.Get(h1) != nil {
		t.Fatal("stale handle resolved")
	}
	if got := a.Get(h2); got == nil || got.id != 2 {
		t.Fatalf("Get(h2) = %+v", got)
	}
	if a.Get(0) != nil {
		t.Fatal("zero handle resolved")
	}
	a.Remove(h1) // stale remove is ignored
	if a.Len() != 1 {
		t.Fatalf("Len = %d", a.Len())
	}
}

func TestArenaFull(t *testing.T) {
	a := NewArena[inst](1)
	if _, err := a.Put(&inst{}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Put(&inst{}); !errors.Is(err, errcode.Exhausted) {
		t.Fatalf("err = %v, want exhausted", err)
	}
}

// Property: concurrent claimers of one slot never both succeed.
func TestClaimIsLinearizable(t *testing.T) {
	const workers = 16
	for round := 0; round < 200; round++ {
		b := NewBank[inst]("uart", 1, workers)
		handles := make([]Handle, workers)
		for i := range handles {
			handles[i], _ = b.Register(&inst{id: i})
		}
		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(h Handle) {
				defer wg.Done()
				<-start
				if b.Claim(0, h) == nil {
					wins.Add(1)
				}
			}(handles[i])
		}
		close(start)
		wg.Wait()
		if wins.Load() != 1 {
			t.Fatalf("round %d: %d claims succeeded", round, wins.Load())
		}
	}
}

func TestLookupRacesUnbind(t *testing.T) {
	b := NewBank[inst]("timer", 1, 2)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if got := b.Lookup(0); got != nil && got.id != 7 {
				t.Errorf("lookup returned foreign instance %d", got.id)
				return
			}
		}
	}()
	for i := 0; i < 1000; i++ {
		h, err := b.Bind(0, &inst{id: 7})
		if err != nil {
			t.Fatal(err)
		}
		b.Unbind(0, h)
	}
	close(stop)
	wg.Wait()
	if b.Occupied()[0] {
		t.Fatal("slot left occupied")
	}
}
