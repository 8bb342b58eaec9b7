package fidpool

import "testing"

func TestPoolFree(t *testing.T) {
	pool := New(0)

	for i := 0; i < 100; i++ {
		n, err := pool.Get()
		if err != nil {
			t.Fatalf("pool marked full prematurely: %s", err)
		}
		if uint32(i) != n {
			t.Fatalf("expected pool.Get to return ids in ascending order, got %d want %d", n, i)
		}
	}

	for i := 0; i < 100; i++ {
		pool.Put(uint32(i))
	}

	if n, err := pool.Get(); err != nil {
		t.Errorf("pool exhausted after freeing all ids: %s", err)
	} else if n != 0 {
		t.Errorf("pool returned non-zero %d on empty pool", n)
	}
}

func TestPoolLIFORelease(t *testing.T) {
	pool := New(0)

	defer func() {
		if n, err := pool.Get(); err != nil {
			t.Errorf("pool exhausted after freeing all ids: %s", err)
		} else if n != 0 {
			t.Errorf("pool returned non-zero %d on empty pool", n)
		}
	}()

	for i := 0; i < 100; i++ {
		n, err := pool.Get()
		if err != nil {
			t.Fatalf("pool marked full prematurely: %s", err)
		}
		defer pool.Put(n)
	}
}

func TestPoolBoundedCeiling(t *testing.T) {
	pool := New(4)

	for i := 0; i < 4; i++ {
		if _, err := pool.Get(); err != nil {
			t.Fatalf("Get %d: %s", i, err)
		}
	}
	if _, err := pool.Get(); err != ErrExhausted {
		t.Fatalf("Get on a full pool: got %v, want ErrExhausted", err)
	}

	pool.Put(2)
	if n, err := pool.Get(); err != nil {
		t.Fatalf("Get after Put: %s", err)
	} else if n != 2 {
		t.Errorf("Get after Put returned %d, want recycled id 2", n)
	}
}

func TestPoolOutOfOrderRelease(t *testing.T) {
	pool := New(0)
	var ids []uint32
	for i := 0; i < 5; i++ {
		n, err := pool.Get()
		if err != nil {
			t.Fatalf("Get %d: %s", i, err)
		}
		ids = append(ids, n)
	}

	// Free the middle one first; the high-water mark must not retreat
	// until everything above it is also freed.
	pool.Put(ids[2])
	if n, err := pool.Get(); err != nil {
		t.Fatalf("Get after out-of-order Put: %s", err)
	} else if n != ids[2] {
		t.Errorf("Get returned %d, want recycled id %d", n, ids[2])
	}
}
