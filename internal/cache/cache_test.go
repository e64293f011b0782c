// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"errors"
	"slices"
	"sync"
	"testing"
)

func TestCacheGetOrCreate(t *testing.T) {
	c := New[string, int]()
	calls := 0
	create := func() (int, error) {
		calls++
		return 7, nil
	}

	v, created, err := c.GetOrCreate("k", create)
	if err != nil || !created || v != 7 {
		t.Fatalf("first GetOrCreate = %d, %v, %v", v, created, err)
	}
	v, created, err = c.GetOrCreate("k", create)
	if err != nil || created || v != 7 {
		t.Fatalf("second GetOrCreate = %d, %v, %v", v, created, err)
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	s := c.Stats()
	if s.Len != 1 || s.Hits != 1 || s.Misses != 1 || s.HitRate != 0.5 {
		t.Errorf("stats = %+v, want len 1, 1 hit, 1 miss, rate 0.5", s)
	}
}

func TestCacheGetOrCreateError(t *testing.T) {
	c := New[string, int]()
	errBoom := errors.New("boom")

	_, created, err := c.GetOrCreate("k", func() (int, error) { return 0, errBoom })
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if created {
		t.Error("failed create reported created")
	}
	if c.Len() != 0 {
		t.Error("failed create stored an entry")
	}

	v, created, err := c.GetOrCreate("k", func() (int, error) { return 3, nil })
	if err != nil || !created || v != 3 {
		t.Errorf("retry = %d, %v, %v; want 3, true, nil", v, created, err)
	}
}

func TestCacheGetOrCreateConcurrent(t *testing.T) {
	c := New[int, int]()
	var (
		mu    sync.Mutex
		calls int
		wg    sync.WaitGroup
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.GetOrCreate(1, func() (int, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return 1, nil
			})
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestCacheDrain(t *testing.T) {
	c := New[string, int]()
	for i, k := range []string{"a", "b", "c"} {
		if _, _, err := c.GetOrCreate(k, func() (int, error) { return i + 1, nil }); err != nil {
			t.Fatal(err)
		}
	}

	if got := c.Drain(); !slices.Equal(got, []int{3, 2, 1}) {
		t.Errorf("Drain = %v, want [3 2 1]", got)
	}
	if c.Len() != 0 {
		t.Error("Drain left entries behind")
	}
	if got := c.Drain(); len(got) != 0 {
		t.Errorf("second Drain = %v, want empty", got)
	}
	if c.Stats().Misses != 3 {
		t.Error("Drain reset the statistics")
	}

	// Keys can be created again after a drain.
	if _, created, _ := c.GetOrCreate("a", func() (int, error) { return 9, nil }); !created {
		t.Error("drained key was still cached")
	}
}
