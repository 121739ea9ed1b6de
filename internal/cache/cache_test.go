package cache

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestSingleFlightCoalescesConcurrentMisses(t *testing.T) {
	c := New[int, string](1<<20, func(string) int { return 1 }, strconv.Itoa)

	var computeCount int64
	const workers = 50

	var wg sync.WaitGroup
	results := make([]string, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			v, err, _ := c.GetOrCompute(42, func() (string, error) {
				atomic.AddInt64(&computeCount, 1)
				return "computed-once", nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	if computeCount != 1 {
		t.Errorf("expected exactly 1 underlying compute, got %d", computeCount)
	}
	for i, r := range results {
		if r != "computed-once" {
			t.Errorf("worker %d got %q", i, r)
		}
	}
}

func TestFailedComputeIsNotCached(t *testing.T) {
	c := New[int, string](1<<20, func(string) int { return 1 }, strconv.Itoa)

	_, err, _ := c.GetOrCompute(7, func() (string, error) {
		return "", fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.Get(7); ok {
		t.Error("failed compute must not populate the cache")
	}

	v, err, _ := c.GetOrCompute(7, func() (string, error) {
		return "retried", nil
	})
	if err != nil || v != "retried" {
		t.Errorf("retry after failure should succeed, got (%q, %v)", v, err)
	}
}

func TestEmptySuccessfulResultIsCached(t *testing.T) {
	c := New[int, string](1<<20, func(string) int { return 1 }, strconv.Itoa)

	calls := 0
	for i := 0; i < 3; i++ {
		_, err, _ := c.GetOrCompute(1, func() (string, error) {
			calls++
			return "", nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("expected the empty result to be cached after first compute, got %d calls", calls)
	}
}

func TestEvictionRespectsBudget(t *testing.T) {
	c := New[int, string](10, func(v string) int { return len(v) }, strconv.Itoa)

	for i := 0; i < 5; i++ {
		v := "abcd"
		_, err, _ := c.GetOrCompute(i, func() (string, error) { return v, nil })
		if err != nil {
			t.Fatal(err)
		}
	}
	if c.used > c.budget+4 {
		t.Errorf("used (%d) should stay near budget (%d) after eviction", c.used, c.budget)
	}
}
