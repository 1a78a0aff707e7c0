package cache

import (
	"sync"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	c := New[string, int]()
	c.Put("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get = %d, %v", v, ok)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("value survived Delete")
	}
}

func TestDeleteFunc(t *testing.T) {
	c := New[string, int]()
	c.Put("p1", 1)
	c.Put("p2", 2)
	n := c.DeleteFunc(func(k string) bool { return k == "p2" })
	if n != 1 || c.Len() != 1 {
		t.Errorf("DeleteFunc removed %d, Len = %d", n, c.Len())
	}
}

func TestPutAt_RejectsAfterInvalidation(t *testing.T) {
	c := New[string, int]()
	gen := c.Generation()

	// An invalidation that finds nothing to remove still moves the stamp.
	c.Delete("missing")
	if c.PutAt("p1", 1, gen) {
		t.Fatal("PutAt stored a value built before invalidation")
	}
	if _, ok := c.Get("p1"); ok {
		t.Fatal("stale value cached")
	}

	gen = c.Generation()
	if !c.PutAt("p1", 2, gen) {
		t.Fatal("PutAt rejected a fresh value")
	}
	c.DeleteFunc(func(string) bool { return false })
	if c.PutAt("p2", 3, gen) {
		t.Error("PutAt ignored DeleteFunc")
	}
	if v, _ := c.Get("p1"); v != 2 {
		t.Errorf("p1 = %d", v)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put(j, i)
				c.Get(j)
				c.DeleteFunc(func(k int) bool { return k%7 == i })
			}
		}(i)
	}
	wg.Wait()
}
