package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Set("a", 1, 0)

	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("期望命中 a=1, got %d %v", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Fatalf("未写入的键不应命中")
	}
}

func TestExpiry(t *testing.T) {
	c := New[string, string](time.Minute)
	c.Set("k", "v", 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("过期项不应命中")
	}
	if c.Size() != 0 {
		t.Fatalf("过期项应在 Get 时被剔除, size=%d", c.Size())
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := New[int, string](time.Minute)
	c.Set(1, "a", 0)
	c.Set(2, "b", 0)

	c.Delete(1)
	if _, ok := c.Get(1); ok {
		t.Fatalf("删除后不应命中")
	}

	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("清空后应为空, size=%d", c.Size())
	}
}
