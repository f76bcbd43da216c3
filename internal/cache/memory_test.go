package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type bars struct {
	Symbol string    `json:"symbol"`
	Closes []float64 `json:"closes"`
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(10, 0)
	defer c.Close()
	ctx := context.Background()

	in := bars{Symbol: "AAPL", Closes: []float64{1, 2, 3}}
	if err := c.Set(ctx, "bars:AAPL", in, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	in.Closes[0] = 99

	var out bars
	if err := c.Get(ctx, "bars:AAPL", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Symbol != "AAPL" || out.Closes[0] != 1 {
		t.Errorf("got %+v, cached value must not alias the caller's", out)
	}

	if err := c.Get(ctx, "bars:MSFT", &out); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("err = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(10, 0)
	defer c.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Fatal(err)
	}
	var v int
	if err := c.Get(ctx, "k", &v); err != nil || v != 1 {
		t.Fatalf("Get = %d, %v", v, err)
	}
	now = now.Add(2 * time.Minute)
	if err := c.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("err = %v, want ErrCacheMiss after expiry", err)
	}
}

func TestMemoryCache_EvictsWhenFull(t *testing.T) {
	c := NewMemoryCache(2, 0)
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1, time.Minute)
	_ = c.Set(ctx, "b", 2, time.Hour)
	_ = c.Set(ctx, "c", 3, time.Hour)

	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	var v int
	if err := c.Get(ctx, "a", &v); !errors.Is(err, ErrCacheMiss) {
		t.Error("entry closest to expiry should be evicted")
	}
	if err := c.Get(ctx, "c", &v); err != nil || v != 3 {
		t.Errorf("newest entry missing: %d, %v", v, err)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache(0, time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Delete(ctx, "a")
	var v int
	if err := c.Get(ctx, "a", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("err = %v, want ErrCacheMiss", err)
	}
}
