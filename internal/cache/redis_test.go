package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}

	addr, err := ctr.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}

	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, Prefix: "test"})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	in := bars{Symbol: "AAPL", Closes: []float64{1.5, 2.5}}
	if err := c.Set(ctx, "bars:AAPL", in, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var out bars
	if err := c.Get(ctx, "bars:AAPL", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Symbol != "AAPL" || len(out.Closes) != 2 || out.Closes[1] != 2.5 {
		t.Errorf("got %+v", out)
	}

	if err := c.Delete(ctx, "bars:AAPL"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Get(ctx, "bars:AAPL", &out); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("err = %v, want ErrCacheMiss", err)
	}
}
