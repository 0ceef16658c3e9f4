package refresher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"stocksearch/internal/stock"
)

type countingLoader struct {
	calls atomic.Int32
	err   error
}

func (c *countingLoader) GetStocks(ctx context.Context) ([]stock.Stock, error) {
	c.calls.Add(1)
	return nil, c.err
}

// go test -v --run TestSchedulerDisabled
func TestSchedulerDisabled(t *testing.T) {
	loader := &countingLoader{}
	s := NewScheduler(loader, 0, 0, nil)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled scheduler should return immediately")
	}
	if n := loader.calls.Load(); n != 0 {
		t.Errorf("expected no loads, got %d", n)
	}
}

// go test -v --run TestSchedulerRunsOnStartAndTick
func TestSchedulerRunsOnStartAndTick(t *testing.T) {
	loader := &countingLoader{err: errors.New("offline")}
	s := NewScheduler(loader, 20*time.Millisecond, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(70 * time.Millisecond)
	cancel()
	<-done

	// startup load plus at least two ticks, failures included
	if n := loader.calls.Load(); n < 3 {
		t.Errorf("expected at least 3 loads, got %d", n)
	}
}
