package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crm-next/internal/config"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	block    bool

	mu      sync.Mutex
	order   *[]string
	stopped bool
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	if f.block {
		<-ctx.Done()
	}
	return nil
}

func (f *fakeService) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	return f.stopErr
}

func TestRunnerStopsInReverseOrderOnCancel(t *testing.T) {
	var order []string
	a := &fakeService{name: "http", block: true, order: &order}
	b := &fakeService{name: "worker", block: true, order: &order}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRunner(a, b).Run(ctx, time.Second, nil) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancel should exit cleanly, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop")
	}
	if strings.Join(order, ",") != "worker,http" {
		t.Fatalf("stop order want worker,http got %v", order)
	}
}

func TestRunnerReturnsStartFailure(t *testing.T) {
	failing := &fakeService{name: "worker", startErr: errors.New("redis unreachable")}
	other := &fakeService{name: "http", block: true}

	err := NewRunner(other, failing).Run(context.Background(), time.Second, nil)
	if err == nil || !strings.Contains(err.Error(), "worker: redis unreachable") {
		t.Fatalf("want wrapped start error got %v", err)
	}
	if !other.stopped {
		t.Fatalf("healthy service should be stopped after sibling failure")
	}
}

func TestRunnerJoinsStopErrors(t *testing.T) {
	svc := &fakeService{name: "http", stopErr: errors.New("shutdown timeout")}
	err := NewRunner(svc).Run(context.Background(), time.Second, nil)
	if err == nil || !strings.Contains(err.Error(), "stop http: shutdown timeout") {
		t.Fatalf("want stop error got %v", err)
	}
}

func TestBuildRunnerRejectsUnknownMode(t *testing.T) {
	if _, err := BuildRunner(&config.Config{}, "batch"); err == nil {
		t.Fatalf("unknown mode should fail")
	}
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("nil config should fail")
	}
}
