package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type fakeService struct {
	startErr error
	block    bool
	stopped  atomic.Bool
}

func (f *fakeService) Name() string { return "fake" }

func (f *fakeService) Start(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return nil
	}
	return f.startErr
}

func (f *fakeService) Stop(ctx context.Context) error {
	f.stopped.Store(true)
	return nil
}

func TestRunnerStopsAllWhenOneFails(t *testing.T) {
	boom := errors.New("boom")
	failing := &fakeService{startErr: boom}
	blocking := &fakeService{block: true}

	err := NewRunner(nil, blocking, failing).Run(context.Background(), time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("run want boom got %v", err)
	}
	if !failing.stopped.Load() || !blocking.stopped.Load() {
		t.Fatalf("all services should be stopped")
	}
}

func TestRunnerCancelIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{block: true}
	done := make(chan error, 1)
	go func() {
		done <- NewRunner(nil, svc).Run(ctx, time.Second)
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancel should return nil, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runner did not stop")
	}
}

func TestRunnerRejectsEmpty(t *testing.T) {
	if err := NewRunner(nil).Run(context.Background(), time.Second); err == nil {
		t.Fatalf("empty runner should fail")
	}
}

func TestHTTPServiceServesAndStops(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	svc := NewHTTPService("127.0.0.1:0", mux)
	if err := svc.Listen(); err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewRunner(nil, svc).Run(ctx, time.Second)
	}()

	resp, err := http.Get("http://" + svc.Addr() + "/health")
	if err != nil {
		t.Fatalf("get health failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected body: %s", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("http service did not stop")
	}
}
