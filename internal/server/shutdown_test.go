package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestShutdown_HooksRunInPriorityOrder(t *testing.T) {
	sd := NewShutdownHandler(time.Second)
	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	sd.RegisterHook("audit", PriorityAudit, record("audit"))
	sd.RegisterHook("http", PriorityHTTP, record("http"))
	sd.RegisterHook("fails", PriorityStores, func(context.Context) error { return errors.New("boom") })
	sd.RegisterHook("tracing", PriorityTracing, record("tracing"))

	sd.Shutdown()
	if !sd.WaitWithTimeout(time.Second) {
		t.Fatal("shutdown did not complete")
	}
	want := []string{"http", "tracing", "audit"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	sd := NewShutdownHandler(0)
	calls := 0
	sd.RegisterHook("once", 1, func(context.Context) error { calls++; return nil })
	sd.Shutdown()
	sd.Shutdown()
	sd.Wait()
	if calls != 1 {
		t.Errorf("hook ran %d times", calls)
	}
}

func TestShutdown_HookSeesDeadline(t *testing.T) {
	sd := NewShutdownHandler(50 * time.Millisecond)
	var hadDeadline bool
	sd.RegisterHook("deadline", 1, func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})
	sd.Shutdown()
	sd.Wait()
	if !hadDeadline {
		t.Error("hook context has no deadline")
	}
}

func TestServe_DrainsAndReportsReadiness(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	})}
	hs := NewHealthServer("")
	sd := NewShutdownHandler(time.Second)

	done := make(chan error, 1)
	go func() { done <- Serve(srv, ln, hs, sd) }()

	url := "http://" + ln.Addr().String()
	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()

	sd.Shutdown()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if rec, _ := serve(t, hs, "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready after shutdown: %d", rec.Code)
	}
}
