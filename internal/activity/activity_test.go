package activity

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efebarandurmaz/phoenix/internal/transform"
)

func TestFeed_RecentNewestFirstAndBounded(t *testing.T) {
	f := NewFeed(3)
	for i := 1; i <= 5; i++ {
		f.Publish(Event{Kind: KindUpload, Value: i})
	}
	got := f.Recent(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []uint64{5, 4, 3} {
		if got[i].Seq != want {
			t.Errorf("got[%d].Seq = %d, want %d", i, got[i].Seq, want)
		}
	}
	if n := len(f.Recent(2)); n != 2 {
		t.Errorf("Recent(2) len = %d", n)
	}
	if f.Stats().FilesUploaded != 15 {
		t.Errorf("files = %d, want 15", f.Stats().FilesUploaded)
	}
}

func TestFeed_EmptyRecent(t *testing.T) {
	if got := NewFeed(0).Recent(10); len(got) != 0 {
		t.Fatalf("got %d events", len(got))
	}
}

func TestFeed_RecordTransformStats(t *testing.T) {
	f := NewFeed(10)
	ctx := context.Background()
	_ = f.RecordTransform(ctx, transform.LineageEvent{Filename: "a.cbl", TargetLanguage: "Go", Strategy: "default", Reduction: 40})
	_ = f.RecordTransform(ctx, transform.LineageEvent{Filename: "b.cbl", TargetLanguage: "React", Strategy: "renderer", Reduction: 20})
	_ = f.RecordTransform(ctx, transform.LineageEvent{Filename: "c.cbl", TargetLanguage: "Go", Strategy: "fallback", Reduction: 30})
	f.Publish(Event{Kind: KindAnalyze, Detail: "ai"})
	f.Publish(Event{Kind: KindAnalyze, Detail: "demo"})

	s := f.Stats()
	if s.Transforms != 3 || s.RendererTransforms != 1 {
		t.Errorf("transforms = %d renderer = %d", s.Transforms, s.RendererTransforms)
	}
	if s.AvgCodeReduction != 30 {
		t.Errorf("avg = %v, want 30", s.AvgCodeReduction)
	}
	if s.Analyses != 2 || s.AIAnalyses != 1 {
		t.Errorf("analyses = %d ai = %d", s.Analyses, s.AIAnalyses)
	}
	if len(s.TopTargets) != 2 || s.TopTargets[0] != (Count{Label: "Go", Count: 2}) {
		t.Errorf("top targets = %+v", s.TopTargets)
	}
	if ev := f.Recent(1)[0]; ev.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
}

func TestFeed_SubscribeAndCancel(t *testing.T) {
	f := NewFeed(10)
	ch, cancel := f.Subscribe()
	if f.Stats().Subscribers != 1 {
		t.Fatal("subscriber not counted")
	}
	f.Publish(Event{Kind: KindBatch, Detail: "wf-1"})
	select {
	case ev := <-ch:
		if ev.Kind != KindBatch || ev.Detail != "wf-1" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}
	if f.Stats().Subscribers != 0 {
		t.Error("subscriber not removed")
	}
}

func TestFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	f := NewFeed(10)
	_, cancel := f.Subscribe()
	defer cancel()
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			f.Publish(Event{Kind: KindUpload})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHandler_Snapshot(t *testing.T) {
	f := NewFeed(10)
	f.Publish(Event{Kind: KindUpload, SessionID: "s1", Value: 2})
	r := chi.NewRouter()
	f.Mount(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activity?limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body snapshot
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Events) != 1 || body.Events[0].SessionID != "s1" || body.Stats.Uploads != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestHandler_Stream(t *testing.T) {
	f := NewFeed(10)
	r := chi.NewRouter()
	f.Mount(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/activity/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if sc.Text() == "event: connected" {
			break
		}
	}
	// The handler subscribes before writing the connected event.
	f.Publish(Event{Kind: KindTransform, Filename: "x.cbl"})
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, "x.cbl") {
			return
		}
	}
	t.Fatalf("transform event not streamed: %v", sc.Err())
}

func TestHandler_StreamOutlivesWriteTimeout(t *testing.T) {
	f := NewFeed(10)
	r := chi.NewRouter()
	f.Mount(r)
	srv := httptest.NewUnstartedServer(r)
	srv.Config.WriteTimeout = 300 * time.Millisecond
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/activity/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if sc.Text() == "event: connected" {
			break
		}
	}
	time.Sleep(600 * time.Millisecond)
	f.Publish(Event{Kind: KindUpload, Filename: "late.cbl"})
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), "data: ") && strings.Contains(sc.Text(), "late.cbl") {
			return
		}
	}
	t.Fatalf("event after write timeout not streamed: %v", sc.Err())
}
