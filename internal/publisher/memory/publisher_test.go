package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kbsearch/crawl-worker/internal/publisher"
)

func TestPublisherStoresEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	err := pub.Publish(context.Background(), publisher.Event{JobID: "job-1", Status: "succeeded"})
	if err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}
	err = pub.Publish(context.Background(), publisher.Event{JobID: "job-2", Status: "failed"})
	if err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	events := pub.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].JobID != "job-1" || events[1].JobID != "job-2" {
		t.Fatalf("events not recorded correctly: %+v", events)
	}

	events[0].JobID = "modified"
	if pub.Events()[0].JobID == "modified" {
		t.Fatal("expected Events() to return a copy")
	}
}

func TestPublisherFailWith(t *testing.T) {
	t.Parallel()

	pub := New()
	wantErr := errors.New("broker unavailable")
	pub.FailWith(wantErr)

	err := pub.Publish(context.Background(), publisher.Event{JobID: "job-1"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if len(pub.Events()) != 0 {
		t.Fatalf("expected no events recorded, got %d", len(pub.Events()))
	}
}

func TestPublisherClose(t *testing.T) {
	t.Parallel()

	pub := New()
	if pub.Closed() {
		t.Fatal("expected new publisher to be open")
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !pub.Closed() {
		t.Fatal("expected publisher to report closed")
	}
}
