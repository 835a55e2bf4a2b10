package services

import (
	"context"
	"testing"
	"time"
)

func TestPatternEventHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewPatternEventHub()
	if hub.ClientCount() != 0 {
		t.Fatalf("new hub should have 0 clients, got %d", hub.ClientCount())
	}

	hub.Subscribe("client1")
	ch2 := hub.Subscribe("client2")
	if hub.ClientCount() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("nonexistent")
	if hub.ClientCount() != 2 {
		t.Errorf("unsubscribing nonexistent should not affect count, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("client2")
	if _, ok := <-ch2; ok {
		t.Error("unsubscribed channel should be closed")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}
}

func TestPatternEventHub_PublishMultipleClients(t *testing.T) {
	hub := NewPatternEventHub()
	ch1 := hub.Subscribe("client1")
	ch2 := hub.Subscribe("client2")

	hub.Publish(PatternEvent{AnalysisID: 7, Patterns: []string{"Connection timeout"}})

	for i, ch := range []<-chan PatternEvent{ch1, ch2} {
		select {
		case got := <-ch:
			if got.AnalysisID != 7 || len(got.Patterns) != 1 {
				t.Errorf("client%d: event = %+v", i+1, got)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client%d: timed out waiting for event", i+1)
		}
	}
}

func TestPatternEventHub_NonBlockingPublish(t *testing.T) {
	hub := NewPatternEventHub()
	hub.Subscribe("slow_client")

	for i := 0; i < 200; i++ {
		hub.Publish(PatternEvent{AnalysisID: uint(i)})
	}
}

func TestAnalyticsService_PublishesPatternEvents(t *testing.T) {
	svc, _ := newStubService(&stubSource{})
	hub := NewPatternEventHub()
	svc.SetEventHub(hub)
	events := hub.Subscribe("watcher")

	task := &PatternTask{AnalysisID: 11, Text: "connection timed out, then permission denied", OccurredAt: sourceNow}
	if err := svc.ProcessPatternTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessPatternTask() error = %v", err)
	}

	select {
	case got := <-events:
		if got.AnalysisID != 11 {
			t.Errorf("AnalysisID = %d, want 11", got.AnalysisID)
		}
		if len(got.Patterns) != 2 {
			t.Errorf("Patterns = %v, want 2 names", got.Patterns)
		}
		if !got.OccurredAt.Equal(sourceNow) {
			t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, sourceNow)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for pattern event")
	}

	if err := svc.ProcessPatternTask(context.Background(), &PatternTask{Text: "all good"}); err != nil {
		t.Fatalf("ProcessPatternTask() error = %v", err)
	}
	select {
	case got := <-events:
		t.Errorf("text without patterns published %+v", got)
	default:
	}
}

func TestPatternEventHub_Close(t *testing.T) {
	hub := NewPatternEventHub()
	ch := hub.Subscribe("client1")
	hub.Publish(PatternEvent{AnalysisID: 1})
	hub.Close()

	if got, ok := <-ch; !ok || got.AnalysisID != 1 {
		t.Errorf("buffered event should survive Close, got %+v ok=%v", got, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after Close, got %d", hub.ClientCount())
	}
	// Unsubscribe after Close must not double-close.
	hub.Unsubscribe("client1")
}
