package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/connectorstore/internal/models"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishFiltersDelivery(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishFilters("ballerinax", models.FilterOptions{Areas: []string{"Finance"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: filters.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"areas":["Finance"]`) || !strings.Contains(s, `"org":"ballerinax"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestRetainedEventReplayedToLateSubscriber(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	b.PublishFilters("ballerinax", models.FilterOptions{Areas: []string{"Old"}})
	b.PublishFilters("ballerinax", models.FilterOptions{Areas: []string{"New"}})
	b.PublishCatalogReloaded("ballerinax", 10)

	time.Sleep(50 * time.Millisecond)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, `"New"`) {
			t.Errorf("replayed %q, want latest filters", s)
		}
	case <-time.After(time.Second):
		t.Fatal("retained event not replayed")
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected extra message %q; catalog.reloaded is not retained", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRetainedFiltersAreKeptPerOrg(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	b.PublishFilters("ballerinax", models.FilterOptions{Areas: []string{"Finance"}})
	b.PublishFilters("wso2", models.FilterOptions{Areas: []string{"Integration"}})

	time.Sleep(50 * time.Millisecond)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var got []string
	for len(got) < 2 {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		case <-time.After(time.Second):
			t.Fatalf("replayed %d events, want 2", len(got))
		}
	}
	if !strings.Contains(got[0], `"org":"ballerinax"`) || !strings.Contains(got[0], `"Finance"`) {
		t.Errorf("first replay = %q, want ballerinax filters", got[0])
	}
	if !strings.Contains(got[1], `"org":"wso2"`) || !strings.Contains(got[1], `"Integration"`) {
		t.Errorf("second replay = %q, want wso2 filters", got[1])
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

// syncRecorder guards the recorder body, which the handler writes while the
// test reads.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(20 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishCatalogReloaded("ballerinax", 3)
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.String()
	if !strings.Contains(body, "event: catalog.reloaded") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, ": ping") {
		t.Errorf("handler output missing keep-alive: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.PublishFilters("x", models.FilterOptions{})
}
