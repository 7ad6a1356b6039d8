package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newStreamServer serves a canned OpenAI-style SSE stream.
func newStreamServer(t *testing.T, fragments []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer does not support flushing")
		}
		for _, fragment := range fragments {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"created\":0,\"model\":\"test\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", fragment)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: baseURL + "/v1",
		Model:   "test-model",
	})
}

func TestStreamChatDeliversFragmentsInOrder(t *testing.T) {
	server := newStreamServer(t, []string{"Hel", "lo"})
	defer server.Close()

	client := newTestClient(server.URL)
	stop := NewStopSignal()

	var received []string
	for fragment := range client.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.7, stop) {
		received = append(received, fragment)
	}

	if len(received) != 2 || received[0] != "Hel" || received[1] != "lo" {
		t.Fatalf("expected [Hel lo], got %v", received)
	}
}

func TestStreamChatStopsAfterSignal(t *testing.T) {
	server := newStreamServer(t, []string{"A", "B"})
	defer server.Close()

	client := newTestClient(server.URL)
	stop := NewStopSignal()

	var received []string
	for fragment := range client.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.7, stop) {
		received = append(received, fragment)
		stop.Stop()
	}

	if len(received) != 1 || received[0] != "A" {
		t.Fatalf("expected only [A] after cancellation, got %v", received)
	}
}

func TestStreamChatEmitsErrorFragmentOnTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stop := NewStopSignal()

	var received []string
	for fragment := range client.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.7, stop) {
		received = append(received, fragment)
	}

	if len(received) != 1 {
		t.Fatalf("expected exactly one synthetic fragment, got %v", received)
	}
	if !strings.HasPrefix(received[0], "\n[ERROR] ") {
		t.Errorf("fragment should carry the error marker, got %q", received[0])
	}
}

func TestStreamChatSwallowsFailureWhenAlreadyStopped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stop := NewStopSignal()
	stop.Stop()

	var received []string
	for fragment := range client.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.7, stop) {
		received = append(received, fragment)
	}

	if len(received) != 0 {
		t.Fatalf("failure during cancellation should be swallowed, got %v", received)
	}
}

func TestStopSignalIsMonotonic(t *testing.T) {
	stop := NewStopSignal()
	if stop.Stopped() {
		t.Fatal("fresh signal should not be set")
	}
	stop.Stop()
	stop.Stop()
	if !stop.Stopped() {
		t.Fatal("signal should stay set once stopped")
	}
}

func TestTemperatureLevelMapping(t *testing.T) {
	tests := []struct {
		level TemperatureLevel
		want  float32
	}{
		{LevelLow, 0.2},
		{LevelMedium, 0.7},
		{LevelHigh, 1.2},
		{TemperatureLevel("bogus"), 0.7},
	}

	for _, tt := range tests {
		if got := tt.level.Temperature(); got != tt.want {
			t.Errorf("level %q: expected %v, got %v", tt.level, tt.want, got)
		}
	}
}
