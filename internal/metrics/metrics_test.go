package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(18765)
	if srv == nil {
		t.Fatal("Start() returned nil for nonzero port")
	}
	defer srv.Stop(context.Background())

	time.Sleep(100 * time.Millisecond)

	SetIndexDocuments(3)
	SetIndexWords(42)
	IncPostings("unigram")
	FetchesTotal.WithLabelValues("ok").Inc()

	resp, err := http.Get("http://127.0.0.1:18765/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	text := string(body)
	for _, want := range []string{
		"webdex_index_documents 3",
		"webdex_index_words 42",
		"webdex_fetches_total",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestStart_DisabledWhenZero(t *testing.T) {
	if srv := Start(0); srv != nil {
		t.Error("Start(0) should return nil")
	}
}

func TestServer_StopNil(t *testing.T) {
	var srv *Server
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Stop on nil server should be a no-op, got %v", err)
	}
}
