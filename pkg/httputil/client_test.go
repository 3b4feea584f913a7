package httputil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientSingletonPerTier(t *testing.T) {
	if Client(TierMedium) != Client(TierMedium) {
		t.Error("same tier must reuse one client")
	}
	if Client(TierFast) == Client(TierSlow) {
		t.Error("different tiers must not share a client")
	}
}

func TestClientTimeouts(t *testing.T) {
	testCases := []struct {
		name    string
		getFunc func() *http.Client
		want    time.Duration
	}{
		{"fast", FastClient, 5 * time.Second},
		{"medium", MediumClient, 30 * time.Second},
		{"slow for model completions", SlowClient, 60 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if c := tc.getFunc(); c.Timeout != tc.want {
				t.Errorf("timeout = %v, want %v", c.Timeout, tc.want)
			}
		})
	}
}

func TestClientRequestsSucceedOnSharedClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := MediumClient()
	for i := range 10 {
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		DrainAndClose(resp.Body)
	}
}

func TestReadResponseBody(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		maxSize int64
		wantLen int
	}{
		{"short body read fully", "hello world", 1024, 11},
		{"oversized body truncated", strings.Repeat("x", 1000), 100, 100},
		{"zero max falls back to default", "test", 0, 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadResponseBody(strings.NewReader(tc.input), tc.maxSize)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tc.wantLen {
				t.Errorf("len = %d, want %d", len(got), tc.wantLen)
			}
		})
	}
}

func TestReadErrorBodyBounded(t *testing.T) {
	// Upstream error pages can be arbitrarily large; the excerpt stays
	// within 1MB.
	large := strings.Repeat("error details ", 100000)

	got, err := ReadErrorBody(strings.NewReader(large))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > 1024*1024 {
		t.Errorf("error body = %d bytes, want <= 1MB", len(got))
	}
}

func TestDrainAndClose(t *testing.T) {
	r := &trackingReader{Reader: bytes.NewReader([]byte("leftover body"))}

	DrainAndClose(io.NopCloser(r))

	// The body must be read to EOF or the connection cannot be reused.
	if !r.fullyRead {
		t.Error("body was not drained")
	}
}

func TestDrainAndCloseNil(t *testing.T) {
	DrainAndClose(nil)
}

type trackingReader struct {
	io.Reader
	fullyRead bool
}

func (r *trackingReader) Read(p []byte) (n int, err error) {
	n, err = r.Reader.Read(p)
	if err == io.EOF {
		r.fullyRead = true
	}
	return
}

func BenchmarkSharedClient(b *testing.B) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := MediumClient()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp, _ := client.Get(server.URL)
		if resp != nil {
			DrainAndClose(resp.Body)
		}
	}
}
