package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saratoga-data/menuharvest/config"
)

func testConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:           5 * time.Second,
		MaxRetries:        3,
		RetryBaseDelay:    time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             1000,
	}
}

func TestGetSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte("<html>menu</html>"))
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	body, err := c.Get(context.Background(), srv.URL, WithReferer("https://example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "<html>menu</html>", string(body))
	assert.Contains(t, gotUA, "Chrome/")
	assert.Contains(t, gotAccept, "text/html")
	assert.Equal(t, "https://example.com/", gotReferer)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	body, err := c.Get(context.Background(), srv.URL, NoCache())
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	_, err := c.Get(context.Background(), srv.URL, NoCache())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	// The error names how many attempts actually ran, not the retry cap.
	assert.ErrorContains(t, err, "after 1 attempt(s)")
}

func TestGetCachesRepeatedURLs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("doc"))
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	for i := 0; i < 3; i++ {
		body, err := c.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "doc", string(body))
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetPDFRejectsNonPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not found page that is long enough to pass the size check by padding padding padding padding</html>"))
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	_, err := c.GetPDF(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestGetPDFAcceptsMagicBytes(t *testing.T) {
	payload := append([]byte("%PDF-1.7\n"), make([]byte, 200)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	body, err := c.GetPDF(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, payload, body)
}

func TestNeedsBrowser(t *testing.T) {
	spa := []byte(`<html><head><script src="a.js"></script></head><body><div id="root"></div></body></html>`)
	assert.True(t, NeedsBrowser(spa))

	full := []byte(`<html><body><h1>Dinner Menu</h1><p>` + longText() + `</p></body></html>`)
	assert.False(t, NeedsBrowser(full))
}

func longText() string {
	s := ""
	for i := 0; i < 40; i++ {
		s += "house-made pasta with slow roasted tomatoes and basil "
	}
	return s
}
