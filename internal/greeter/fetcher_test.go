package greeter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codam/web-greeter/internal/models"
)

const snapshotBody = `{
	"hostname": "f1r1s1.codam.nl",
	"events": [],
	"exams": [],
	"exams_for_host": [{"id": 7, "name": "Exam", "begin_at": "2024-11-10T12:00:00Z", "end_at": "2024-11-10T15:00:00Z"}],
	"fetch_time": "2024-11-10T11:55:00Z",
	"message": "hello"
}`

func TestDataFetcherAcceptsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(snapshotBody))
	}))
	defer srv.Close()

	f := NewDataFetcher(FetcherConfig{URL: srv.URL})
	updates := f.Subscribe()

	require.NoError(t, f.Fetch(context.Background()))

	snapshot := f.Snapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, "hello", snapshot.Message)
	require.Len(t, snapshot.ExamsForHost, 1)
	assert.Equal(t, 7, snapshot.ExamsForHost[0].ID)

	select {
	case got := <-updates:
		assert.Same(t, snapshot, got)
	default:
		t.Fatal("subscriber was not notified")
	}
}

func TestDataFetcherIgnoresErrorBodies(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(snapshotBody))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "No data available", "status": "error"}`))
	}))
	defer srv.Close()

	var debug []string
	f := NewDataFetcher(FetcherConfig{URL: srv.URL, Debug: func(s string) { debug = append(debug, s) }})
	require.NoError(t, f.Fetch(context.Background()))
	first := f.Snapshot()

	err := f.Fetch(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data available")
	assert.Same(t, first, f.Snapshot())
	assert.Len(t, debug, 1)
}

func TestDataFetcherKeepsSnapshotOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(snapshotBody))
	}))
	f := NewDataFetcher(FetcherConfig{URL: srv.URL, Client: &http.Client{Timeout: time.Second}})
	require.NoError(t, f.Fetch(context.Background()))
	srv.Close()

	assert.Error(t, f.Fetch(context.Background()))
	assert.NotNil(t, f.Snapshot())
}

func TestDataFetcherReadsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hostname": "f1r1s1.codam.nl"}`), 0o600))

	f := NewDataFetcher(FetcherConfig{URL: "file://" + path})
	require.NoError(t, f.Fetch(context.Background()))

	snapshot := f.Snapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, "", snapshot.Message)
	assert.NotNil(t, snapshot.ExamsForHost)
	assert.NotNil(t, snapshot.Events)
}

func TestDataFetcherDiscardsStaleResponses(t *testing.T) {
	f := NewDataFetcher(FetcherConfig{URL: "file:///nonexistent"})
	newer := &models.ScheduleSnapshot{Message: "newer"}
	older := &models.ScheduleSnapshot{Message: "older"}

	assert.True(t, f.apply(2, newer))
	assert.False(t, f.apply(1, older))
	assert.Equal(t, "newer", f.Snapshot().Message)
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	_, err := DecodeSnapshot([]byte("<html>"))
	assert.Error(t, err)
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "Cluster *1* closes", StripMarkup("<p>Cluster <b>*1*</b> closes</p>"))
}
