// Package greeter implements the login screen client: it polls the schedule
// backend and decides whether the login, lock or exam-mode screen is shown.
package greeter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/codam/web-greeter/internal/models"
)

const (
	DefaultFetchInterval = 60 * time.Second
	maxSnapshotSize      = 16 << 20
)

// FetcherConfig configures a DataFetcher.
type FetcherConfig struct {
	// URL is an http(s) endpoint or a file:// path to data.json.
	URL      string
	Interval time.Duration
	Client   *http.Client
	Logger   *zap.Logger
	Debug    func(string)
}

// DataFetcher polls the schedule snapshot and keeps the latest accepted copy.
// Failures keep the previous snapshot.
type DataFetcher struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
	debug    func(string)

	seq atomic.Uint64

	mu       sync.RWMutex
	applied  uint64
	snapshot *models.ScheduleSnapshot
	subs     []chan *models.ScheduleSnapshot
}

// NewDataFetcher constructs a fetcher. Call Run to start polling.
func NewDataFetcher(cfg FetcherConfig) *DataFetcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultFetchInterval
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Debug == nil {
		cfg.Debug = func(string) {}
	}
	return &DataFetcher{
		url:      cfg.URL,
		interval: cfg.Interval,
		client:   cfg.Client,
		logger:   cfg.Logger,
		debug:    cfg.Debug,
	}
}

// Snapshot returns the latest accepted snapshot, or nil before the first success.
func (f *DataFetcher) Snapshot() *models.ScheduleSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot
}

// Subscribe returns a channel receiving every accepted snapshot. Slow
// readers only see the most recent one.
func (f *DataFetcher) Subscribe() <-chan *models.ScheduleSnapshot {
	ch := make(chan *models.ScheduleSnapshot, 1)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch
}

// Run fetches immediately and then on every interval until ctx is done.
func (f *DataFetcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	_ = f.Fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = f.Fetch(ctx)
		}
	}
}

// Fetch retrieves one snapshot. A response that finishes after a newer one
// was accepted is discarded.
func (f *DataFetcher) Fetch(ctx context.Context) error {
	seq := f.seq.Add(1)

	raw, err := f.read(ctx)
	if err != nil {
		f.logger.Debug("failed to fetch data", zap.String("url", f.url), zap.Error(err))
		f.debug("Failed to fetch data: " + err.Error())
		return err
	}

	snapshot, err := DecodeSnapshot(raw)
	if err != nil {
		f.logger.Debug("ignoring data", zap.String("url", f.url), zap.Error(err))
		f.debug(err.Error())
		return err
	}

	if !f.apply(seq, snapshot) {
		f.logger.Debug("discarding stale response", zap.Uint64("seq", seq))
	}
	return nil
}

func (f *DataFetcher) apply(seq uint64, snapshot *models.ScheduleSnapshot) bool {
	f.mu.Lock()
	if seq <= f.applied {
		f.mu.Unlock()
		return false
	}
	f.applied = seq
	f.snapshot = snapshot
	subs := append([]chan *models.ScheduleSnapshot(nil), f.subs...)
	f.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
	return true
}

func (f *DataFetcher) read(ctx context.Context) ([]byte, error) {
	if path, ok := strings.CutPrefix(f.url, "file://"); ok {
		return os.ReadFile(path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		// error bodies are decoded so the server's message is surfaced
		if _, derr := DecodeSnapshot(body); derr != nil {
			return nil, derr
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return body, nil
}

type snapshotEnvelope struct {
	models.ScheduleSnapshot
	Error string `json:"error"`
}

// DecodeSnapshot parses a snapshot body. Bodies carrying an "error" field are
// rejected; a missing message decodes as "".
func DecodeSnapshot(raw []byte) (*models.ScheduleSnapshot, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Error != "" {
		return nil, errors.New("error in data: " + env.Error)
	}
	s := env.ScheduleSnapshot
	if s.Events == nil {
		s.Events = []models.Event{}
	}
	if s.Exams == nil {
		s.Exams = []models.Exam{}
	}
	if s.ExamsForHost == nil {
		s.ExamsForHost = []models.ExamForHost{}
	}
	return &s, nil
}
