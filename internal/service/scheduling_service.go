package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/codam/web-greeter/internal/dto"
	"github.com/codam/web-greeter/internal/models"
	"github.com/codam/web-greeter/internal/schedule"
	appErrors "github.com/codam/web-greeter/pkg/errors"
	"github.com/codam/web-greeter/pkg/hostname"
	"github.com/codam/web-greeter/pkg/jobs"
)

// Cache keys used by the scheduling service.
const (
	CacheKeyEvents          = "events"
	CacheKeyExams           = "exams"
	CacheKeyLastCacheChange = "last-cache-change"
	CacheKeyExamModeHosts   = "exam-mode-hosts"
	cacheKeyUserImagePrefix = "user-image:"
)

const (
	defaultScheduleTTL      = 900 * time.Second
	defaultExamModeHostsTTL = 10 * time.Second

	noExamsRunningMessage   = "No exams are currently running"
	examModeDisabledMessage = "Exam mode is disabled"
)

// ScheduleSource is the upstream provider of campus schedule data.
type ScheduleSource interface {
	FetchEvents(ctx context.Context) ([]models.Event, error)
	FetchExams(ctx context.Context) ([]models.Exam, error)
	FetchUser(ctx context.Context, login string) (*models.IntraUser, error)
}

// MessageSource yields the broadcast message for a hostname.
type MessageSource interface {
	ForHost(hostname string) string
}

// SchedulingServiceParams groups the dependencies of SchedulingService. A nil
// Source means no data source is configured.
type SchedulingServiceParams struct {
	Source           ScheduleSource
	Cache            *CacheService
	Resolver         hostname.Resolver
	Messages         MessageSource
	Hosts            *HostRegistry
	Metrics          *MetricsService
	Logger           *zap.Logger
	TTL              time.Duration
	ExamModeHostsTTL time.Duration
	// ExamModeDisabled keeps every workstation out of exam mode.
	ExamModeDisabled bool
	Now              func() time.Time
}

// SchedulingService serves per-host schedule snapshots from a TTL cache that
// is filled lazily from the data source.
type SchedulingService struct {
	source   ScheduleSource
	cache    *CacheService
	resolver hostname.Resolver
	messages MessageSource
	hosts    *HostRegistry
	metrics  *MetricsService
	logger   *zap.Logger
	ttl      time.Duration
	hostsTTL time.Duration
	examsOff bool
	now      func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	lastGood   map[string]interface{}
	lastChange time.Time
}

// NewSchedulingService constructs a SchedulingService.
func NewSchedulingService(params SchedulingServiceParams) *SchedulingService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.TTL <= 0 {
		params.TTL = defaultScheduleTTL
	}
	if params.ExamModeHostsTTL <= 0 {
		params.ExamModeHostsTTL = defaultExamModeHostsTTL
	}
	if params.Hosts == nil {
		params.Hosts = NewHostRegistry()
	}
	if params.Resolver == nil {
		params.Resolver = hostname.NewFormula(hostname.DefaultTokens)
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &SchedulingService{
		source:   params.Source,
		cache:    params.Cache,
		resolver: params.Resolver,
		messages: params.Messages,
		hosts:    params.Hosts,
		metrics:  params.Metrics,
		logger:   params.Logger,
		ttl:      params.TTL,
		hostsTTL: params.ExamModeHostsTTL,
		examsOff: params.ExamModeDisabled,
		now:      params.Now,
		lastGood: make(map[string]interface{}),
	}
}

// DataSourceConfigured reports whether the service can fetch from upstream.
func (s *SchedulingService) DataSourceConfigured() bool {
	return s.source != nil
}

// KnownHosts returns the number of registered workstations.
func (s *SchedulingService) KnownHosts() int {
	return s.hosts.Len()
}

// Resolver exposes the hostname resolver used for exam admission.
func (s *SchedulingService) Resolver() hostname.Resolver {
	return s.resolver
}

// Config builds the snapshot for host. ErrNoData is returned only when
// neither events nor exams can be produced.
func (s *SchedulingService) Config(ctx context.Context, host string) (*models.ScheduleSnapshot, error) {
	events, evErr := s.events(ctx)
	exams, exErr := s.exams(ctx)
	if evErr != nil && exErr != nil {
		s.logger.Info("no data to return for config request", zap.String("hostname", host))
		return nil, appErrors.ErrNoData
	}
	if evErr != nil {
		events = []models.Event{}
	}
	if exErr != nil {
		exams = []models.Exam{}
	}

	s.registerHost(ctx, host)

	snapshot := &models.ScheduleSnapshot{
		Hostname:     host,
		Events:       events,
		Exams:        exams,
		ExamsForHost: s.examsForHost(ctx, exams, host),
		FetchTime:    s.lastCacheChange(ctx),
	}
	if s.messages != nil {
		snapshot.Message = s.messages.ForHost(host)
	}
	return snapshot, nil
}

// ExamModeHosts lists every registered host that admits a currently running
// exam. The boolean reports a cache hit.
func (s *SchedulingService) ExamModeHosts(ctx context.Context) (*dto.ExamModeHostsResponse, bool, error) {
	var cached dto.ExamModeHostsResponse
	if hit, _ := s.cache.Get(ctx, CacheKeyExamModeHosts, &cached); hit {
		if cached.ExamModeHosts == nil {
			cached.ExamModeHosts = []string{}
		}
		return &cached, true, nil
	}

	exams, err := s.exams(ctx)
	if err != nil {
		return nil, false, err
	}

	resp := &dto.ExamModeHostsResponse{ExamModeHosts: []string{}}
	current := schedule.CurrentExams(exams, s.now())
	if s.examsOff {
		resp.Message = examModeDisabledMessage
	} else if len(current) == 0 {
		resp.Message = noExamsRunningMessage
	} else {
		for _, host := range s.hosts.List() {
			ip, ok := s.resolver.HostnameToIP(ctx, host)
			if !ok {
				continue
			}
			for _, exam := range current {
				if schedule.IsAvailable(exam, ip) {
					resp.ExamModeHosts = append(resp.ExamModeHosts, host)
					break
				}
			}
		}
	}

	_ = s.cache.Set(ctx, CacheKeyExamModeHosts, resp, s.hostsTTL)
	return resp, false, nil
}

// UserImage resolves the profile picture URL for login. Lookup failures yield
// an empty string, never an error.
func (s *SchedulingService) UserImage(ctx context.Context, login string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "login is required")
	}
	if s.source == nil {
		return "", appErrors.ErrNoData
	}

	key := cacheKeyUserImagePrefix + login
	var url string
	if hit, _ := s.cache.Get(ctx, key, &url); hit {
		return url, nil
	}

	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		fetchCtx := context.WithoutCancel(ctx)
		user, err := s.source.FetchUser(fetchCtx, login)
		switch {
		case errors.Is(err, appErrors.ErrNotFound):
			s.logger.Debug("user not found on data source", zap.String("login", login))
			_ = s.cache.Set(fetchCtx, key, "", s.ttl)
			return "", nil
		case err != nil:
			s.logger.Warn("failed to fetch user image", zap.String("login", login), zap.Error(err))
			return "", nil
		}
		link := user.ImageURL()
		_ = s.cache.Set(fetchCtx, key, link, s.ttl)
		return link, nil
	})
	return v.(string), nil
}

// Refresh re-fetches the resource behind key regardless of the cache. The
// previous value stays cached when the fetch fails; the error is returned so
// callers can retry.
func (s *SchedulingService) Refresh(ctx context.Context, key string) error {
	if s.source == nil {
		return appErrors.ErrNoData
	}
	var err error
	switch key {
	case CacheKeyEvents:
		_, err = shared(s, key, func() ([]models.Event, error) { return refreshList(ctx, s, key, s.source.FetchEvents) })
	case CacheKeyExams:
		_, err = shared(s, key, func() ([]models.Exam, error) { return refreshList(ctx, s, key, s.source.FetchExams) })
	default:
		return fmt.Errorf("unknown refresh key %q", key)
	}
	return err
}

// HandleRefreshJob adapts Refresh to the jobs queue.
func (s *SchedulingService) HandleRefreshJob(ctx context.Context, job jobs.Job) error {
	return s.Refresh(ctx, job.Key)
}

func (s *SchedulingService) events(ctx context.Context) ([]models.Event, error) {
	return loadList(ctx, s, CacheKeyEvents, func(ctx context.Context) ([]models.Event, error) {
		return s.source.FetchEvents(ctx)
	})
}

func (s *SchedulingService) exams(ctx context.Context) ([]models.Exam, error) {
	return loadList(ctx, s, CacheKeyExams, func(ctx context.Context) ([]models.Exam, error) {
		return s.source.FetchExams(ctx)
	})
}

func (s *SchedulingService) examsForHost(ctx context.Context, exams []models.Exam, host string) []models.ExamForHost {
	if s.examsOff || host == hostname.Unknown {
		return []models.ExamForHost{}
	}
	ip, ok := s.resolver.HostnameToIP(ctx, host)
	if !ok {
		return []models.ExamForHost{}
	}
	return schedule.ExamsForHost(exams, ip)
}

// registerHost remembers host for exam-mode tracking. Names the resolver
// rejects are never stored.
func (s *SchedulingService) registerHost(ctx context.Context, host string) {
	if host == "" || host == hostname.Unknown {
		return
	}
	if _, ok := s.resolver.HostnameToIP(ctx, host); !ok {
		s.logger.Debug("ignoring unresolvable hostname", zap.String("hostname", host))
		return
	}
	if s.hosts.Add(host) {
		s.logger.Info("found new hostname", zap.String("hostname", host))
		s.metrics.SetKnownHosts(s.hosts.Len())
	}
}

func (s *SchedulingService) lastCacheChange(ctx context.Context) time.Time {
	var t time.Time
	if hit, _ := s.cache.Get(ctx, CacheKeyLastCacheChange, &t); hit && !t.IsZero() {
		return t
	}
	s.mu.RLock()
	t = s.lastChange
	s.mu.RUnlock()
	if t.IsZero() {
		return s.now().UTC()
	}
	return t
}

// LastCacheChange returns when the schedule was last refreshed successfully,
// or the zero time when it never was.
func (s *SchedulingService) LastCacheChange() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastChange
}

func (s *SchedulingService) markChanged(ctx context.Context) {
	now := s.now().UTC()
	s.mu.Lock()
	s.lastChange = now
	s.mu.Unlock()
	_ = s.cache.Set(ctx, CacheKeyLastCacheChange, now, s.ttl)
}

func (s *SchedulingService) remember(key string, value interface{}) {
	s.mu.Lock()
	s.lastGood[key] = value
	s.mu.Unlock()
}

func (s *SchedulingService) recall(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.lastGood[key]
	return v, ok
}

// loadList serves key from the cache, fetching it once (shared between
// concurrent callers) on a miss.
func loadList[T any](ctx context.Context, s *SchedulingService, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	var items []T
	if hit, _ := s.cache.Get(ctx, key, &items); hit {
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
	if s.source == nil {
		if last, ok := s.recall(key); ok {
			return last.([]T), nil
		}
		return nil, appErrors.ErrNoData
	}
	items, _ = shared(s, key, func() ([]T, error) {
		return refreshList(ctx, s, key, fetch)
	})
	return items, nil
}

func shared[T any](s *SchedulingService, key string, fn func() ([]T, error)) ([]T, error) {
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return fn()
	})
	items, _ := v.([]T)
	return items, err
}

// refreshList fetches key from upstream and caches the result. On failure
// the last good value (or an empty list) is cached instead and the fetch
// error is returned alongside it.
func refreshList[T any](ctx context.Context, s *SchedulingService, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	fetchCtx := context.WithoutCancel(ctx)
	start := time.Now()
	items, err := fetch(fetchCtx)
	s.metrics.ObserveUpstreamFetch(key, err, time.Since(start), s.now())

	if err != nil {
		s.logger.Error("failed to fetch from data source", zap.String("resource", key), zap.Error(err))
		if last, ok := s.recall(key); ok {
			items = last.([]T)
		} else {
			items = []T{}
		}
		_ = s.cache.Set(fetchCtx, key, items, s.ttl)
		return items, err
	}

	if items == nil {
		items = []T{}
	}
	s.logger.Info("refreshed schedule data", zap.String("resource", key), zap.Int("count", len(items)))
	s.remember(key, items)
	_ = s.cache.Set(fetchCtx, key, items, s.ttl)
	s.markChanged(fetchCtx)
	return items, nil
}
