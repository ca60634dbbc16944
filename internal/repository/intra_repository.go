package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/codam/web-greeter/internal/models"
	appErrors "github.com/codam/web-greeter/pkg/errors"
)

const (
	intraPerPage = 100
	// items further ahead than this are dropped after fetching
	intraLookAhead = 21 * 24 * time.Hour
	// requested range of end_at values
	intraFetchRange = 365 * 24 * time.Hour
	maxErrorBody    = 512
)

// IntraRepositoryConfig configures access to the campus API.
type IntraRepositoryConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	CampusID     int
	RateLimit    float64
	Timeout      time.Duration
}

// IntraRepository fetches events, exams and users from the 42 intra API.
type IntraRepository struct {
	baseURL  string
	campusID int
	client   *http.Client
	limiter  *rate.Limiter
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewIntraRepository builds a repository authenticating with OAuth2 client credentials.
func NewIntraRepository(ctx context.Context, cfg IntraRepositoryConfig, logger *zap.Logger) *IntraRepository {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	oauth := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/oauth/token",
		Scopes:       []string{"public"},
	}
	client := oauth.Client(ctx)
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return newIntraRepository(baseURL, cfg.CampusID, client, cfg.RateLimit, logger)
}

func newIntraRepository(baseURL string, campusID int, client *http.Client, perSecond float64, logger *zap.Logger) *IntraRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &IntraRepository{
		baseURL:  baseURL,
		campusID: campusID,
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// FetchEvents returns the campus events ending within the next year and
// starting within the look-ahead window, sorted by begin time.
func (r *IntraRepository) FetchEvents(ctx context.Context) ([]models.Event, error) {
	kinds := make([]string, 0, len(models.DisplayedEventKinds))
	for _, k := range models.DisplayedEventKinds {
		kinds = append(kinds, string(k))
	}
	params := url.Values{}
	params.Set("range[end_at]", r.dateRange())
	params.Set("filter[kind]", strings.Join(kinds, ","))

	events, err := fetchAll[models.Event](ctx, r, fmt.Sprintf("/v2/campus/%d/events", r.campusID), params)
	if err != nil {
		return nil, err
	}

	horizon := r.now().Add(intraLookAhead)
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if err := r.validate.Struct(ev); err != nil {
			r.logger.Warn("skipping invalid event", zap.Int("id", ev.ID), zap.Error(err))
			continue
		}
		if ev.BeginAt.After(horizon) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BeginAt.Before(out[j].BeginAt) })
	return out, nil
}

// FetchExams returns the visible campus exams, filtered and sorted like events.
func (r *IntraRepository) FetchExams(ctx context.Context) ([]models.Exam, error) {
	params := url.Values{}
	params.Set("range[end_at]", r.dateRange())
	params.Set("filter[visible]", "true")

	exams, err := fetchAll[models.Exam](ctx, r, fmt.Sprintf("/v2/campus/%d/exams", r.campusID), params)
	if err != nil {
		return nil, err
	}

	horizon := r.now().Add(intraLookAhead)
	out := make([]models.Exam, 0, len(exams))
	for _, ex := range exams {
		if err := r.validate.Struct(ex); err != nil {
			r.logger.Warn("skipping invalid exam", zap.Int("id", ex.ID), zap.Error(err))
			continue
		}
		if ex.BeginAt.After(horizon) {
			continue
		}
		ex.Normalize()
		out = append(out, ex)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BeginAt.Before(out[j].BeginAt) })
	return out, nil
}

// FetchUser looks a user up by login. Filtering is faster than fetching
// /v2/users/:login on the intra API. Returns ErrNotFound for unknown logins.
func (r *IntraRepository) FetchUser(ctx context.Context, login string) (*models.IntraUser, error) {
	params := url.Values{}
	params.Set("filter[login]", login)

	var users []models.IntraUser
	if _, err := r.get(ctx, "/v2/users", params, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found on intra")
	}
	return &users[0], nil
}

func (r *IntraRepository) dateRange() string {
	now := r.now().UTC()
	return now.Format(time.RFC3339) + "," + now.Add(intraFetchRange).Format(time.RFC3339)
}

// fetchAll reads the first page to learn the total, then requests the
// remaining pages concurrently. Any failing page aborts the whole fetch.
func fetchAll[T any](ctx context.Context, r *IntraRepository, path string, params url.Values) ([]T, error) {
	first := make([]T, 0)
	header, err := r.get(ctx, path, withPage(params, 1), &first)
	if err != nil {
		return nil, err
	}

	pages := pageCount(header, len(first))
	r.logger.Debug("retrieving intra items", zap.String("path", path), zap.Int("pages", pages))
	if pages <= 1 {
		return first, nil
	}

	results := make([][]T, pages)
	results[0] = first
	g, gctx := errgroup.WithContext(ctx)
	for page := 2; page <= pages; page++ {
		page := page
		g.Go(func() error {
			items := make([]T, 0)
			if _, err := r.get(gctx, path, withPage(params, page), &items); err != nil {
				return fmt.Errorf("page %d/%d: %w", page, pages, err)
			}
			results[page-1] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []T
	for _, items := range results {
		out = append(out, items...)
	}
	return out, nil
}

func withPage(params url.Values, page int) url.Values {
	out := url.Values{}
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	out.Set("page[number]", strconv.Itoa(page))
	out.Set("page[size]", strconv.Itoa(intraPerPage))
	return out
}

func pageCount(header http.Header, firstLen int) int {
	total, err := strconv.Atoi(header.Get("X-Total"))
	if err != nil || total <= 0 {
		return 1
	}
	perPage, err := strconv.Atoi(header.Get("X-Per-Page"))
	if err != nil || perPage <= 0 {
		perPage = intraPerPage
	}
	if firstLen >= total {
		return 1
	}
	return (total + perPage - 1) / perPage
}

func (r *IntraRepository) get(ctx context.Context, path string, params url.Values, dest interface{}) (http.Header, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := r.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, appErrors.WithCause(appErrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, appErrors.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, appErrors.WithCause(appErrors.ErrUpstream,
			fmt.Errorf("%s %s: %s", path, resp.Status, strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return nil, appErrors.WithCause(appErrors.ErrUpstream, fmt.Errorf("decode %s: %w", path, err))
	}
	return resp.Header, nil
}
