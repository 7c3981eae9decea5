package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daybook/daybook/internal/entry"
	"github.com/daybook/daybook/internal/entry/repository"
	"github.com/daybook/daybook/internal/insights"
	"github.com/daybook/daybook/pkg/logger"
	"github.com/daybook/daybook/pkg/metrics"
)

const (
	DefaultListLimit = 50
	PastListLimit    = 100
	MaxListLimit     = 100
	SearchLimit      = 20
)

// Input carries the fields a client may set on create or update. A five-minute
// entry may arrive either as serialized Content or as a structured FiveMinute.
type Input struct {
	Title      *string
	Content    string
	Mood       *int
	Template   *entry.Template
	FiveMinute *entry.FiveMinute
}

// Service defines the journal operations used by the handler layer. Every
// method takes the authenticated owner id explicitly.
type Service interface {
	Create(ctx context.Context, ownerID string, in Input) (*entry.Entry, error)
	Get(ctx context.Context, ownerID, id string) (*entry.Entry, error)
	Today(ctx context.Context, ownerID string, loc *time.Location) (*entry.Entry, error)
	SaveToday(ctx context.Context, ownerID string, in Input, loc *time.Location) (e *entry.Entry, created bool, err error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]*entry.Entry, error)
	Search(ctx context.Context, ownerID, query string) ([]*entry.Entry, error)
	Update(ctx context.Context, ownerID, id string, in Input) (*entry.Entry, error)
	Delete(ctx context.Context, ownerID, id string) error
	Insights(ctx context.Context, ownerID string, days int, loc *time.Location) (insights.Summary, error)
}

// Notifier is told about every successful write so derived views (cached
// insights, listings) can be refreshed.
type Notifier interface {
	EntryChanged(ctx context.Context, ownerID, entryID string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ownerID, entryID string) error

func (f NotifierFunc) EntryChanged(ctx context.Context, ownerID, entryID string) error {
	return f(ctx, ownerID, entryID)
}

// Notifiers fans a change out to each notifier, returning the first error.
type Notifiers []Notifier

func (ns Notifiers) EntryChanged(ctx context.Context, ownerID, entryID string) error {
	var first error
	for _, n := range ns {
		if err := n.EntryChanged(ctx, ownerID, entryID); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type Option func(*journalService)

func WithNotifier(n Notifier) Option {
	return func(s *journalService) { s.notifier = n }
}

func WithCache(c insights.Cache) Option {
	return func(s *journalService) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *journalService) { s.now = now }
}

// WithLocation sets the calendar used when a request does not name one.
func WithLocation(loc *time.Location) Option {
	return func(s *journalService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New returns a Service over repo.
func New(repo repository.Repository, opts ...Option) Service {
	s := &journalService{repo: repo, now: time.Now, loc: time.Local}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(opts ...Option) Service {
	return New(repository.NewMemoryRepo(), opts...)
}

type journalService struct {
	repo     repository.Repository
	notifier Notifier
	cache    insights.Cache
	now      func() time.Time
	loc      *time.Location
}

func (s *journalService) location(loc *time.Location) *time.Location {
	if loc == nil {
		return s.loc
	}
	return loc
}

// storeErr logs a backend failure and hides it behind entry.ErrStore.
func (s *journalService) storeErr(op, ownerID string, err error) error {
	logger.Errorf("entry store %s failed (owner=%s): %v", op, ownerID, err)
	return fmt.Errorf("%w: %s: %w", entry.ErrStore, op, err)
}

func (s *journalService) changed(ctx context.Context, ownerID, id string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.EntryChanged(ctx, ownerID, id); err != nil {
		logger.Warnf("entry change notification failed (owner=%s entry=%s): %v", ownerID, id, err)
	}
}

func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, entry.ErrNotFound):
		result = "not_found"
	case errors.Is(err, entry.ErrValidation):
		result = "invalid"
	case errors.Is(err, entry.ErrUnauthorized):
		result = "unauthorized"
	default:
		result = "error"
	}
	metrics.EntryOperations.WithLabelValues(op, result).Inc()
}

func authorize(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return entry.ErrUnauthorized
	}
	return nil
}

// normalize validates in. fallback is the template to assume when the input
// names none. Raw five-minute content must decode strictly and is stored in
// its canonical form.
func normalize(in Input, fallback *entry.Template) (entry.Changes, error) {
	c := entry.Changes{Template: fallback}
	if in.Template != nil {
		t, err := entry.ParseTemplate(string(*in.Template))
		if err != nil {
			return c, err
		}
		c.Template = &t
	}

	c.Content = in.Content
	if in.FiveMinute != nil {
		if c.Template != nil && *c.Template != entry.TemplateFiveMinute {
			return c, fmt.Errorf("%w: structured content requires the %s template", entry.ErrValidation, entry.TemplateFiveMinute)
		}
		five := entry.TemplateFiveMinute
		c.Template = &five
		c.Content = in.FiveMinute.Serialize()
	}
	if strings.TrimSpace(c.Content) == "" {
		return c, fmt.Errorf("%w: content is required", entry.ErrValidation)
	}
	if in.FiveMinute == nil && c.Template != nil && *c.Template == entry.TemplateFiveMinute {
		doc, err := entry.DecodeFiveMinute(c.Content)
		if err != nil {
			return c, err
		}
		c.Content = doc.Serialize()
	}

	c.Mood = entry.DefaultMood
	if in.Mood != nil {
		c.Mood = *in.Mood
	}
	if err := entry.ValidateMood(c.Mood); err != nil {
		return c, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		title := strings.TrimSpace(*in.Title)
		c.Title = &title
	}
	return c, nil
}

func (s *journalService) Create(ctx context.Context, ownerID string, in Input) (e *entry.Entry, err error) {
	defer func() { observe("create", err) }()
	if err := authorize(ownerID); err != nil {
		return nil, err
	}
	free := entry.TemplateFree
	c, err := normalize(in, &free)
	if err != nil {
		return nil, err
	}
	now := s.now()
	e = &entry.Entry{
		OwnerID:   ownerID,
		Title:     c.Title,
		Content:   c.Content,
		Template:  *c.Template,
		Mood:      c.Mood,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, s.storeErr("create", ownerID, err)
	}
	s.changed(ctx, ownerID, e.ID)
	return e, nil
}

func (s *journalService) Get(ctx context.Context, ownerID, id string) (e *entry.Entry, err error) {
	defer func() { observe("get", err) }()
	if err := authorize(ownerID); err != nil {
		return nil, err
	}
	e, err = s.repo.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, entry.ErrNotFound) {
			return nil, entry.ErrNotFound
		}
		return nil, s.storeErr("get", ownerID, err)
	}
	return e, nil
}

// Today returns the entry created during the owner's current calendar day, or
// entry.ErrNotFound.
func (s *journalService) Today(ctx context.Context, ownerID string, loc *time.Location) (e *entry.Entry, err error) {
	defer func() { observe("today", err) }()
	if err := authorize(ownerID); err != nil {
		return nil, err
	}
	from := insights.Midnight(s.now(), s.location(loc))
	e, err = s.repo.LatestBetween(ctx, ownerID, from, from.AddDate(0, 0, 1))
	if err != nil {
		if errors.Is(err, entry.ErrNotFound) {
			return nil, entry.ErrNotFound
		}
		return nil, s.storeErr("today", ownerID, err)
	}
	return e, nil
}

// SaveToday updates today's entry when there is one and creates it otherwise.
func (s *journalService) SaveToday(ctx context.Context, ownerID string, in Input, loc *time.Location) (*entry.Entry, bool, error) {
	existing, err := s.Today(ctx, ownerID, loc)
	switch {
	case err == nil:
		e, err := s.Update(ctx, ownerID, existing.ID, in)
		return e, false, err
	case errors.Is(err, entry.ErrNotFound):
		e, err := s.Create(ctx, ownerID, in)
		return e, err == nil, err
	}
	return nil, false, err
}

func (s *journalService) List(ctx context.Context, ownerID string, limit, offset int) (list []*entry.Entry, err error) {
	defer func() { observe("list", err) }()
	if err := authorize(ownerID); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", entry.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	list, err = s.repo.List(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, s.storeErr("list", ownerID, err)
	}
	return list, nil
}

// Search never treats a blank query as "everything": it returns no entries.
func (s *journalService) Search(ctx context.Context, ownerID, query string) (list []*entry.Entry, err error) {
	defer func() { observe("search", err) }()
	if err := authorize(ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []*entry.Entry{}, nil
	}
	list, err = s.repo.Search(ctx, ownerID, query, SearchLimit)
	if err != nil {
		return nil, s.storeErr("search", ownerID, err)
	}
	return list, nil
}

// Update replaces the entry's mutable fields. The store treats a missing row
// as a no-op, so the entry is re-read and its absence reported as not found.
func (s *journalService) Update(ctx context.Context, ownerID, id string, in Input) (e *entry.Entry, err error) {
	defer func() { observe("update", err) }()
	if err := authorize(ownerID); err != nil {
		return nil, err
	}
	fallback, err := s.storedTemplate(ctx, ownerID, id, in)
	if err != nil {
		return nil, err
	}
	c, err := normalize(in, fallback)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ownerID, id, c, s.now()); err != nil {
		return nil, s.storeErr("update", ownerID, err)
	}
	e, err = s.repo.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, entry.ErrNotFound) {
			return nil, entry.ErrNotFound
		}
		return nil, s.storeErr("update", ownerID, err)
	}
	s.changed(ctx, ownerID, id)
	return e, nil
}

// storedTemplate returns the template an update without one keeps, so raw
// content can be checked against it. nil means the input names its own.
func (s *journalService) storedTemplate(ctx context.Context, ownerID, id string, in Input) (*entry.Template, error) {
	if in.Template != nil || in.FiveMinute != nil {
		return nil, nil
	}
	cur, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, entry.ErrNotFound) {
			return nil, entry.ErrNotFound
		}
		return nil, s.storeErr("update", ownerID, err)
	}
	return &cur.Template, nil
}

// Delete is idempotent; a missing or foreign id is not an error.
func (s *journalService) Delete(ctx context.Context, ownerID, id string) (err error) {
	defer func() { observe("delete", err) }()
	if err := authorize(ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return s.storeErr("delete", ownerID, err)
	}
	s.changed(ctx, ownerID, id)
	return nil
}

// Insights summarizes the trailing window of days. Cache failures are logged
// and otherwise ignored.
func (s *journalService) Insights(ctx context.Context, ownerID string, days int, loc *time.Location) (sum insights.Summary, err error) {
	defer func() { observe("insights", err) }()
	if err := authorize(ownerID); err != nil {
		return insights.Empty(days), err
	}
	if !insights.ValidWindow(days) {
		return insights.Empty(days), fmt.Errorf("%w: days must be one of %v", entry.ErrValidation, insights.Windows)
	}
	loc = s.location(loc)
	now := s.now()
	day := insights.Midnight(now, loc).Format("2006-01-02")

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, ownerID, days, loc.String(), day)
		switch {
		case err != nil:
			metrics.InsightsCache.WithLabelValues("error").Inc()
			logger.Warnf("insights cache read failed (owner=%s): %v", ownerID, err)
		case cached != nil:
			metrics.InsightsCache.WithLabelValues("hit").Inc()
			return *cached, nil
		default:
			metrics.InsightsCache.WithLabelValues("miss").Inc()
		}
	}

	list, err := s.repo.Since(ctx, ownerID, insights.WindowStart(now, days, loc))
	if err != nil {
		return insights.Empty(days), s.storeErr("insights", ownerID, err)
	}
	samples := make([]insights.Sample, 0, len(list))
	for _, e := range list {
		samples = append(samples, insights.Sample{Mood: e.Mood, CreatedAt: e.CreatedAt})
	}
	sum = insights.Summarize(samples, days, loc)

	if s.cache != nil {
		if err := s.cache.Put(ctx, ownerID, loc.String(), day, sum); err != nil {
			logger.Warnf("insights cache write failed (owner=%s): %v", ownerID, err)
		}
	}
	return sum, nil
}
