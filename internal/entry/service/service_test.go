package service

import (
	"context"
	"errors"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/daybook/daybook/internal/entry"
	"github.com/daybook/daybook/internal/entry/repository"
	"github.com/daybook/daybook/internal/insights"
)

var now = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

func intp(i int) *int                       { return &i }
func strp(s string) *string                 { return &s }
func tmpl(t entry.Template) *entry.Template { return &t }

type recorder struct {
	calls []string
}

func (r *recorder) EntryChanged(_ context.Context, ownerID, entryID string) error {
	r.calls = append(r.calls, ownerID+"/"+entryID)
	return nil
}

func newService(t *testing.T, opts ...Option) (Service, *repository.MemoryRepo) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	opts = append([]Option{WithClock(func() time.Time { return now }), WithLocation(time.UTC)}, opts...)
	return New(repo, opts...), repo
}

func TestCreateThenGet(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for m := entry.MinMood; m <= entry.MaxMood; m++ {
		e, err := svc.Create(ctx, "alice", Input{Content: "some words", Mood: intp(m)})
		require.NoError(t, err)
		require.Equal(t, e.CreatedAt, e.UpdatedAt)

		got, err := svc.Get(ctx, "alice", e.ID)
		require.NoError(t, err)
		require.Equal(t, m, got.Mood)
		require.Equal(t, "some words", got.Content)
		require.Equal(t, got.CreatedAt, got.UpdatedAt)
	}
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newService(t)
	e, err := svc.Create(context.Background(), "alice", Input{Title: strp("  "), Content: "x"})
	require.NoError(t, err)
	require.Equal(t, entry.DefaultMood, e.Mood)
	require.Equal(t, entry.TemplateFree, e.Template)
	require.Nil(t, e.Title)
	require.Equal(t, now, e.CreatedAt)
}

func TestCreateFiveMinute(t *testing.T) {
	svc, _ := newService(t)
	doc := entry.FiveMinute{Gratitude: [3]string{"tea", "", ""}, Improvement: "sleep earlier"}
	e, err := svc.Create(context.Background(), "alice", Input{FiveMinute: &doc})
	require.NoError(t, err)
	require.Equal(t, entry.TemplateFiveMinute, e.Template)
	require.Equal(t, doc, entry.ParseFiveMinute(e.Content))

	// serialized content is accepted as well
	e, err = svc.Create(context.Background(), "alice", Input{Template: tmpl(entry.TemplateFiveMinute), Content: doc.Serialize()})
	require.NoError(t, err)
	require.Equal(t, doc, entry.ParseFiveMinute(e.Content))
}

func TestFiveMinuteRawContentMustDecode(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	five := tmpl(entry.TemplateFiveMinute)
	for _, content := range []string{
		"my whole day in prose",
		`{"gratitude":["tea","",""]`,
		`{"gratitude":["tea","",""],"mood":5}`,
		`{"gratitude":["tea","",""]} trailing`,
	} {
		_, err := svc.Create(ctx, "alice", Input{Template: five, Content: content})
		require.ErrorIs(t, err, entry.ErrValidation, content)
	}
	list, err := repo.List(ctx, "alice", 0, 0)
	require.NoError(t, err)
	require.Empty(t, list)

	// valid documents are stored in canonical form
	e, err := svc.Create(ctx, "alice", Input{Template: five, Content: ` {"highlights":["swim","",""]} `})
	require.NoError(t, err)
	require.Equal(t, entry.FiveMinute{Highlights: [3]string{"swim", "", ""}}.Serialize(), e.Content)
	require.Equal(t, "swim", e.Preview())

	// a template-less update is checked against the stored template
	_, err = svc.Update(ctx, "alice", e.ID, Input{Content: "prose again"})
	require.ErrorIs(t, err, entry.ErrValidation)
	got, err := svc.Get(ctx, "alice", e.ID)
	require.NoError(t, err)
	require.Equal(t, e.Content, got.Content)

	// switching to free text is still allowed
	got, err = svc.Update(ctx, "alice", e.ID, Input{Template: tmpl(entry.TemplateFree), Content: "prose again"})
	require.NoError(t, err)
	require.Equal(t, entry.TemplateFree, got.Template)
}

func TestValidation(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	bad := []Input{
		{Content: ""},
		{Content: " \n\t"},
		{Content: "x", Mood: intp(0)},
		{Content: "x", Mood: intp(6)},
		{Content: "x", Template: tmpl("poem")},
		{Template: tmpl(entry.TemplateFree), FiveMinute: &entry.FiveMinute{}},
	}
	for _, in := range bad {
		_, err := svc.Create(ctx, "alice", in)
		require.ErrorIs(t, err, entry.ErrValidation)
	}
	list, err := repo.List(ctx, "alice", 0, 0)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUnauthorized(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", Input{Content: "x"})
	require.ErrorIs(t, err, entry.ErrUnauthorized)
	_, err = svc.Get(ctx, "", "id")
	require.ErrorIs(t, err, entry.ErrUnauthorized)
	_, err = svc.Today(ctx, " ", nil)
	require.ErrorIs(t, err, entry.ErrUnauthorized)
	_, err = svc.List(ctx, "", 0, 0)
	require.ErrorIs(t, err, entry.ErrUnauthorized)
	_, err = svc.Search(ctx, "", "x")
	require.ErrorIs(t, err, entry.ErrUnauthorized)
	_, err = svc.Update(ctx, "", "id", Input{Content: "x"})
	require.ErrorIs(t, err, entry.ErrUnauthorized)
	require.ErrorIs(t, svc.Delete(ctx, "", "id"), entry.ErrUnauthorized)
	_, err = svc.Insights(ctx, "", 30, nil)
	require.ErrorIs(t, err, entry.ErrUnauthorized)
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "alice", Input{Content: "Walk by the river"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", Input{Content: "Walk by the river"})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "alice", "")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Empty(t, found)

	found, err = svc.Search(ctx, "alice", "walk")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "alice", found[0].OwnerID)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	rec := &recorder{}
	svc, _ := newService(t, WithNotifier(rec))
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "alice", "does-not-exist"))
	_, err := svc.Get(ctx, "alice", "does-not-exist")
	require.ErrorIs(t, err, entry.ErrNotFound)
}

func TestForeignUpdateDoesNotMutate(t *testing.T) {
	rec := &recorder{}
	svc, _ := newService(t, WithNotifier(rec))
	ctx := context.Background()
	e, err := svc.Create(ctx, "alice", Input{Title: strp("mine"), Content: "original", Mood: intp(2)})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "bob", e.ID, Input{Content: "hijacked", Mood: intp(5)})
	require.ErrorIs(t, err, entry.ErrNotFound)

	got, err := svc.Get(ctx, "alice", e.ID)
	require.NoError(t, err)
	require.Equal(t, "original", got.Content)
	require.Equal(t, 2, got.Mood)
	require.Equal(t, "mine", *got.Title)
	require.Equal(t, []string{"alice/" + e.ID}, rec.calls)
}

func TestUpdate(t *testing.T) {
	clock := now
	rec := &recorder{}
	svc, _ := newService(t, WithNotifier(rec), WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	e, err := svc.Create(ctx, "alice", Input{FiveMinute: &entry.FiveMinute{Affirmations: "calm"}})
	require.NoError(t, err)

	clock = now.Add(time.Hour)
	got, err := svc.Update(ctx, "alice", e.ID, Input{FiveMinute: &entry.FiveMinute{Affirmations: "steady"}, Mood: intp(4)})
	require.NoError(t, err)
	require.Equal(t, entry.TemplateFiveMinute, got.Template)
	require.Equal(t, "steady", entry.ParseFiveMinute(got.Content).Affirmations)
	require.Equal(t, now, got.CreatedAt)
	require.Equal(t, clock, got.UpdatedAt)
	require.Len(t, rec.calls, 2)

	// a template-less update keeps the stored template
	got, err = svc.Update(ctx, "alice", e.ID, Input{Content: got.Content})
	require.NoError(t, err)
	require.Equal(t, entry.TemplateFiveMinute, got.Template)
	require.Equal(t, entry.DefaultMood, got.Mood)
}

func TestTodayUsesCalendarDay(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &entry.Entry{ID: "late", OwnerID: "alice", Content: "late night", Mood: 3, CreatedAt: time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)}))

	got, err := svc.Today(ctx, "alice", nil)
	require.NoError(t, err)
	require.Equal(t, "late", got.ID)

	// 02:00 UTC is still the 18th in New York
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	_, err = svc.Today(ctx, "alice", ny)
	require.ErrorIs(t, err, entry.ErrNotFound)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	got, err = svc.Today(ctx, "alice", berlin)
	require.NoError(t, err)
	require.Equal(t, "late", got.ID)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	_, err = svc.Today(ctx, "alice", tokyo)
	require.ErrorIs(t, err, entry.ErrNotFound)
}

func TestSaveToday(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	first, created, err := svc.SaveToday(ctx, "alice", Input{Content: "morning"}, nil)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.SaveToday(ctx, "alice", Input{Content: "evening", Mood: intp(5)}, nil)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "evening", second.Content)

	list, err := repo.List(ctx, "alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestListLimits(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	for i := 0; i < 120; i++ {
		require.NoError(t, repo.Create(ctx, &entry.Entry{OwnerID: "alice", Content: "x", Mood: 3, CreatedAt: now.Add(-time.Duration(i) * time.Hour)}))
	}
	list, err := svc.List(ctx, "alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, DefaultListLimit)

	list, err = svc.List(ctx, "alice", 1000, 0)
	require.NoError(t, err)
	require.Len(t, list, MaxListLimit)

	list, err = svc.List(ctx, "alice", 10, 115)
	require.NoError(t, err)
	require.Len(t, list, 5)

	_, err = svc.List(ctx, "alice", 10, -1)
	require.ErrorIs(t, err, entry.ErrValidation)
}

func TestInsights(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	for i, mood := range []int{1, 1, 3, 5, 5, 5} {
		require.NoError(t, repo.Create(ctx, &entry.Entry{OwnerID: "alice", Content: "x", Mood: mood, CreatedAt: now.AddDate(0, 0, i-5)}))
	}
	// outside the 7 day window
	require.NoError(t, repo.Create(ctx, &entry.Entry{OwnerID: "alice", Content: "x", Mood: 1, CreatedAt: now.AddDate(0, 0, -20)}))

	sum, err := svc.Insights(ctx, "alice", 7, nil)
	require.NoError(t, err)
	require.Equal(t, 6, sum.TotalEntries)
	require.Equal(t, [5]int{2, 0, 1, 0, 3}, sum.Distribution)
	require.Equal(t, 6, sum.Streak)
	require.Equal(t, insights.TrendUp, sum.Trend)

	sum, err = svc.Insights(ctx, "alice", 30, nil)
	require.NoError(t, err)
	require.Equal(t, 7, sum.TotalEntries)

	_, err = svc.Insights(ctx, "alice", 14, nil)
	require.ErrorIs(t, err, entry.ErrValidation)
}

func TestInsightsCacheInvalidatedOnWrite(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	cache := insights.NewRedisCache(redis.NewClient(&redis.Options{Addr: m.Addr()}), "", time.Hour)

	svc, _ := newService(t, WithCache(cache), WithNotifier(cache))
	ctx := context.Background()
	_, err = svc.Create(ctx, "alice", Input{Content: "x", Mood: intp(4)})
	require.NoError(t, err)

	sum, err := svc.Insights(ctx, "alice", 30, nil)
	require.NoError(t, err)
	require.Equal(t, 1, sum.TotalEntries)

	cached, err := cache.Get(ctx, "alice", 30, "UTC", "2026-10-19")
	require.NoError(t, err)
	require.NotNil(t, cached)

	_, err = svc.Create(ctx, "alice", Input{Content: "y", Mood: intp(2)})
	require.NoError(t, err)
	cached, err = cache.Get(ctx, "alice", 30, "UTC", "2026-10-19")
	require.NoError(t, err)
	require.Nil(t, cached)

	sum, err = svc.Insights(ctx, "alice", 30, nil)
	require.NoError(t, err)
	require.Equal(t, 2, sum.TotalEntries)
	require.Equal(t, 3.0, sum.AverageMood)
}

func TestInsightsCacheKeepsZonesApart(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	cache := insights.NewRedisCache(redis.NewClient(&redis.Options{Addr: m.Addr()}), "", time.Hour)
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	svc, repo := newService(t, WithCache(cache), WithNotifier(cache))
	ctx := context.Background()
	// 05:00 and 20:00 on 2026-10-18 in Los Angeles, two separate days in UTC
	require.NoError(t, repo.Create(ctx, &entry.Entry{OwnerID: "alice", Content: "a", Mood: 2, CreatedAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}))
	require.NoError(t, repo.Create(ctx, &entry.Entry{OwnerID: "alice", Content: "b", Mood: 4, CreatedAt: time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)}))

	utc, err := svc.Insights(ctx, "alice", 30, time.UTC)
	require.NoError(t, err)
	require.Equal(t, 2, utc.Streak)

	local, err := svc.Insights(ctx, "alice", 30, la)
	require.NoError(t, err)
	require.Equal(t, 1, local.Streak)
	require.Len(t, local.Points, 2)
	require.Equal(t, "2026-10-18", local.Points[0].Date)
	require.Equal(t, "2026-10-18", local.Points[1].Date)

	// both summaries stay cached side by side
	again, err := svc.Insights(ctx, "alice", 30, time.UTC)
	require.NoError(t, err)
	require.Equal(t, utc, again)
	cached, err := cache.Get(ctx, "alice", 30, "America/Los_Angeles", "2026-10-19")
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, 1, cached.Streak)
}

func TestInsightsCacheDownStillAnswers(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	cache := insights.NewRedisCache(redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1}), "", time.Hour)
	m.Close()

	svc, _ := newService(t, WithCache(cache))
	ctx := context.Background()
	_, err = svc.Create(ctx, "alice", Input{Content: "x"})
	require.NoError(t, err)

	sum, err := svc.Insights(ctx, "alice", 7, nil)
	require.NoError(t, err)
	require.Equal(t, 1, sum.TotalEntries)
}

type failingRepo struct{ repository.Repository }

func (failingRepo) Create(context.Context, *entry.Entry) error { return errors.New("disk full") }

func TestStoreFailureIsWrapped(t *testing.T) {
	rec := &recorder{}
	svc := New(failingRepo{repository.NewMemoryRepo()}, WithNotifier(rec))
	_, err := svc.Create(context.Background(), "alice", Input{Content: "x"})
	require.ErrorIs(t, err, entry.ErrStore)
	require.Contains(t, err.Error(), "disk full")
	require.Empty(t, rec.calls)
}

func TestNotifiersFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	boom := NotifierFunc(func(context.Context, string, string) error { return errors.New("boom") })
	err := Notifiers{a, boom, b}.EntryChanged(context.Background(), "alice", "e1")
	require.EqualError(t, err, "boom")
	require.Equal(t, []string{"alice/e1"}, a.calls)
	require.Equal(t, []string{"alice/e1"}, b.calls)
}
