package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/daybook/daybook/internal/entry"
	"github.com/daybook/daybook/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	lastUpsert *models.User
	upsertErr  error
	getErr     error
	stored     *models.User
}

func (f *fakeRepo) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	f.lastUpsert = u
	now := time.Now().UTC()
	if f.lastUpsert.CreatedAt.IsZero() {
		f.lastUpsert.CreatedAt = now
	}
	f.lastUpsert.UpdatedAt = now
	ret := *f.lastUpsert
	ret.ID = "abcd1234"
	return &ret, f.upsertErr
}

func (f *fakeRepo) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return f.stored, f.getErr
}

func (f *fakeRepo) SetTemplate(ctx context.Context, sub, template string) error {
	return errors.New("read only")
}

func TestUpsertFromClaims(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()
	claims := map[string]interface{}{
		"sub":   "sub-123",
		"email": "x@example.com",
		"name":  "X User",
	}

	u, err := svc.UpsertFromClaims(ctx, claims)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "sub-123", u.Sub)
	require.Equal(t, "x@example.com", u.Email)
	require.Equal(t, "X User", u.Name)
	require.NotEmpty(t, u.ID)
	require.NotNil(t, repo.lastUpsert)
	require.False(t, repo.lastUpsert.CreatedAt.After(repo.lastUpsert.UpdatedAt))

	// missing sub => nil
	u2, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"email": "y@e.com"})
	require.NoError(t, err)
	require.Nil(t, u2)
}

func TestTemplatePreferenceDefaults(t *testing.T) {
	ctx := context.Background()

	require.Equal(t, entry.TemplateFree, NewService(&fakeRepo{}).TemplatePreference(ctx, "nobody"))
	require.Equal(t, entry.TemplateFree, NewService(&fakeRepo{getErr: errors.New("timeout")}).TemplatePreference(ctx, "sub"))
	require.Equal(t, entry.TemplateFree, NewService(&fakeRepo{stored: &models.User{Template: "sonnet"}}).TemplatePreference(ctx, "sub"))
	require.Equal(t, entry.TemplateFiveMinute, NewService(&fakeRepo{stored: &models.User{Template: "five-minute"}}).TemplatePreference(ctx, "sub"))
}

func TestSetTemplatePreference(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryUserRepository())

	got, err := svc.SetTemplatePreference(ctx, "alice", "five-minute")
	require.NoError(t, err)
	require.Equal(t, entry.TemplateFiveMinute, got)
	require.Equal(t, entry.TemplateFiveMinute, svc.TemplatePreference(ctx, "alice"))

	got, err = svc.SetTemplatePreference(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, entry.TemplateFree, got)
	require.Equal(t, entry.TemplateFree, svc.TemplatePreference(ctx, "alice"))

	_, err = svc.SetTemplatePreference(ctx, "alice", "limerick")
	require.ErrorIs(t, err, entry.ErrValidation)

	_, err = svc.SetTemplatePreference(ctx, "", "free")
	require.ErrorIs(t, err, entry.ErrUnauthorized)

	_, err = NewService(&fakeRepo{}).SetTemplatePreference(ctx, "alice", "free")
	require.EqualError(t, err, "read only")
}

func TestMemoryUserRepositoryKeepsTemplateAcrossUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	require.NoError(t, repo.SetTemplate(ctx, "alice", "five-minute"))

	u, err := repo.UpsertBySub(ctx, &models.User{Sub: "alice", Email: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, "five-minute", u.Template)
	require.Equal(t, "a@example.com", u.Email)

	missing, err := repo.GetBySub(ctx, "bob")
	require.NoError(t, err)
	require.Nil(t, missing)
}
