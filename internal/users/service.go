package users

import (
	"context"

	"github.com/daybook/daybook/internal/entry"
	"github.com/daybook/daybook/internal/models"
	"github.com/daybook/daybook/pkg/logger"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a user using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		return nil, nil
	}
	u := &models.User{
		Sub:   sub,
		Email: email,
		Name:  name,
	}
	return s.repo.UpsertBySub(ctx, u)
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}

// TemplatePreference returns the owner's default template. It never fails:
// unknown users, unreadable values and store errors all yield the free template.
func (s *Service) TemplatePreference(ctx context.Context, sub string) entry.Template {
	u, err := s.repo.GetBySub(ctx, sub)
	if err != nil {
		logger.Warnf("template preference lookup failed (sub=%s): %v", sub, err)
		return entry.TemplateFree
	}
	if u == nil {
		return entry.TemplateFree
	}
	t, err := entry.ParseTemplate(u.Template)
	if err != nil {
		return entry.TemplateFree
	}
	return t
}

// SetTemplatePreference validates and stores raw. An empty value resets the
// preference to the free template.
func (s *Service) SetTemplatePreference(ctx context.Context, sub, raw string) (entry.Template, error) {
	if sub == "" {
		return "", entry.ErrUnauthorized
	}
	t, err := entry.ParseTemplate(raw)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetTemplate(ctx, sub, string(t)); err != nil {
		return "", err
	}
	return t, nil
}
