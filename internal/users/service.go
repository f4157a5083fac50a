package users

import (
	"context"
	"errors"
)

// ErrNoSubject is returned for claims without a sub.
var ErrNoSubject = errors.New("claims have no subject")

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a user using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		return nil, ErrNoSubject
	}
	return s.repo.UpsertBySub(ctx, &User{Sub: sub, Email: email, Name: name})
}

// GetBySub returns ErrNotFound for unknown subjects.
func (s *Service) GetBySub(ctx context.Context, sub string) (*User, error) {
	return s.repo.GetBySub(ctx, sub)
}
