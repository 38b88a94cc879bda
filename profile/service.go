package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals the requested listing does not exist.
	ErrNotFound = errors.New("profile: not found")
	// ErrForbidden signals the caller does not own the listing.
	ErrForbidden = errors.New("profile: not the owner")
	// ErrUnderage rejects listings for persons younger than 18.
	ErrUnderage = errors.New("profile: age must be at least 18")
)

// Store abstracts repository operations for the service.
type Store interface {
	GetByID(ctx context.Context, id string) (Listing, error)
	List(ctx context.Context, filter ListFilter) ([]Listing, error)
	Create(ctx context.Context, params CreateParams) (Listing, error)
	Update(ctx context.Context, id string, params UpdateParams) (Listing, error)
	IncrementViews(ctx context.Context, id string) error
}

// Service exposes business-level catalog operations.
type Service struct {
	repo Store
}

// NewService builds a Service using the provided repository.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// GetByID returns the listing for the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (Listing, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns listings matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Listing, error) {
	return s.repo.List(ctx, filter)
}

// Create publishes a new listing on behalf of ownerID.
func (s *Service) Create(ctx context.Context, params CreateParams) (Listing, error) {
	if strings.TrimSpace(params.Name) == "" {
		return Listing{}, fmt.Errorf("profile: name is required")
	}
	if params.Age < 18 {
		return Listing{}, ErrUnderage
	}
	if params.OwnerID == "" {
		return Listing{}, fmt.Errorf("profile: owner is required")
	}
	return s.repo.Create(ctx, params)
}

// Update applies a patch to a listing after verifying ownership.
func (s *Service) Update(ctx context.Context, callerID, id string, params UpdateParams) (Listing, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Listing{}, err
	}
	if existing.OwnerID != callerID {
		return Listing{}, ErrForbidden
	}
	if params.Age != nil && *params.Age < 18 {
		return Listing{}, ErrUnderage
	}
	return s.repo.Update(ctx, id, params)
}

// IncrementViews bumps the view counter. Missing listings are a no-op so the
// catalog never fails a page render over a counter.
func (s *Service) IncrementViews(ctx context.Context, id string) error {
	err := s.repo.IncrementViews(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
