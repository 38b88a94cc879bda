package review

import (
	"context"
	"errors"
)

var (
	// ErrBadRating signals a rating outside 1..5.
	ErrBadRating = errors.New("review: rating must be between 1 and 5")
	// ErrAlreadyReviewed signals the author already reviewed this listing.
	ErrAlreadyReviewed = errors.New("review: one review per listing")
	// ErrNotFound signals the review does not exist.
	ErrNotFound = errors.New("review: not found")
)

// Store abstracts repository operations for the service.
type Store interface {
	ListForListing(ctx context.Context, listingID string) ([]Review, Summary, error)
	Create(ctx context.Context, listingID, authorID string, rating int, text string) (Review, error)
	MarkHelpful(ctx context.Context, reviewID string, helpful bool) (Review, error)
}

// Service exposes business-level review operations.
type Service struct {
	repo Store
}

// NewService builds a Service using the provided repository.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// ListForListing returns the listing's reviews plus a rating summary.
func (s *Service) ListForListing(ctx context.Context, listingID string) ([]Review, Summary, error) {
	return s.repo.ListForListing(ctx, listingID)
}

// Create records a review after validating the rating.
func (s *Service) Create(ctx context.Context, listingID, authorID string, rating int, text string) (Review, error) {
	if rating < 1 || rating > 5 {
		return Review{}, ErrBadRating
	}
	return s.repo.Create(ctx, listingID, authorID, rating, text)
}

// MarkHelpful bumps the helpful or not-helpful counter.
func (s *Service) MarkHelpful(ctx context.Context, reviewID string, helpful bool) (Review, error) {
	return s.repo.MarkHelpful(ctx, reviewID, helpful)
}
