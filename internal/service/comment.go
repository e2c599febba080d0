package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"groupride/internal/domain"
	"groupride/internal/repository"
)

// CommentService handles ride comments.
type CommentService struct {
	rideRepo    repository.RideRepository
	commentRepo repository.CommentRepository
	now         func() time.Time
}

// NewCommentService creates a new CommentService.
func NewCommentService(rideRepo repository.RideRepository, commentRepo repository.CommentRepository) *CommentService {
	return &CommentService{
		rideRepo:    rideRepo,
		commentRepo: commentRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AddComment posts a comment on an existing ride.
func (s *CommentService) AddComment(ctx context.Context, actor Actor, rideID, body string) (*domain.Comment, error) {
	if !isUUID(rideID) {
		return nil, ErrInvalidRideID
	}
	if actor.UserID == "" {
		return nil, ErrInvalidUserID
	}

	body = strings.TrimSpace(body)
	v := &validator{}
	v.check(body != "", "body is required")
	v.check(utf8.RuneCountInString(body) <= maxCommentLength,
		fmt.Sprintf("body must be at most %d characters", maxCommentLength))
	if err := v.err(); err != nil {
		return nil, err
	}

	if _, err := s.rideRepo.GetByID(ctx, rideID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:        uuid.New().String(),
		RideID:    rideID,
		UserID:    actor.UserID,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// ListComments returns the comments of a ride, oldest first.
func (s *CommentService) ListComments(ctx context.Context, rideID string) ([]*domain.Comment, error) {
	if !isUUID(rideID) {
		return nil, ErrInvalidRideID
	}
	if _, err := s.rideRepo.GetByID(ctx, rideID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByRide(ctx, rideID)
}

// DeleteComment removes a comment. The author, the ride owner and admins may delete.
func (s *CommentService) DeleteComment(ctx context.Context, actor Actor, commentID string) error {
	if !isUUID(commentID) {
		return ErrInvalidCommentID
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	allowed, err := s.canDelete(ctx, actor, comment)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}

	return s.commentRepo.Delete(ctx, commentID)
}

func (s *CommentService) canDelete(ctx context.Context, actor Actor, comment *domain.Comment) (bool, error) {
	if actor.IsAdmin() || comment.UserID == actor.UserID {
		return true, nil
	}

	ride, err := s.rideRepo.GetByID(ctx, comment.RideID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ride.OwnerID == actor.UserID, nil
}
