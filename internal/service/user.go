package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"groupride/internal/domain"
	"groupride/internal/repository"
)

// UserService manages rider profiles.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// UpdateProfileRequest holds the editable profile fields.
type UpdateProfileRequest struct {
	Name                string
	Email               string
	Bio                 string
	PreferredDifficulty string
}

// GetProfile retrieves a user's profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile creates or replaces the actor's own profile. The role always
// comes from the actor, never from the request.
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, req UpdateProfileRequest) (*domain.User, error) {
	if actor.UserID == "" {
		return nil, ErrInvalidUserID
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)

	v := &validator{}
	v.check(name != "", "name is required")
	v.check(utf8.RuneCountInString(name) <= maxNameLength, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	if email != "" {
		_, err := mail.ParseAddress(email)
		v.check(err == nil, "email must be a valid address")
	}
	v.check(utf8.RuneCountInString(req.Bio) <= maxBioLength, fmt.Sprintf("bio must be at most %d characters", maxBioLength))
	if req.PreferredDifficulty != "" {
		v.check(domain.Difficulty(req.PreferredDifficulty).Valid(), "preferred_difficulty must be one of E, D, C, B, A, AA")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	role := actor.Role
	if role == "" {
		role = domain.UserRoleMember
	}

	user := &domain.User{
		ID:                  actor.UserID,
		Name:                name,
		Email:               email,
		Bio:                 req.Bio,
		PreferredDifficulty: domain.Difficulty(req.PreferredDifficulty),
		Role:                role,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	return s.userRepo.GetByID(ctx, actor.UserID)
}
