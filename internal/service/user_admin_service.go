package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/repository"
	"github.com/minegate/minegate-api/pkg/logger"
)

var (
	// ErrProtectedUser is returned when a deactivation targets a
	// superuser account.
	ErrProtectedUser = errors.New("superuser accounts cannot be deactivated")
	// ErrSelfDeactivation is returned when an admin tries to
	// deactivate their own account.
	ErrSelfDeactivation = errors.New("you cannot deactivate your own account")
)

type UserAdminService interface {
	List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, *domain.Profile, error)
	Create(ctx context.Context, req *domain.RegisterRequest, staff bool) (*domain.User, *domain.Profile, error)
	Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, *domain.Profile, error)
	Deactivate(ctx context.Context, id, actorID int64) error
}

type userAdminService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
}

func NewUserAdminService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository) UserAdminService {
	return &userAdminService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
	}
}

func (s *userAdminService) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *userAdminService) Get(ctx context.Context, id int64) (*domain.User, *domain.Profile, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, nil
	}
	profile, err := s.profileRepo.FindByUserID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return user, profile, nil
}

// Create goes through the same validation and transactional path as
// self-registration; staff accounts only differ by the flag set after
// creation.
func (s *userAdminService) Create(ctx context.Context, req *domain.RegisterRequest, staff bool) (*domain.User, *domain.Profile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, profile, err := s.userRepo.Create(ctx, req, passwordHash)
	if err != nil {
		if _, ok := err.(domain.FieldErrors); ok {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	if staff {
		isStaff := true
		user, err = s.userRepo.Update(ctx, user.ID, &domain.UpdateUserRequest{IsStaff: &isStaff})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to set staff flag: %w", err)
		}
	}

	logger.InfoContext(ctx, "User created by admin", "user_id", user.ID, "staff", staff)
	return user, profile, nil
}

func (s *userAdminService) Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, *domain.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if req.FirstName != nil {
		name := domain.TitleCaseName(*req.FirstName)
		req.FirstName = &name
	}
	if req.LastName != nil {
		name := domain.TitleCaseName(*req.LastName)
		req.LastName = &name
	}

	user, err := s.userRepo.Update(ctx, id, req)
	if err != nil {
		if _, ok := err.(domain.FieldErrors); ok {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to update user: %w", err)
	}
	if user == nil {
		return nil, nil, nil
	}
	profile, err := s.profileRepo.UpdateContact(ctx, id, req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, profile, nil
}

// Deactivate marks the account inactive instead of deleting the row,
// so visit records keep their author. Superusers and the acting admin
// themselves are refused.
func (s *userAdminService) Deactivate(ctx context.Context, id, actorID int64) error {
	if id == actorID {
		return ErrSelfDeactivation
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return repository.ErrNotFound
	}
	if user.IsSuperuser {
		return ErrProtectedUser
	}

	if err := s.userRepo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	logger.InfoContext(ctx, "User deactivated", "user_id", id, "actor_id", actorID)
	return nil
}
