package service

import (
	"context"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/mailer"
	"github.com/minegate/minegate-api/internal/metrics"
	"github.com/minegate/minegate-api/internal/repository"
	"github.com/minegate/minegate-api/internal/welcome"
	"github.com/minegate/minegate-api/pkg/auth"
	"github.com/minegate/minegate-api/pkg/config"
	"github.com/minegate/minegate-api/pkg/events"
	"github.com/minegate/minegate-api/pkg/logger"
)

// WelcomeIssuer hands out the one-shot greeting tokens returned by a
// successful login.
type WelcomeIssuer interface {
	Issue(ctx context.Context, g welcome.Greeting) (string, error)
	Consume(ctx context.Context, token string) (*welcome.Greeting, error)
}

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, *domain.Profile, error)
	Login(ctx context.Context, req *domain.LoginRequest, redirect string) (*domain.LoginResponse, error)
	ConsumeWelcome(ctx context.Context, token string) (*welcome.Greeting, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password, passwordConfirm string) error
	GetProfile(ctx context.Context, userID int64) (*domain.User, *domain.Profile, error)
	UpdateOwnProfile(ctx context.Context, userID int64, req *domain.UpdateUserRequest) (*domain.User, *domain.Profile, error)
}

type authService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	mailer      mailer.Service
	eventBus    events.Publisher
	welcome     WelcomeIssuer
	config      *config.Config
}

func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	mailer mailer.Service,
	eventBus events.Publisher,
	welcome WelcomeIssuer,
	config *config.Config,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		mailer:      mailer,
		eventBus:    eventBus,
		welcome:     welcome,
		config:      config,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, *domain.Profile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	// Pre-checks give friendly errors; the unique constraints decide
	// under concurrent submissions and produce the same field errors.
	if existing, err := s.userRepo.FindByDocument(ctx, req.Document); err != nil {
		return nil, nil, fmt.Errorf("failed to check existing document: %w", err)
	} else if existing != nil {
		return nil, nil, domain.FieldErrors{"document": "this document number is already registered"}
	}
	if existing, err := s.userRepo.FindByEmail(ctx, req.Email); err != nil {
		return nil, nil, fmt.Errorf("failed to check existing email: %w", err)
	} else if existing != nil {
		return nil, nil, domain.FieldErrors{"email": "this email is already registered"}
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

	if err := s.eventBus.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       user.ID,
		Document:     user.Document,
		Email:        user.Email,
		RegisteredAt: user.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish registration event", "error", err, "user_id", user.ID)
	}

	if err := s.mailer.SendWelcomeEmail(user.Email, user.FullName()); err != nil {
		logger.WarnContext(ctx, "Failed to send welcome email", "error", err, "user_id", user.ID)
		// Don't fail registration if email fails
	} else {
		metrics.EmailsSent.Inc()
	}

	return user, profile, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest, redirect string) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByDocument(ctx, req.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		metrics.LoginsTotal.WithLabelValues("unknown_document").Inc()
		return nil, domain.ErrDocumentNotRegistered
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		metrics.LoginsTotal.WithLabelValues("bad_password").Inc()
		return nil, domain.ErrIncorrectPassword
	}

	if !user.IsActive {
		metrics.LoginsTotal.WithLabelValues("deactivated").Inc()
		return nil, domain.ErrAccountDeactivated
	}

	// Approval gate. Superusers bypass it entirely.
	if !user.IsSuperuser {
		profile, err := s.profileRepo.FindByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		if profile == nil || !profile.Approved {
			metrics.LoginsTotal.WithLabelValues("not_approved").Inc()
			if profile != nil && profile.RejectionReason != nil && *profile.RejectionReason != "" {
				return nil, &domain.AccessRejectedError{Reason: *profile.RejectionReason}
			}
			return nil, domain.ErrPendingApproval
		}
	}

	accessToken, err := auth.NewAccessToken(
		user.ID,
		user.Document,
		user.FullName(),
		user.IsStaff,
		user.IsSuperuser,
		s.config.Auth.JWTSecret,
		s.config.Auth.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	if redirect == "" {
		redirect = "/panel"
	}
	welcomeToken, err := s.welcome.Issue(ctx, welcome.Greeting{
		Name:     user.FullName(),
		Redirect: redirect,
	})
	if err != nil {
		// The greeting is cosmetic, a login must not fail over it.
		logger.WarnContext(ctx, "Failed to issue welcome token", "error", err, "user_id", user.ID)
		welcomeToken = ""
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return &domain.LoginResponse{
		AccessToken:  accessToken,
		ExpiresIn:    int64(s.config.Auth.AccessTokenTTL.Seconds()),
		WelcomeToken: welcomeToken,
		User:         user.ToUserInfo(),
	}, nil
}

func (s *authService) ConsumeWelcome(ctx context.Context, token string) (*welcome.Greeting, error) {
	return s.welcome.Consume(ctx, token)
}

// RequestPasswordReset always succeeds from the caller's point of
// view; whether an email goes out depends on the address matching an
// account, and that difference is never surfaced.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil
	}

	token, err := auth.NewResetToken(user.ID, user.PasswordHash, s.config.Auth.JWTSecret, s.config.Auth.ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to sign reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.Server.BaseURL, token)
	if err := s.mailer.SendPasswordResetEmail(user.Email, user.FullName(), resetURL); err != nil {
		// Surfacing this would let a caller tell matching addresses
		// apart from unknown ones whenever the mailer is degraded.
		logger.ErrorContext(ctx, "Failed to send password reset email", "error", err, "user_id", user.ID)
		return nil
	}
	metrics.EmailsSent.Inc()

	return nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, token, password, passwordConfirm string) error {
	claims, err := auth.ParseResetToken(token, s.config.Auth.JWTSecret)
	if err != nil {
		return domain.FieldErrors{"token": "the recovery link is invalid or has expired"}
	}

	user, err := s.userRepo.FindByID(ctx, claims.Sub)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !auth.VerifyFingerprint(claims, user.PasswordHash) {
		return domain.FieldErrors{"token": "the recovery link is invalid or has expired"}
	}

	errs := domain.FieldErrors{}
	if problems := domain.ValidatePassword(password); len(problems) > 0 {
		errs.Add("password", problems[0])
	}
	if password != passwordConfirm {
		errs.Add("password_confirm", "passwords do not match")
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	passwordHash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *authService) GetProfile(ctx context.Context, userID int64) (*domain.User, *domain.Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, nil
	}
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return user, profile, nil
}

// UpdateOwnProfile lets a user edit contact data and names. The
// document number is immutable and the active/staff flags are not
// accepted on this path.
func (s *authService) UpdateOwnProfile(ctx context.Context, userID int64, req *domain.UpdateUserRequest) (*domain.User, *domain.Profile, error) {
	req.IsActive = nil
	req.IsStaff = nil
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

	user, err := s.userRepo.Update(ctx, userID, req)
	if err != nil {
		if _, ok := err.(domain.FieldErrors); ok {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to update user: %w", err)
	}
	if user == nil {
		return nil, nil, nil
	}
	profile, err := s.profileRepo.UpdateContact(ctx, userID, req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, profile, nil
}
