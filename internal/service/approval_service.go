package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/repository"
	"github.com/minegate/minegate-api/pkg/events"
	"github.com/minegate/minegate-api/pkg/logger"
)

const defaultRejectionReason = "No reason provided"

type ApprovalService interface {
	List(ctx context.Context, filter repository.ProfileFilter) ([]domain.ProfileWithUser, *domain.ApprovalCounts, error)
	Approve(ctx context.Context, userID, reviewerID int64) (*domain.Profile, error)
	Reject(ctx context.Context, userID, reviewerID int64, reason string) (*domain.Profile, error)
}

type approvalService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	eventBus    events.Publisher
}

func NewApprovalService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository, eventBus events.Publisher) ApprovalService {
	return &approvalService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		eventBus:    eventBus,
	}
}

func (s *approvalService) List(ctx context.Context, filter repository.ProfileFilter) ([]domain.ProfileWithUser, *domain.ApprovalCounts, error) {
	profiles, err := s.profileRepo.ListWithUsers(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	counts, err := s.profileRepo.Counts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count profiles: %w", err)
	}
	return profiles, counts, nil
}

// Approve overwrites any previous decision: a rejected user becomes
// approved and the stored reason is cleared. Repeating the call only
// refreshes the decision timestamp.
func (s *approvalService) Approve(ctx context.Context, userID, reviewerID int64) (*domain.Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	profile, err := s.profileRepo.Approve(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to approve user: %w", err)
	}
	if profile == nil {
		return nil, nil
	}

	if err := s.eventBus.Publish(ctx, events.UserApproved, events.UserApprovedEvent{
		UserID:     userID,
		Document:   user.Document,
		ApprovedBy: reviewerID,
		ApprovedAt: now,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish approval event", "error", err, "user_id", userID)
	}

	logger.InfoContext(ctx, "User approved", "user_id", userID, "reviewer_id", reviewerID)
	return profile, nil
}

// Reject stores the reviewer's reason verbatim and wipes any earlier
// approval. An empty reason is replaced with a fixed placeholder so
// the login message never shows a blank.
func (s *approvalService) Reject(ctx context.Context, userID, reviewerID int64, reason string) (*domain.Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectionReason
	}

	profile, err := s.profileRepo.Reject(ctx, userID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to reject user: %w", err)
	}
	if profile == nil {
		return nil, nil
	}

	if err := s.eventBus.Publish(ctx, events.UserRejected, events.UserRejectedEvent{
		UserID:     userID,
		Document:   user.Document,
		Reason:     reason,
		RejectedBy: reviewerID,
		RejectedAt: time.Now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish rejection event", "error", err, "user_id", userID)
	}

	logger.InfoContext(ctx, "User rejected", "user_id", userID, "reviewer_id", reviewerID, "reason", reason)
	return profile, nil
}
