package service

import (
	"context"
	"fmt"
	"time"

	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/repository"
	"github.com/minegate/minegate-api/pkg/events"
	"github.com/minegate/minegate-api/pkg/logger"
)

type ExternalVisitService interface {
	Create(ctx context.Context, req *domain.ExternalVisitRequest) (*domain.ExternalVisit, error)
	Get(ctx context.Context, id int64) (*domain.ExternalVisit, error)
	List(ctx context.Context, filter repository.VisitFilter) ([]domain.ExternalVisit, error)
	Update(ctx context.Context, id int64, req *domain.ExternalVisitRequest) (*domain.ExternalVisit, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type externalVisitService struct {
	repo     repository.ExternalVisitRepository
	eventBus events.Publisher
}

func NewExternalVisitService(repo repository.ExternalVisitRepository, eventBus events.Publisher) ExternalVisitService {
	return &externalVisitService{repo: repo, eventBus: eventBus}
}

func (s *externalVisitService) Create(ctx context.Context, req *domain.ExternalVisitRequest) (*domain.ExternalVisit, error) {
	req.Normalize()
	if err := req.Validate(true); err != nil {
		return nil, err
	}

	visit, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create external visit: %w", err)
	}

	s.publish(ctx, events.VisitCreated, visit)
	logger.InfoContext(ctx, "External visit created", "visit_id", visit.ID, "date", visit.Date.Format("2006-01-02"))
	return visit, nil
}

func (s *externalVisitService) Get(ctx context.Context, id int64) (*domain.ExternalVisit, error) {
	visit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get external visit: %w", err)
	}
	return visit, nil
}

func (s *externalVisitService) List(ctx context.Context, filter repository.VisitFilter) ([]domain.ExternalVisit, error) {
	visits, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list external visits: %w", err)
	}
	return visits, nil
}

// Update enforces the date floor only when the date actually changes,
// so an old record can be corrected without moving its date forward.
func (s *externalVisitService) Update(ctx context.Context, id int64, req *domain.ExternalVisitRequest) (*domain.ExternalVisit, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get external visit: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	req.Normalize()
	dateChanged := !req.Date.Equal(existing.Date.Time)
	if err := req.Validate(dateChanged); err != nil {
		return nil, err
	}

	visit, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update external visit: %w", err)
	}
	if visit == nil {
		return nil, nil
	}

	s.publish(ctx, events.VisitUpdated, visit)
	return visit, nil
}

func (s *externalVisitService) Delete(ctx context.Context, id int64) (bool, error) {
	visit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to get external visit: %w", err)
	}
	if visit == nil {
		return false, nil
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete external visit: %w", err)
	}
	if deleted {
		s.publish(ctx, events.VisitDeleted, visit)
		logger.InfoContext(ctx, "External visit deleted", "visit_id", id)
	}
	return deleted, nil
}

func (s *externalVisitService) publish(ctx context.Context, subject string, v *domain.ExternalVisit) {
	err := s.eventBus.Publish(ctx, subject, events.VisitEvent{
		VisitID:   v.ID,
		Kind:      "external",
		Name:      v.Name,
		Date:      v.Date.Format("2006-01-02"),
		Headcount: v.Headcount,
		At:        time.Now().UTC(),
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish visit event", "error", err, "subject", subject, "visit_id", v.ID)
	}
}
