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

type InternalVisitService interface {
	Create(ctx context.Context, req *domain.InternalVisitRequest) (*domain.InternalVisit, error)
	Get(ctx context.Context, id int64) (*domain.InternalVisit, error)
	List(ctx context.Context, filter repository.VisitFilter) ([]domain.InternalVisit, error)
	Update(ctx context.Context, id int64, req *domain.InternalVisitRequest) (*domain.InternalVisit, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type internalVisitService struct {
	repo     repository.InternalVisitRepository
	eventBus events.Publisher
}

func NewInternalVisitService(repo repository.InternalVisitRepository, eventBus events.Publisher) InternalVisitService {
	return &internalVisitService{repo: repo, eventBus: eventBus}
}

func (s *internalVisitService) Create(ctx context.Context, req *domain.InternalVisitRequest) (*domain.InternalVisit, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	visit, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create internal visit: %w", err)
	}

	s.publish(ctx, events.VisitCreated, visit)
	logger.InfoContext(ctx, "Internal visit created", "visit_id", visit.ID, "status", visit.Status)
	return visit, nil
}

func (s *internalVisitService) Get(ctx context.Context, id int64) (*domain.InternalVisit, error) {
	visit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get internal visit: %w", err)
	}
	return visit, nil
}

func (s *internalVisitService) List(ctx context.Context, filter repository.VisitFilter) ([]domain.InternalVisit, error) {
	visits, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list internal visits: %w", err)
	}
	return visits, nil
}

func (s *internalVisitService) Update(ctx context.Context, id int64, req *domain.InternalVisitRequest) (*domain.InternalVisit, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	visit, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update internal visit: %w", err)
	}
	if visit == nil {
		return nil, nil
	}

	s.publish(ctx, events.VisitUpdated, visit)
	return visit, nil
}

func (s *internalVisitService) Delete(ctx context.Context, id int64) (bool, error) {
	visit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to get internal visit: %w", err)
	}
	if visit == nil {
		return false, nil
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete internal visit: %w", err)
	}
	if deleted {
		s.publish(ctx, events.VisitDeleted, visit)
		logger.InfoContext(ctx, "Internal visit deleted", "visit_id", id)
	}
	return deleted, nil
}

func (s *internalVisitService) publish(ctx context.Context, subject string, v *domain.InternalVisit) {
	err := s.eventBus.Publish(ctx, subject, events.VisitEvent{
		VisitID:   v.ID,
		Kind:      "internal",
		Name:      v.Name,
		Date:      v.Date.Format("2006-01-02"),
		Headcount: v.Headcount,
		At:        time.Now().UTC(),
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish visit event", "error", err, "subject", subject, "visit_id", v.ID)
	}
}
