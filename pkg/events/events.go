package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minegate/minegate-api/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopBus satisfies Publisher when no broker is configured.
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event dropped (no broker)", "subject", subject)
	return nil
}

func (NoopBus) Close() error { return nil }

// Event subjects
const (
	UserRegistered = "user.registered"
	UserApproved   = "user.approved"
	UserRejected   = "user.rejected"
	VisitCreated   = "visit.created"
	VisitUpdated   = "visit.updated"
	VisitDeleted   = "visit.deleted"
)

// Event payloads
type UserRegisteredEvent struct {
	UserID       int64     `json:"user_id"`
	Document     string    `json:"document"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

type UserApprovedEvent struct {
	UserID     int64     `json:"user_id"`
	Document   string    `json:"document"`
	ApprovedBy int64     `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

type UserRejectedEvent struct {
	UserID     int64     `json:"user_id"`
	Document   string    `json:"document"`
	Reason     string    `json:"reason"`
	RejectedBy int64     `json:"rejected_by"`
	RejectedAt time.Time `json:"rejected_at"`
}

type VisitEvent struct {
	VisitID   int64     `json:"visit_id"`
	Kind      string    `json:"kind"` // external or internal
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	Headcount int       `json:"headcount"`
	At        time.Time `json:"at"`
}
