package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/repository"
	"github.com/minegate/minegate-api/internal/welcome"
)

// ---------- Mocks ----------

// memStore backs both the user and profile mock repositories so the
// single-transaction create path stays observable in tests.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*domain.User
	profiles map[int64]*domain.Profile
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   1,
		users:    make(map[int64]*domain.User),
		profiles: make(map[int64]*domain.Profile),
	}
}

type mockUserRepo struct {
	store *memStore
}

func (m *mockUserRepo) Create(_ context.Context, req *domain.RegisterRequest, passwordHash string) (*domain.User, *domain.Profile, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	for _, u := range m.store.users {
		if u.Document == req.Document {
			return nil, nil, domain.FieldErrors{"document": "this document number is already registered"}
		}
		if u.Email == req.Email {
			return nil, nil, domain.FieldErrors{"email": "this email is already registered"}
		}
	}

	id := m.store.nextID
	m.store.nextID++
	now := time.Now()

	user := &domain.User{
		ID:           id,
		Document:     req.Document,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := &domain.Profile{
		UserID:    id,
		Document:  req.Document,
		Phone:     req.Phone,
		UpdatedAt: now,
	}
	m.store.users[id] = user
	m.store.profiles[id] = profile
	return user, profile, nil
}

func (m *mockUserRepo) FindByDocument(_ context.Context, document string) (*domain.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, u := range m.store.users {
		if u.Document == document {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, u := range m.store.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.users[id], nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var result []domain.User
	for _, u := range m.store.users {
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		if filter.Staff != nil && u.IsStaff != *filter.Staff {
			continue
		}
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			hay := strings.ToLower(u.Document + " " + u.FirstName + " " + u.LastName + " " + u.Email)
			if !strings.Contains(hay, s) {
				continue
			}
		}
		result = append(result, *u)
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	u, ok := m.store.users[id]
	if !ok {
		return nil, nil
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.IsStaff != nil {
		u.IsStaff = *req.IsStaff
	}
	u.UpdatedAt = time.Now()
	return u, nil
}

func (m *mockUserRepo) Deactivate(_ context.Context, id int64) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	u, ok := m.store.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = false
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	u, ok := m.store.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

type mockProfileRepo struct {
	store *memStore
}

func (m *mockProfileRepo) FindByUserID(_ context.Context, userID int64) (*domain.Profile, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.profiles[userID], nil
}

func (m *mockProfileRepo) UpdateContact(_ context.Context, userID int64, req *domain.UpdateUserRequest) (*domain.Profile, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	p, ok := m.store.profiles[userID]
	if !ok {
		return nil, nil
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.PhotoURL != nil {
		p.PhotoURL = req.PhotoURL
	}
	if req.BirthDate != nil {
		p.BirthDate = req.BirthDate
	}
	p.UpdatedAt = time.Now()
	return p, nil
}

func (m *mockProfileRepo) Approve(_ context.Context, userID int64, at time.Time) (*domain.Profile, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	p, ok := m.store.profiles[userID]
	if !ok {
		return nil, nil
	}
	p.Approved = true
	p.RejectionReason = nil
	p.ApprovedAt = &at
	p.UpdatedAt = time.Now()
	return p, nil
}

func (m *mockProfileRepo) Reject(_ context.Context, userID int64, reason string) (*domain.Profile, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	p, ok := m.store.profiles[userID]
	if !ok {
		return nil, nil
	}
	p.Approved = false
	p.RejectionReason = &reason
	p.ApprovedAt = nil
	p.UpdatedAt = time.Now()
	return p, nil
}

func (m *mockProfileRepo) ListWithUsers(_ context.Context, filter repository.ProfileFilter) ([]domain.ProfileWithUser, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var result []domain.ProfileWithUser
	for id, p := range m.store.profiles {
		u := m.store.users[id]
		if u == nil || u.IsSuperuser {
			continue
		}
		state := p.State()
		if filter.State != "" && filter.State != "all" && string(state) != filter.State {
			continue
		}
		result = append(result, domain.ProfileWithUser{
			Profile: *p,
			User:    *u.ToUserInfo(),
			State:   state,
		})
	}
	return result, nil
}

func (m *mockProfileRepo) Counts(_ context.Context) (*domain.ApprovalCounts, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	counts := &domain.ApprovalCounts{}
	for id, p := range m.store.profiles {
		u := m.store.users[id]
		if u == nil || u.IsSuperuser {
			continue
		}
		counts.Total++
		switch p.State() {
		case domain.ApprovalApproved:
			counts.Approved++
		case domain.ApprovalRejected:
			counts.Rejected++
		default:
			counts.Pending++
		}
	}
	return counts, nil
}

type mockMailer struct {
	mu         sync.Mutex
	resetTo    []string
	resetURLs  []string
	welcomeTo  []string
	sendErr    error
}

func (m *mockMailer) SendPasswordResetEmail(toEmail, toName, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.resetTo = append(m.resetTo, toEmail)
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

func (m *mockMailer) SendWelcomeEmail(toEmail, toName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.welcomeTo = append(m.welcomeTo, toEmail)
	return nil
}

// mockWelcome is an in-memory one-shot store with the same consume
// semantics as the redis-backed one.
type mockWelcome struct {
	mu       sync.Mutex
	nextID   int
	tokens   map[string]welcome.Greeting
	issueErr error
}

func newMockWelcome() *mockWelcome {
	return &mockWelcome{tokens: make(map[string]welcome.Greeting)}
}

func (m *mockWelcome) Issue(_ context.Context, g welcome.Greeting) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.issueErr != nil {
		return "", m.issueErr
	}
	m.nextID++
	token := fmt.Sprintf("welcome-%d", m.nextID)
	m.tokens[token] = g
	return token, nil
}

func (m *mockWelcome) Consume(_ context.Context, token string) (*welcome.Greeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.tokens[token]
	if !ok {
		return nil, nil
	}
	delete(m.tokens, token)
	return &g, nil
}

// recordingBus captures published events by subject.
type recordingBus struct {
	mu       sync.Mutex
	subjects []string
	payloads []interface{}
}

func (b *recordingBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	b.payloads = append(b.payloads, data)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) published(subject string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.subjects {
		if s == subject {
			n++
		}
	}
	return n
}
