package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/service"
	"github.com/minegate/minegate-api/pkg/auth"
	"github.com/minegate/minegate-api/pkg/config"
	"github.com/minegate/minegate-api/pkg/events"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: "http://localhost:8080"},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			AccessTokenTTL:  time.Hour,
			ResetTokenTTL:   time.Hour,
			WelcomeTokenTTL: 2 * time.Minute,
		},
	}
}

type authFixture struct {
	svc     service.AuthService
	store   *memStore
	mailer  *mockMailer
	welcome *mockWelcome
	bus     *recordingBus
}

func newAuthFixture() *authFixture {
	store := newMemStore()
	mailer := &mockMailer{}
	wel := newMockWelcome()
	bus := &recordingBus{}
	svc := service.NewAuthService(
		&mockUserRepo{store: store},
		&mockProfileRepo{store: store},
		mailer,
		bus,
		wel,
		testConfig(),
	)
	return &authFixture{svc: svc, store: store, mailer: mailer, welcome: wel, bus: bus}
}

func registerReq() *domain.RegisterRequest {
	return &domain.RegisterRequest{
		Document:        "1234567890",
		Email:           "juan@example.com",
		FirstName:       "juan",
		LastName:        "pérez",
		Password:        "Abcdef1!",
		PasswordConfirm: "Abcdef1!",
	}
}

func TestRegister_CreatesPendingAccount(t *testing.T) {
	f := newAuthFixture()

	user, profile, err := f.svc.Register(context.Background(), registerReq())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if user.FirstName != "Juan" || user.LastName != "Pérez" {
		t.Fatalf("Names not title-cased: %q %q", user.FirstName, user.LastName)
	}
	if user.PasswordHash == "Abcdef1!" || user.PasswordHash == "" {
		t.Fatal("Password stored unhashed")
	}
	if profile.Approved {
		t.Fatal("New account must start unapproved")
	}
	if profile.State() != domain.ApprovalPending {
		t.Fatalf("State = %q, want pending", profile.State())
	}

	if f.bus.published(events.UserRegistered) != 1 {
		t.Fatal("Expected one user.registered event")
	}
	if len(f.mailer.welcomeTo) != 1 || f.mailer.welcomeTo[0] != "juan@example.com" {
		t.Fatalf("Welcome mail not sent: %v", f.mailer.welcomeTo)
	}
}

func TestRegister_DuplicateDocument(t *testing.T) {
	f := newAuthFixture()
	if _, _, err := f.svc.Register(context.Background(), registerReq()); err != nil {
		t.Fatal(err)
	}

	dup := registerReq()
	dup.Email = "other@example.com"
	_, _, err := f.svc.Register(context.Background(), dup)
	assertFieldError(t, err, "document")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	if _, _, err := f.svc.Register(context.Background(), registerReq()); err != nil {
		t.Fatal(err)
	}

	dup := registerReq()
	dup.Document = "9876543210"
	_, _, err := f.svc.Register(context.Background(), dup)
	assertFieldError(t, err, "email")
}

func TestRegister_MailFailureDoesNotFailRegistration(t *testing.T) {
	f := newAuthFixture()
	f.mailer.sendErr = errors.New("smtp down")

	if _, _, err := f.svc.Register(context.Background(), registerReq()); err != nil {
		t.Fatalf("Registration should survive mail failure, got %v", err)
	}
}

// The login state machine: each failure mode is distinguishable, and
// the order of checks is document, password, active, approval.
func TestLogin_FailureModes(t *testing.T) {
	f := newAuthFixture()
	user, _, err := f.svc.Register(context.Background(), registerReq())
	if err != nil {
		t.Fatal(err)
	}

	login := func(document, password string) error {
		_, err := f.svc.Login(context.Background(), &domain.LoginRequest{
			Document: document,
			Password: password,
		}, "")
		return err
	}

	t.Run("unknown document", func(t *testing.T) {
		if err := login("0000000000", "Abcdef1!"); !errors.Is(err, domain.ErrDocumentNotRegistered) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if err := login("1234567890", "Wrong1!xx"); !errors.Is(err, domain.ErrIncorrectPassword) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("pending approval", func(t *testing.T) {
		if err := login("1234567890", "Abcdef1!"); !errors.Is(err, domain.ErrPendingApproval) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("rejected with reason", func(t *testing.T) {
		reason := "Incomplete documents"
		f.store.mu.Lock()
		f.store.profiles[user.ID].RejectionReason = &reason
		f.store.mu.Unlock()

		err := login("1234567890", "Abcdef1!")
		var rejected *domain.AccessRejectedError
		if !errors.As(err, &rejected) {
			t.Fatalf("got %v", err)
		}
		if !strings.Contains(rejected.Error(), reason) {
			t.Fatalf("Reason missing from message: %q", rejected.Error())
		}
	})

	t.Run("deactivated wins over approval state", func(t *testing.T) {
		f.store.mu.Lock()
		f.store.users[user.ID].IsActive = false
		f.store.mu.Unlock()

		if err := login("1234567890", "Abcdef1!"); !errors.Is(err, domain.ErrAccountDeactivated) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("wrong password reported before deactivation", func(t *testing.T) {
		if err := login("1234567890", "Wrong1!xx"); !errors.Is(err, domain.ErrIncorrectPassword) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestLogin_ApprovedUserGetsTokens(t *testing.T) {
	f := newAuthFixture()
	user, _, err := f.svc.Register(context.Background(), registerReq())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	f.store.mu.Lock()
	f.store.profiles[user.ID].Approved = true
	f.store.profiles[user.ID].ApprovedAt = &now
	f.store.mu.Unlock()

	resp, err := f.svc.Login(context.Background(), &domain.LoginRequest{
		Document: "1234567890",
		Password: "Abcdef1!",
	}, "/panel")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	claims, err := auth.Parse(resp.AccessToken, "test-secret")
	if err != nil {
		t.Fatalf("Access token invalid: %v", err)
	}
	if claims.Sub != user.ID || claims.Document != "1234567890" {
		t.Fatalf("Claims mismatch: %+v", claims)
	}

	// The welcome token works exactly once
	g, err := f.svc.ConsumeWelcome(context.Background(), resp.WelcomeToken)
	if err != nil || g == nil {
		t.Fatalf("First consume failed: %v %v", g, err)
	}
	if g.Name != "Juan Pérez" || g.Redirect != "/panel" {
		t.Fatalf("Greeting mismatch: %+v", g)
	}
	g, err = f.svc.ConsumeWelcome(context.Background(), resp.WelcomeToken)
	if err != nil {
		t.Fatal(err)
	}
	if g != nil {
		t.Fatal("Second consume must find nothing")
	}
}

func TestLogin_SuperuserBypassesApproval(t *testing.T) {
	f := newAuthFixture()
	user, _, err := f.svc.Register(context.Background(), registerReq())
	if err != nil {
		t.Fatal(err)
	}
	f.store.mu.Lock()
	f.store.users[user.ID].IsSuperuser = true
	f.store.mu.Unlock()

	if _, err := f.svc.Login(context.Background(), &domain.LoginRequest{
		Document: "1234567890",
		Password: "Abcdef1!",
	}, ""); err != nil {
		t.Fatalf("Superuser login should bypass approval, got %v", err)
	}
}

func TestLogin_WelcomeFailureIsNotFatal(t *testing.T) {
	f := newAuthFixture()
	user, _, err := f.svc.Register(context.Background(), registerReq())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	f.store.mu.Lock()
	f.store.profiles[user.ID].Approved = true
	f.store.profiles[user.ID].ApprovedAt = &now
	f.store.mu.Unlock()
	f.welcome.issueErr = errors.New("redis down")

	resp, err := f.svc.Login(context.Background(), &domain.LoginRequest{
		Document: "1234567890",
		Password: "Abcdef1!",
	}, "")
	if err != nil {
		t.Fatalf("Login must survive welcome store failure, got %v", err)
	}
	if resp.WelcomeToken != "" {
		t.Fatal("Expected empty welcome token on store failure")
	}
}

func TestPasswordReset_FullFlow(t *testing.T) {
	f := newAuthFixture()
	user, _, err := f.svc.Register(context.Background(), registerReq())
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.RequestPasswordReset(context.Background(), "juan@example.com"); err != nil {
		t.Fatal(err)
	}
	if len(f.mailer.resetURLs) != 1 {
		t.Fatalf("Expected one reset mail, got %d", len(f.mailer.resetURLs))
	}

	// Pull the token out of the emailed link
	url := f.mailer.resetURLs[0]
	idx := strings.Index(url, "token=")
	if idx < 0 {
		t.Fatalf("No token in reset URL: %q", url)
	}
	token := url[idx+len("token="):]

	if err := f.svc.ConfirmPasswordReset(context.Background(), token, "Newpass1!", "Newpass1!"); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	// Old password no longer works, new one does
	if _, err := f.svc.Login(context.Background(), &domain.LoginRequest{Document: "1234567890", Password: "Abcdef1!"}, ""); !errors.Is(err, domain.ErrIncorrectPassword) {
		t.Fatalf("Old password still accepted: %v", err)
	}
	f.store.mu.Lock()
	f.store.profiles[user.ID].Approved = true
	f.store.mu.Unlock()
	if _, err := f.svc.Login(context.Background(), &domain.LoginRequest{Document: "1234567890", Password: "Newpass1!"}, ""); err != nil {
		t.Fatalf("New password rejected: %v", err)
	}

	// The token died with the old hash
	if err := f.svc.ConfirmPasswordReset(context.Background(), token, "Another1!", "Another1!"); err == nil {
		t.Fatal("Used token must not verify again")
	}
}

func TestPasswordReset_MailFailureStaysUniform(t *testing.T) {
	f := newAuthFixture()
	if _, _, err := f.svc.Register(context.Background(), registerReq()); err != nil {
		t.Fatal(err)
	}

	// A degraded mailer must not make matching addresses answer
	// differently from unknown ones.
	f.mailer.sendErr = errors.New("smtp down")
	if err := f.svc.RequestPasswordReset(context.Background(), "juan@example.com"); err != nil {
		t.Fatalf("Mail failure must not surface, got %v", err)
	}
	if err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("Unknown email must not error, got %v", err)
	}
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture()
	if err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("Unknown email must not error, got %v", err)
	}
	if len(f.mailer.resetTo) != 0 {
		t.Fatal("No mail should go out for unknown email")
	}
}

func TestPasswordReset_PolicyAppliesToNewPassword(t *testing.T) {
	f := newAuthFixture()
	if _, _, err := f.svc.Register(context.Background(), registerReq()); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.RequestPasswordReset(context.Background(), "juan@example.com"); err != nil {
		t.Fatal(err)
	}
	url := f.mailer.resetURLs[0]
	token := url[strings.Index(url, "token=")+len("token="):]

	err := f.svc.ConfirmPasswordReset(context.Background(), token, "weak", "weak")
	assertFieldError(t, err, "password")
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	fields, ok := err.(domain.FieldErrors)
	if !ok {
		t.Fatalf("Expected FieldErrors, got %T", err)
	}
	if _, present := fields[field]; !present {
		t.Fatalf("Expected error on field %q, got %v", field, fields)
	}
}
