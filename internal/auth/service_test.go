package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/config"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/otp"
	"github.com/librisvault/librisvault-backend/pkg/security"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func hashForTest(password string) (string, error) {
	return security.HashPassword(password, testPasswordConfig)
}

type harness struct {
	svc      Service
	users    *fakeUsers
	sessions *fakeSessions
	limiter  *fakeLimiter
	otp      *otp.MemoryStore
}

func newHarness(t *testing.T, stores fakeStores, seed ...*models.User) *harness {
	t.Helper()
	h := &harness{
		users:    newFakeUsers(seed...),
		sessions: newFakeSessions(),
		limiter:  &fakeLimiter{},
		otp:      otp.NewMemoryStore(3),
	}
	svc, err := NewService(ServiceParams{
		UserRepo:        h.users,
		StoreRepo:       stores,
		SessionManager:  h.sessions,
		RateLimiter:     h.limiter,
		OTPStore:        h.otp,
		JWTConfig:       testJWTConfig(),
		RateLimitConfig: config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginEmailLimit: 3, OTPWindow: time.Minute, OTPPhoneLimit: 2},
		OTPConfig:       config.OTPConfig{TTL: 5 * time.Minute, Length: 6, MaxAttempts: 3},
		ExposeOTP:       true,
		Now:             func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	return h
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without user repository")
	}
}

func TestLoginCustomer(t *testing.T) {
	user := seedUser(enums.RoleCustomer, "reader@example.com", "correct-horse")
	h := newHarness(t, fakeStores{}, user)

	resp, err := h.svc.Login(context.Background(), LoginRequest{Email: " Reader@Example.com ", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.StoreID != nil {
		t.Fatalf("customer should not carry a store id")
	}
	if resp.RefreshToken == "" {
		t.Fatal("expected refresh token")
	}

	claims, err := pkgAuth.ParseAccessTokenAllowExpired(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.RoleCustomer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, ok := h.sessions.records[claims.ID]; !ok {
		t.Fatalf("expected session keyed by jti %s", claims.ID)
	}
	if got := h.users.lastLogin[user.ID]; !got.Equal(fixedNow) {
		t.Fatalf("expected last login %v, got %v", fixedNow, got)
	}
}

func TestLoginSellerCarriesStore(t *testing.T) {
	user := seedUser(enums.RoleSeller, "seller@example.com", "correct-horse")
	storeID := uuid.New()
	h := newHarness(t, fakeStores{byOwner: map[uuid.UUID]uuid.UUID{user.ID: storeID}}, user)

	resp, err := h.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.StoreID == nil || *resp.StoreID != storeID {
		t.Fatalf("expected store %s, got %v", storeID, resp.StoreID)
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.StoreID == nil || *claims.StoreID != storeID {
		t.Fatalf("expected store claim %s", storeID)
	}
}

func TestLoginSellerWithoutStore(t *testing.T) {
	user := seedUser(enums.RoleSeller, "new-seller@example.com", "correct-horse")
	h := newHarness(t, fakeStores{}, user)

	resp, err := h.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.StoreID != nil {
		t.Fatalf("expected no store claim, got %s", resp.StoreID)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	user := seedUser(enums.RoleCustomer, "reader@example.com", "correct-horse")
	h := newHarness(t, fakeStores{}, user)

	cases := []LoginRequest{
		{Email: user.Email, Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "correct-horse"},
		{Email: "", Password: "correct-horse"},
	}
	for _, req := range cases {
		_, err := h.svc.Login(context.Background(), req)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
			t.Fatalf("login %q: expected unauthorized, got %v", req.Email, err)
		}
	}
}

func TestLoginRateLimited(t *testing.T) {
	user := seedUser(enums.RoleCustomer, "reader@example.com", "correct-horse")
	h := newHarness(t, fakeStores{}, user)

	for i := 0; i < 3; i++ {
		if _, err := h.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "nope-nope"}); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
			t.Fatalf("attempt %d: expected unauthorized, got %v", i+1, err)
		}
	}
	_, err := h.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit, got %v", err)
	}
}

func TestLoginLimiterOutageFailsOpen(t *testing.T) {
	user := seedUser(enums.RoleCustomer, "reader@example.com", "correct-horse")
	h := newHarness(t, fakeStores{}, user)
	h.limiter.err = errors.New("redis down")

	if _, err := h.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"}); err != nil {
		t.Fatalf("expected login despite limiter outage, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	user := seedUser(enums.RoleSeller, "seller@example.com", "correct-horse")
	storeID := uuid.New()
	stores := fakeStores{byOwner: map[uuid.UUID]uuid.UUID{user.ID: storeID}}
	h := newHarness(t, stores, user)
	ctx := context.Background()

	first, err := h.svc.Login(ctx, LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	oldClaims, _ := pkgAuth.ParseAccessTokenAllowExpired(testJWTConfig(), first.AccessToken)

	// the store is gone and the owner was demoted since the last login
	delete(stores.byOwner, user.ID)
	h.users.byID[user.ID].Role = enums.RoleCustomer

	second, err := h.svc.Refresh(ctx, first.AccessToken, RefreshRequest{RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	newClaims, err := pkgAuth.ParseAccessTokenAllowExpired(testJWTConfig(), second.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if newClaims.ID == oldClaims.ID {
		t.Fatal("expected a new jti")
	}
	if newClaims.Role != enums.RoleCustomer || newClaims.StoreID != nil {
		t.Fatalf("expected demoted claims, got %+v", newClaims)
	}
	if _, ok := h.sessions.records[oldClaims.ID]; ok {
		t.Fatal("old session should be retired")
	}

	if _, err := h.svc.Refresh(ctx, first.AccessToken, RefreshRequest{RefreshToken: first.RefreshToken}); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected reuse to be rejected, got %v", err)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	h := newHarness(t, fakeStores{})
	_, err := h.svc.Refresh(context.Background(), "not-a-jwt", RefreshRequest{RefreshToken: "x"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	user := seedUser(enums.RoleCustomer, "reader@example.com", "correct-horse")
	h := newHarness(t, fakeStores{}, user)
	ctx := context.Background()

	resp, err := h.svc.Login(ctx, LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, _ := pkgAuth.ParseAccessTokenAllowExpired(testJWTConfig(), resp.AccessToken)
	if err := h.svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(h.sessions.records) != 0 {
		t.Fatalf("expected no sessions, got %d", len(h.sessions.records))
	}
	if err := h.svc.Logout(ctx, " "); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for empty session, got %v", err)
	}
}

func TestOTPFlow(t *testing.T) {
	user := seedUser(enums.RoleCustomer, "reader@example.com", "correct-horse")
	user.Phone = strPtr("+15551234567")
	h := newHarness(t, fakeStores{}, user)
	ctx := context.Background()

	issued, err := h.svc.RequestOTP(ctx, user.ID, OTPRequest{Phone: "+15551234567"})
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if len(issued.DevCode) != 6 || issued.ExpiresInSeconds != 300 {
		t.Fatalf("unexpected issue: %+v", issued)
	}

	if _, err := h.svc.VerifyOTP(ctx, user.ID, OTPVerifyRequest{Phone: "+15551234567", Code: wrongCode(issued.DevCode)}); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected mismatch to be unauthorized, got %v", err)
	}

	dto, err := h.svc.VerifyOTP(ctx, user.ID, OTPVerifyRequest{Phone: "+15551234567", Code: issued.DevCode})
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if dto.PhoneVerifiedAt == nil || !dto.PhoneVerifiedAt.Equal(fixedNow) {
		t.Fatalf("expected phone verified at %v, got %v", fixedNow, dto.PhoneVerifiedAt)
	}
	if _, ok := h.users.verified[user.ID]; !ok {
		t.Fatal("expected verification to be persisted")
	}

	if _, err := h.svc.VerifyOTP(ctx, user.ID, OTPVerifyRequest{Phone: "+15551234567", Code: issued.DevCode}); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected consumed code to be rejected, got %v", err)
	}
}

func TestOTPAttemptsExhausted(t *testing.T) {
	user := seedUser(enums.RoleCustomer, "reader@example.com", "correct-horse")
	user.Phone = strPtr("+15551234567")
	h := newHarness(t, fakeStores{}, user)
	ctx := context.Background()

	issued, err := h.svc.RequestOTP(ctx, user.ID, OTPRequest{Phone: "+15551234567"})
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	bad := OTPVerifyRequest{Phone: "+15551234567", Code: wrongCode(issued.DevCode)}
	_, _ = h.svc.VerifyOTP(ctx, user.ID, bad)
	_, _ = h.svc.VerifyOTP(ctx, user.ID, bad)
	if _, err := h.svc.VerifyOTP(ctx, user.ID, bad); pkgerrors.CodeOf(err) != pkgerrors.CodeRateLimit {
		t.Fatalf("expected attempts exhausted, got %v", err)
	}
}

func TestRequestOTPRejectsForeignPhoneAndRateLimits(t *testing.T) {
	user := seedUser(enums.RoleCustomer, "reader@example.com", "correct-horse")
	user.Phone = strPtr("+15551234567")
	h := newHarness(t, fakeStores{}, user)
	ctx := context.Background()

	if _, err := h.svc.RequestOTP(ctx, user.ID, OTPRequest{Phone: "+15559999999"}); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for foreign phone, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := h.svc.RequestOTP(ctx, user.ID, OTPRequest{Phone: "+15551234567"}); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if _, err := h.svc.RequestOTP(ctx, user.ID, OTPRequest{Phone: "+15551234567"}); pkgerrors.CodeOf(err) != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit, got %v", err)
	}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
