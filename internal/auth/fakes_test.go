package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/users"
	"github.com/librisvault/librisvault-backend/pkg/auth/session"
	"github.com/librisvault/librisvault-backend/pkg/config"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "libris-vault", ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}
}

type fakeUsers struct {
	users.Repository
	byID       map[uuid.UUID]*models.User
	lastLogin  map[uuid.UUID]time.Time
	verified   map[uuid.UUID]time.Time
	createErr  error
	lookupErr  error
	createdDTO []users.CreateUserDTO
}

func newFakeUsers(seed ...*models.User) *fakeUsers {
	f := &fakeUsers{
		byID:      map[uuid.UUID]*models.User{},
		lastLogin: map[uuid.UUID]time.Time{},
		verified:  map[uuid.UUID]time.Time{},
	}
	for _, u := range seed {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) WithTx(*gorm.DB) users.Repository { return f }

func (f *fakeUsers) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdDTO = append(f.createdDTO, dto)
	user := dto.ToModel()
	user.ID = uuid.New()
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Phone != nil && *u.Phone == phone {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.lastLogin[id] = at
	return nil
}

func (f *fakeUsers) MarkPhoneVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	f.verified[id] = at
	return nil
}

type fakeStores struct {
	byOwner map[uuid.UUID]uuid.UUID
}

func (f fakeStores) FindByOwner(_ context.Context, ownerUserID uuid.UUID) (*models.Store, error) {
	id, ok := f.byOwner[ownerUserID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Store{ID: id, OwnerUserID: ownerUserID}, nil
}

type sessionRecord struct {
	token  string
	userID uuid.UUID
}

type fakeSessions struct {
	records map[string]sessionRecord
	seq     int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: map[string]sessionRecord{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string, userID uuid.UUID) (string, error) {
	f.seq++
	token := "refresh-" + strings.Repeat("x", f.seq)
	f.records[accessID] = sessionRecord{token: token, userID: userID}
	return token, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, uuid.UUID, error) {
	rec, ok := f.records[oldAccessID]
	if !ok || rec.token != provided {
		return "", "", uuid.Nil, session.ErrInvalidRefreshToken
	}
	delete(f.records, oldAccessID)
	newID := session.NewAccessID()
	token, _ := f.Generate(ctx, newID, rec.userID)
	return newID, token, rec.userID, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.records, accessID)
	return nil
}

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

type passTx struct{}

func (passTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func strPtr(s string) *string { return &s }

func seedUser(role enums.Role, email, password string) *models.User {
	hash, err := hashForTest(password)
	if err != nil {
		panic(err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    "Ada",
		LastName:     "Lovelace",
	}
}
