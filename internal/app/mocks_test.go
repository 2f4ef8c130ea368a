package app_test

import (
	"context"
	"errors"
	"time"

	"niblet/internal/assistant"
	"niblet/internal/domain"
)

type mockUserRepo struct {
	getByUsernameFn  func(ctx context.Context, username string) (*domain.User, error)
	getByIDFn        func(ctx context.Context, id int64) (*domain.User, error)
	createFn         func(ctx context.Context, username, passwordHash, role string) (*domain.User, error)
	updatePasswordFn func(ctx context.Context, id int64, passwordHash string) error
	countFn          func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, username, passwordHash, role string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, passwordHash, role)
	}
	return &domain.User{ID: 1, Username: username, PasswordHash: passwordHash, Role: role}, nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	getByTokenFn    func(ctx context.Context, token string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, token string) error
	deleteExpiredFn func(ctx context.Context) error
}

func (m *mockSessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	if m.createFn != nil {
		return m.createFn(ctx, userID, token, expiresAt)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) error {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return nil
}

type mockResponder struct {
	createThreadFn func(ctx context.Context) (string, error)
	sendFn         func(ctx context.Context, threadID, personality, message string) (assistant.Reply, error)
}

func (m *mockResponder) CreateThread(ctx context.Context) (string, error) {
	if m.createThreadFn != nil {
		return m.createThreadFn(ctx)
	}
	return "thread_1", nil
}

func (m *mockResponder) Send(ctx context.Context, threadID, personality, message string) (assistant.Reply, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, threadID, personality, message)
	}
	return assistant.Reply{}, errors.New("not configured")
}
