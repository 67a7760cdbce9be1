// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package authtest provides in-memory doubles of the user directory and the
transactor for service-level tests.

MemoryUserRepository follows the same matching rules as the Postgres
repository: email lookups see live rows only, refresh tokens are matched by
digest (clears only while the digest still matches), and a withdrawn row accepts only a save that keeps it withdrawn.
MemoryTransactor snapshots every registered store when a unit of work starts
and restores the snapshot if the work fails or panics.
*/
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/postgres"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/auth"
)

// # User Directory

// MemoryUserRepository is an in-memory [auth.UserRepository].
type MemoryUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*auth.User

	// Failures makes the named method return the given error, e.g. "Save".
	Failures map[string]error
}

// NewMemoryUserRepository returns an empty directory.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:    map[int64]*auth.User{},
		Failures: map[string]error{},
	}
}

var errUserNotFound = apperr.NotFound("User")

func (repo *MemoryUserRepository) fail(method string) error {
	return repo.Failures[method]
}

func (repo *MemoryUserRepository) find(match func(*auth.User) bool) (*auth.User, error) {
	for _, user := range repo.users {
		if match(user) {
			return clone(user), nil
		}
	}
	return nil, errUserNotFound
}

func (repo *MemoryUserRepository) FindByID(_ context.Context, id int64) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.fail("FindByID"); err != nil {
		return nil, err
	}
	return repo.find(func(user *auth.User) bool { return user.ID == id })
}

func (repo *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.fail("FindByEmail"); err != nil {
		return nil, err
	}
	return repo.find(func(user *auth.User) bool { return user.DeletedAt == nil && user.Email == email })
}

func (repo *MemoryUserRepository) FindByExternalIdentity(_ context.Context, provider, externalID string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	return repo.find(func(user *auth.User) bool {
		return user.ExternalIdentity != nil &&
			user.ExternalIdentity.Provider == provider &&
			user.ExternalIdentity.ID == externalID
	})
}

func (repo *MemoryUserRepository) FindByRefreshToken(_ context.Context, refreshToken string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.fail("FindByRefreshToken"); err != nil {
		return nil, err
	}
	digest := sec.HashToken(refreshToken)
	return repo.find(func(user *auth.User) bool { return user.RefreshToken != nil && user.RefreshToken.Hash == digest })
}

func (repo *MemoryUserRepository) LockByID(ctx context.Context, id int64) (*auth.User, error) {
	if err := repo.fail("LockByID"); err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (repo *MemoryUserRepository) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.fail("Create"); err != nil {
		return err
	}

	for _, existing := range repo.users {
		if existing.DeletedAt == nil && existing.Email == user.Email {
			return auth.ErrDuplicateIdentity
		}
		if user.ExternalIdentity != nil && existing.ExternalIdentity != nil && *existing.ExternalIdentity == *user.ExternalIdentity {
			return auth.ErrDuplicateIdentity
		}
	}

	repo.nextID++
	now := time.Now()
	user.ID = repo.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	repo.users[user.ID] = clone(user)
	return nil
}

func (repo *MemoryUserRepository) Save(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.fail("Save"); err != nil {
		return err
	}

	stored, ok := repo.users[user.ID]
	if !ok {
		return errUserNotFound
	}
	if stored.DeletedAt != nil && user.Role != sec.RoleWithdrawn {
		return auth.ErrAccountWithdrawn
	}

	user.UpdatedAt = time.Now()
	repo.users[user.ID] = clone(user)
	return nil
}

func (repo *MemoryUserRepository) UpdateRefreshToken(_ context.Context, userID int64, refreshToken string, expiresAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.fail("UpdateRefreshToken"); err != nil {
		return err
	}

	stored, ok := repo.users[userID]
	if !ok || stored.DeletedAt != nil {
		return auth.ErrAccountWithdrawn
	}
	stored.RefreshToken = &auth.RefreshCredential{Hash: sec.HashToken(refreshToken), ExpiresAt: expiresAt}
	return nil
}

func (repo *MemoryUserRepository) ClearRefreshToken(_ context.Context, userID int64, refreshToken string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.fail("ClearRefreshToken"); err != nil {
		return err
	}

	stored, ok := repo.users[userID]
	if ok && stored.RefreshToken != nil && stored.RefreshToken.Hash == sec.HashToken(refreshToken) {
		stored.RefreshToken = nil
	}
	return nil
}

func (repo *MemoryUserRepository) RevokeRefreshToken(_ context.Context, userID int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.fail("RevokeRefreshToken"); err != nil {
		return err
	}

	if stored, ok := repo.users[userID]; ok {
		stored.RefreshToken = nil
	}
	return nil
}

func (repo *MemoryUserRepository) GetSentinel(_ context.Context) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.fail("GetSentinel"); err != nil {
		return nil, err
	}

	for _, user := range repo.users {
		if user.Email == auth.SentinelEmail && user.Role == sec.RoleWithdrawn {
			return clone(user), nil
		}
	}

	repo.nextID++
	now := time.Now()
	sentinel := &auth.User{
		ID:        repo.nextID,
		Email:     auth.SentinelEmail,
		Name:      auth.SentinelName,
		Role:      sec.RoleWithdrawn,
		CreatedAt: now,
		UpdatedAt: now,
		DeletedAt: &now,
	}
	repo.users[sentinel.ID] = sentinel
	return clone(sentinel), nil
}

// Get returns the stored row without any lookup rules. Nil when absent.
func (repo *MemoryUserRepository) Get(id int64) *auth.User {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if user, ok := repo.users[id]; ok {
		return clone(user)
	}
	return nil
}

// Len reports how many rows exist, the sentinel included.
func (repo *MemoryUserRepository) Len() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.users)
}

// Snapshot implements [Snapshotter].
func (repo *MemoryUserRepository) Snapshot() (restore func()) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	saved := make(map[int64]*auth.User, len(repo.users))
	for id, user := range repo.users {
		saved[id] = clone(user)
	}
	nextID := repo.nextID

	return func() {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		repo.users = saved
		repo.nextID = nextID
	}
}

func clone(user *auth.User) *auth.User {
	copied := *user
	if user.ExternalIdentity != nil {
		identity := *user.ExternalIdentity
		copied.ExternalIdentity = &identity
	}
	if user.RefreshToken != nil {
		credential := *user.RefreshToken
		copied.RefreshToken = &credential
	}
	if user.DeletedAt != nil {
		deletedAt := *user.DeletedAt
		copied.DeletedAt = &deletedAt
	}
	return &copied
}

// # Transactions

// Snapshotter captures state that a failed unit of work must roll back.
type Snapshotter interface {
	Snapshot() (restore func())
}

// MemoryTransactor emulates commit and rollback over [Snapshotter] stores.
type MemoryTransactor struct {
	mu     sync.Mutex
	stores []Snapshotter

	// Modes records the mode of every Run call, in order.
	Modes []postgres.TxMode

	// RolledBack counts units of work that were rolled back.
	RolledBack int
}

// NewMemoryTransactor creates a transactor over stores.
func NewMemoryTransactor(stores ...Snapshotter) *MemoryTransactor {
	return &MemoryTransactor{stores: stores}
}

// Run implements the service Transactor contracts.
func (transactor *MemoryTransactor) Run(ctx context.Context, mode postgres.TxMode, work func(ctx context.Context) error) (err error) {
	transactor.mu.Lock()
	transactor.Modes = append(transactor.Modes, mode)
	restores := make([]func(), 0, len(transactor.stores))
	for _, store := range transactor.stores {
		restores = append(restores, store.Snapshot())
	}
	transactor.mu.Unlock()

	rollback := func() {
		for _, restore := range restores {
			restore()
		}
		transactor.mu.Lock()
		transactor.RolledBack++
		transactor.mu.Unlock()
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			rollback()
			panic(recovered)
		}
	}()

	if err = work(ctx); err != nil {
		rollback()
	}
	return err
}
