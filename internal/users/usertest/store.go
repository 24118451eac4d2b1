// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package usertest provides in-memory implementations of the account storage
contracts for tests.

A [Store] holds every table behind one mutex. Its repositories enforce the same
uniqueness and consumption rules as the Postgres stores, and [Store.WithinTx]
runs transactions one at a time, restoring a snapshot when fn fails.

Writes made outside a transaction while another transaction is being rolled
back are lost with it. Tests that rely on rollback should not mix the two.
*/
package usertest

import (
	"context"
	"sync"

	"github.com/taibuivan/yomira-auth/internal/audit"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
)

type txKey struct{}

// Store is an in-memory database for the users domain.
type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	users    map[string]auth.User
	otps     []auth.OTP
	tokens   []auth.RefreshToken
	events   []audit.Event
	failures map[string]error
}

// NewStore creates an empty [Store].
func NewStore() *Store {
	return &Store{
		users:    map[string]auth.User{},
		failures: map[string]error{},
	}
}

// Users returns the user and account repository view of the store.
func (store *Store) Users() *UserRepository { return &UserRepository{store: store} }

// OTPs returns the one-time passcode repository view of the store.
func (store *Store) OTPs() *OTPRepository { return &OTPRepository{store: store} }

// Tokens returns the refresh token repository view of the store.
func (store *Store) Tokens() *TokenRepository { return &TokenRepository{store: store} }

// Audit returns the audit repository view of the store.
func (store *Store) Audit() *AuditRepository { return &AuditRepository{store: store} }

// Fail makes every later call of op return err. A nil err clears it.
// Operation names are "<repository>.<Method>", e.g. "tokens.Create".
func (store *Store) Fail(op string, err error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err == nil {
		delete(store.failures, op)
		return
	}
	store.failures[op] = err
}

// failure must be called with mu held.
func (store *Store) failure(op string) error {
	return store.failures[op]
}

// # Transactions

type snapshot struct {
	users  map[string]auth.User
	otps   []auth.OTP
	tokens []auth.RefreshToken
}

// WithinTx implements [auth.Transactor]. Nested calls join the outer
// transaction.
func (store *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	store.txMu.Lock()
	defer store.txMu.Unlock()

	saved := store.snapshot()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		store.restore(saved)
		return err
	}

	return nil
}

func (store *Store) snapshot() snapshot {
	store.mu.Lock()
	defer store.mu.Unlock()

	users := make(map[string]auth.User, len(store.users))
	for id, user := range store.users {
		users[id] = user
	}

	return snapshot{
		users:  users,
		otps:   append([]auth.OTP(nil), store.otps...),
		tokens: append([]auth.RefreshToken(nil), store.tokens...),
	}
}

func (store *Store) restore(saved snapshot) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.users = saved.users
	store.otps = saved.otps
	store.tokens = saved.tokens
}
