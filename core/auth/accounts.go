// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/csql"
)

// Account is a user who can sign in
type Account struct {
	Identity     string
	Email        string
	PasswordHash []byte
	Roles        []string
}

// AccountStore looks up accounts by email. AccountByEmail returns
// baas.ErrNotFound for unknown emails. EnsureAccount creates the account
// unless one with the same email exists already.
type AccountStore interface {
	AccountByEmail(ctx context.Context, email string) (Account, error)
	EnsureAccount(ctx context.Context, account Account) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewAccount creates an account with a bcrypt hash of password. The password
// must satisfy the password policy.
func NewAccount(email, password string, cost int, roles ...string) (Account, error) {
	if strength := CheckPassword(password); !strength.IsStrong {
		return Account{}, fmt.Errorf("password for %s is too weak: %s", email, strength.Message)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return Account{}, err
	}
	return Account{
		Identity:     uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Roles:        roles,
	}, nil
}

// PostgresAccounts keeps accounts in the table "account" of the service schema
type PostgresAccounts struct {
	db          *csql.DB
	selectQuery string
	insertQuery string
}

// NewPostgresAccounts creates the account table if needed
func NewPostgresAccounts(ctx context.Context, db *csql.DB) (*PostgresAccounts, error) {
	_, err := db.ExecContext(ctx, `CREATE table IF NOT EXISTS `+db.Schema+`.account
(account_id uuid NOT NULL DEFAULT uuid_generate_v4(),
email varchar NOT NULL,
password_hash bytea NOT NULL,
properties json NOT NULL DEFAULT '{}'::jsonb,
PRIMARY KEY(account_id),
UNIQUE(email)
);`)
	if err != nil {
		return nil, fmt.Errorf("cannot create account table: %w", err)
	}
	return &PostgresAccounts{
		db:          db,
		selectQuery: fmt.Sprintf("SELECT account_id, email, password_hash, properties FROM %s.account WHERE email=$1;", db.Schema),
		insertQuery: fmt.Sprintf("INSERT INTO %s.account (account_id, email, password_hash, properties) VALUES($1,$2,$3,$4) ON CONFLICT DO NOTHING;", db.Schema),
	}, nil
}

type accountProperties struct {
	Roles []string `json:"roles"`
}

// AccountByEmail implements AccountStore
func (p *PostgresAccounts) AccountByEmail(ctx context.Context, email string) (Account, error) {
	var (
		account    Account
		id         uuid.UUID
		properties []byte
	)
	err := p.db.QueryRowContext(ctx, p.selectQuery, normalizeEmail(email)).
		Scan(&id, &account.Email, &account.PasswordHash, &properties)
	if errors.Is(err, csql.ErrNoRows) {
		return account, baas.ErrNotFound
	}
	if err != nil {
		return account, fmt.Errorf("cannot read account: %w", err)
	}
	var props accountProperties
	if err = json.Unmarshal(properties, &props); err != nil {
		return account, fmt.Errorf("invalid account properties: %w", err)
	}
	account.Identity = id.String()
	account.Roles = props.Roles
	return account, nil
}

// EnsureAccount implements AccountStore
func (p *PostgresAccounts) EnsureAccount(ctx context.Context, account Account) error {
	id, err := uuid.Parse(account.Identity)
	if err != nil {
		return fmt.Errorf("invalid account identity '%s': %w", account.Identity, err)
	}
	properties, _ := json.Marshal(accountProperties{Roles: account.Roles})
	_, err = p.db.ExecContext(ctx, p.insertQuery, id, normalizeEmail(account.Email), account.PasswordHash, string(properties))
	return err
}

// MemoryAccounts keeps accounts in memory
type MemoryAccounts struct {
	mutex    sync.RWMutex
	accounts map[string]Account
}

// NewMemoryAccounts returns an empty account store
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: map[string]Account{}}
}

// AccountByEmail implements AccountStore
func (m *MemoryAccounts) AccountByEmail(ctx context.Context, email string) (Account, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	account, ok := m.accounts[normalizeEmail(email)]
	if !ok {
		return account, baas.ErrNotFound
	}
	return account, nil
}

// EnsureAccount implements AccountStore
func (m *MemoryAccounts) EnsureAccount(ctx context.Context, account Account) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	email := normalizeEmail(account.Email)
	if _, ok := m.accounts[email]; !ok {
		account.Email = email
		m.accounts[email] = account
	}
	return nil
}
