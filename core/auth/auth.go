// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package auth implements baas.Authenticator with email/password accounts

Passwords are stored as bcrypt hashes. A successful sign-in returns an HS256
signed session token. Failed attempts are counted per email in a registry
store; five consecutive failures lock the account for 15 minutes. Sign-ins
for the same email are serialized, so concurrent attempts cannot lose a
failure. Signed out tokens are remembered as revoked until they expire;
PruneState removes what is no longer needed.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/relabs-tech/vitrine/core/access"
	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/logger"
	"github.com/relabs-tech/vitrine/core/registry"
)

// Defaults for Config
const (
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 15 * time.Minute
	DefaultTokenTTL        = 12 * time.Hour
	DefaultIssuer          = "vitrine"
	DefaultStateRetention  = 30 * 24 * time.Hour
)

// Errors wrapped by LoginError, in addition to baas.ErrUnauthorized and baas.ErrLocked
var (
	ErrWeakPassword = errors.New("weak password")
	ErrInvalidEmail = errors.New("invalid email")
)

// LoginError is returned by SignIn. Message is meant for the user.
type LoginError struct {
	Message      string
	AttemptsLeft int
	Err          error
}

func (e *LoginError) Error() string {
	return e.Message
}

// Unwrap returns the cause, so that errors.Is works with the sentinel errors
func (e *LoginError) Unwrap() error {
	return e.Err
}

// Config configures the Service
type Config struct {
	// Secret is the HMAC key for session tokens. It must not be empty.
	Secret          []byte
	Issuer          string
	TokenTTL        time.Duration
	MaxAttempts     int
	LockoutDuration time.Duration
	// StateRetention is how long the login state of an email is kept after
	// its last sign-in attempt
	StateRetention time.Duration
	// BcryptCost is used for accounts created with Seed; zero means bcrypt.DefaultCost
	BcryptCost int
	// Now replaces time.Now in tests
	Now func() time.Time
}

// Service signs users in and out. It implements baas.Authenticator.
type Service struct {
	accounts AccountStore
	lockouts registry.Store
	revoked  registry.Store
	config   Config
	emails   emailLocks
}

// New returns a new Service. lockouts stores the login attempts per email,
// revoked stores the IDs of signed out tokens.
func New(accounts AccountStore, lockouts, revoked registry.Store, config Config) (*Service, error) {
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("session secret must not be empty")
	}
	if config.Issuer == "" {
		config.Issuer = DefaultIssuer
	}
	if config.TokenTTL == 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.LockoutDuration == 0 {
		config.LockoutDuration = DefaultLockoutDuration
	}
	if config.StateRetention == 0 {
		config.StateRetention = DefaultStateRetention
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{
		accounts: accounts,
		lockouts: lockouts,
		revoked:  revoked,
		config:   config,
		emails:   emailLocks{locks: map[string]*emailLock{}},
	}, nil
}

// Seed creates an account with the given roles unless the email is taken already
func (s *Service) Seed(ctx context.Context, email, password string, roles ...string) error {
	account, err := NewAccount(email, password, s.config.BcryptCost, roles...)
	if err != nil {
		return err
	}
	if err = s.accounts.EnsureAccount(ctx, account); err != nil {
		return fmt.Errorf("cannot seed account %s: %w", email, err)
	}
	logger.FromContext(ctx).Infoln("ensured account", account.Email)
	return nil
}

// loginState is stored per email in the lockouts registry
type loginState struct {
	FailedAttempts int       `json:"failed_attempts"`
	LockedUntil    time.Time `json:"locked_until,omitempty"`
	LastLogin      time.Time `json:"last_login,omitempty"`
}

func (s *Service) readState(ctx context.Context, email string) (loginState, error) {
	var state loginState
	_, err := s.lockouts.Read(ctx, normalizeEmail(email), &state)
	if err != nil {
		return state, fmt.Errorf("cannot read login state: %w", err)
	}
	if !state.LockedUntil.IsZero() && !s.config.Now().Before(state.LockedUntil) {
		// lock expired, start over
		state.LockedUntil = time.Time{}
		state.FailedAttempts = 0
	}
	return state, nil
}

type emailLock struct {
	sync.Mutex
	refs int
}

// emailLocks hands out one mutex per normalized email. Entries are removed
// when the last holder unlocks.
type emailLocks struct {
	mutex sync.Mutex
	locks map[string]*emailLock
}

func (l *emailLocks) lock(email string) (unlock func()) {
	l.mutex.Lock()
	lock, ok := l.locks[email]
	if !ok {
		lock = &emailLock{}
		l.locks[email] = lock
	}
	lock.refs++
	l.mutex.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		l.mutex.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, email)
		}
		l.mutex.Unlock()
	}
}

func (s *Service) locked(state loginState) bool {
	return !state.LockedUntil.IsZero() && s.config.Now().Before(state.LockedUntil)
}

// SignIn implements baas.Authenticator. Errors meant for the user are of type *LoginError.
func (s *Service) SignIn(ctx context.Context, email, password string) (baas.Session, error) {
	rlog := logger.FromContext(ctx)
	unlock := s.emails.lock(normalizeEmail(email))
	defer unlock()

	state, err := s.readState(ctx, email)
	if err != nil {
		return baas.Session{}, err
	}
	if s.locked(state) {
		minutes := int(math.Ceil(state.LockedUntil.Sub(s.config.Now()).Minutes()))
		return baas.Session{}, &LoginError{
			Message: fmt.Sprintf("Conta temporariamente bloqueada. Tente novamente em %d minutos.", minutes),
			Err:     baas.ErrLocked,
		}
	}

	if strength := CheckPassword(password); !strength.IsStrong {
		return baas.Session{}, &LoginError{
			Message:      strength.Message,
			AttemptsLeft: s.config.MaxAttempts - state.FailedAttempts,
			Err:          ErrWeakPassword,
		}
	}

	var account Account
	var cause error
	message := ""
	if _, err = mail.ParseAddress(email); err != nil {
		message, cause = "E-mail inválido.", ErrInvalidEmail
	} else if account, err = s.accounts.AccountByEmail(ctx, email); errors.Is(err, baas.ErrNotFound) {
		message, cause = "Usuário não encontrado.", baas.ErrNotFound
	} else if err != nil {
		return baas.Session{}, err
	} else if bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)) != nil {
		cause = baas.ErrUnauthorized
	}

	if cause != nil {
		state.FailedAttempts++
		rlog.Warnf("failed sign-in %d/%d for %s", state.FailedAttempts, s.config.MaxAttempts, email)
		if state.FailedAttempts >= s.config.MaxAttempts {
			state.LockedUntil = s.config.Now().Add(s.config.LockoutDuration)
			if err = s.lockouts.Write(ctx, normalizeEmail(email), state); err != nil {
				return baas.Session{}, fmt.Errorf("cannot write login state: %w", err)
			}
			return baas.Session{}, &LoginError{
				Message: fmt.Sprintf("Muitas tentativas falhas. Conta bloqueada por %d minutos.", int(s.config.LockoutDuration.Minutes())),
				Err:     baas.ErrLocked,
			}
		}
		if err = s.lockouts.Write(ctx, normalizeEmail(email), state); err != nil {
			return baas.Session{}, fmt.Errorf("cannot write login state: %w", err)
		}
		attemptsLeft := s.config.MaxAttempts - state.FailedAttempts
		if cause == baas.ErrUnauthorized {
			message = fmt.Sprintf("Senha incorreta. %d tentativas restantes.", attemptsLeft)
		}
		return baas.Session{}, &LoginError{Message: message, AttemptsLeft: attemptsLeft, Err: cause}
	}

	now := s.config.Now()
	if err = s.lockouts.Write(ctx, normalizeEmail(email), loginState{LastLogin: now.UTC()}); err != nil {
		return baas.Session{}, fmt.Errorf("cannot write login state: %w", err)
	}
	session, err := s.issue(account, now)
	if err != nil {
		return session, err
	}
	rlog.Infoln("signed in", account.Email)
	return session, nil
}

type sessionClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func (s *Service) issue(account Account, now time.Time) (baas.Session, error) {
	expiresAt := now.Add(s.config.TokenTTL)
	claims := sessionClaims{
		Email: account.Email,
		Roles: account.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.config.Issuer,
			Subject:   account.Identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return baas.Session{}, fmt.Errorf("cannot sign token: %w", err)
	}
	return baas.Session{
		Token:     token,
		Identity:  account.Identity,
		Email:     account.Email,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

func (s *Service) parse(tokenString string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}, SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, baas.ErrUnauthorized
	}
	now := s.config.Now()
	if !claims.VerifyExpiresAt(now, true) || claims.Issuer != s.config.Issuer {
		return nil, baas.ErrUnauthorized
	}
	return claims, nil
}

// Verify implements baas.Authenticator and access.TokenVerifier
func (s *Service) Verify(ctx context.Context, tokenString string) (*access.Authorization, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	var expiry time.Time
	ts, err := s.revoked.Read(ctx, claims.ID, &expiry)
	if err != nil {
		return nil, fmt.Errorf("cannot check token revocation: %w", err)
	}
	if !ts.IsZero() {
		return nil, baas.ErrUnauthorized
	}
	return &access.Authorization{
		Identity:   claims.Subject,
		Roles:      claims.Roles,
		Properties: map[string]string{"email": claims.Email},
	}, nil
}

// SignOut implements baas.Authenticator. The token stays revoked until it expires.
func (s *Service) SignOut(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	if err = s.revoked.Write(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("cannot revoke token: %w", err)
	}
	logger.FromContext(ctx).Infoln("signed out", claims.Email)
	return nil
}

// PruneState deletes revoked tokens which have expired by now and the login
// state of emails without a sign-in attempt within StateRetention.
func (s *Service) PruneState(ctx context.Context) (revoked, lockouts int64, err error) {
	now := s.config.Now()
	// a token is revoked after it was issued, so its entry outlives it by at most TokenTTL
	if revoked, err = s.revoked.Prune(ctx, now.Add(-s.config.TokenTTL)); err != nil {
		return 0, 0, fmt.Errorf("cannot prune revoked tokens: %w", err)
	}
	if lockouts, err = s.lockouts.Prune(ctx, now.Add(-s.config.StateRetention)); err != nil {
		return revoked, 0, fmt.Errorf("cannot prune login state: %w", err)
	}
	return revoked, lockouts, nil
}

// ScheduleCleanup adds PruneState to the cron scheduler
func (s *Service) ScheduleCleanup(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, rlog := logger.ContextWithLogger(context.Background())
		revoked, lockouts, err := s.PruneState(ctx)
		if err != nil {
			rlog.WithError(err).Errorf("Error 2001: login state cleanup failed")
			return
		}
		if revoked+lockouts > 0 {
			rlog.Infof("login state cleanup removed %d revoked tokens and %d login states", revoked, lockouts)
		}
	})
}

// SecurityStatus describes the login state of an email
type SecurityStatus struct {
	IsLocked       bool       `json:"is_locked"`
	FailedAttempts int        `json:"failed_attempts"`
	AttemptsLeft   int        `json:"attempts_left"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// SecurityStatus returns the login state of email
func (s *Service) SecurityStatus(ctx context.Context, email string) (SecurityStatus, error) {
	state, err := s.readState(ctx, email)
	if err != nil {
		return SecurityStatus{}, err
	}
	status := SecurityStatus{
		IsLocked:       s.locked(state),
		FailedAttempts: state.FailedAttempts,
		AttemptsLeft:   s.config.MaxAttempts - state.FailedAttempts,
	}
	if status.IsLocked {
		status.LockedUntil = &state.LockedUntil
		status.AttemptsLeft = 0
	}
	if !state.LastLogin.IsZero() {
		status.LastLogin = &state.LastLogin
	}
	return status, nil
}

var (
	_ baas.Authenticator   = (*Service)(nil)
	_ access.TokenVerifier = (*Service)(nil)
)
