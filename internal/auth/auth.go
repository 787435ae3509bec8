// Package auth is the identity provider: accounts live in MySQL, sessions and
// password-reset tokens in Redis. A session's UserID partitions the roster.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/jmehdipour/salon-campaigns/internal/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must have at least 8 characters")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
)

const minPasswordLen = 8

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	SalonName string    `json:"salon_name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, token, newPassword string) error
	Authenticate(ctx context.Context, token string) (Session, error)
}

type Options struct {
	SessionTTL time.Duration
	ResetTTL   time.Duration
	ResetURL   string
	BcryptCost int
	Log        *zap.Logger
}

type Service struct {
	accounts repository.AccountsRepository
	tokens   TokenStore
	opts     Options
	now      func() time.Time
}

var _ Provider = (*Service)(nil)

func NewService(accounts repository.AccountsRepository, tokens TokenStore, opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Service{accounts: accounts, tokens: tokens, opts: opts, now: time.Now}
}

func sessionKey(token string) string { return "sess:" + token }
func resetKey(token string) string   { return "reset:" + token }

// userSessionsKey indexes a user's session tokens so a reset can revoke them.
func userSessionsKey(userID string) string { return "user_sess:" + userID }

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignUp creates the account and signs it in. metadata["salon_name"] is kept on the account.
func (s *Service) SignUp(ctx context.Context, email, password string, metadata map[string]string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLen {
		return Session{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	acc := model.Account{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: string(hash),
		SalonName:    strings.TrimSpace(metadata["salon_name"]),
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("create account: %w", err)
	}

	s.opts.Log.Info("account created", zap.String("user_id", acc.ID))
	return s.issue(ctx, acc)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return Session{}, fmt.Errorf("load account: %w", err)
	}
	if acc == nil {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(ctx, *acc)
}

func (s *Service) issue(ctx context.Context, acc model.Account) (Session, error) {
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    acc.ID,
		Email:     acc.Email,
		SalonName: acc.SalonName,
		ExpiresAt: s.now().Add(s.opts.SessionTTL),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.Set(ctx, sessionKey(sess.Token), string(raw), s.opts.SessionTTL); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	if err := s.tokens.AddMember(ctx, userSessionsKey(acc.ID), sess.Token, s.opts.SessionTTL); err != nil {
		return Session{}, fmt.Errorf("index session: %w", err)
	}
	return sess, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.tokens.Del(ctx, sessionKey(token))
}

func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrSessionNotFound
	}
	raw, err := s.tokens.Get(ctx, sessionKey(token))
	if errors.Is(err, errKeyNotFound) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// ResetPassword stores a one-time token and logs the reset link. Unknown
// emails succeed silently so the endpoint cannot be used to probe accounts.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acc == nil {
		return nil
	}

	token := uuid.NewString()
	if err := s.tokens.Set(ctx, resetKey(token), acc.ID, s.opts.ResetTTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	// TODO: hand the link to a transactional mailer once one is configured.
	s.opts.Log.Info("password reset requested",
		zap.String("user_id", acc.ID),
		zap.String("link", s.opts.ResetURL+"?token="+token))
	return nil
}

// ConfirmReset sets the new password and signs out every session of the user.
func (s *Service) ConfirmReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}
	userID, err := s.tokens.Get(ctx, resetKey(token))
	if errors.Is(err, errKeyNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.tokens.Del(ctx, resetKey(token)); err != nil {
		return err
	}
	return s.revokeSessions(ctx, userID)
}

func (s *Service) revokeSessions(ctx context.Context, userID string) error {
	tokens, err := s.tokens.Members(ctx, userSessionsKey(userID))
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, t := range tokens {
		if err := s.tokens.Del(ctx, sessionKey(t)); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}
	if err := s.tokens.Del(ctx, userSessionsKey(userID)); err != nil {
		return err
	}
	s.opts.Log.Info("sessions revoked", zap.String("user_id", userID), zap.Int("count", len(tokens)))
	return nil
}
