package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]model.Account
}

func newMemAccounts() *memAccounts { return &memAccounts{byID: map[string]model.Account{}} }

func (m *memAccounts) Create(_ context.Context, a model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	m.byID[a.ID] = a
	return nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == email {
			return &x, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x, ok := m.byID[id]; ok {
		return &x, nil
	}
	return nil, nil
}

func (m *memAccounts) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.byID[id]
	a.PasswordHash = hash
	m.byID[id] = a
	return nil
}

type memTokens struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string][]string
	ttls map[string]time.Duration
}

func newMemTokens() *memTokens {
	return &memTokens{data: map[string]string{}, sets: map[string][]string{}, ttls: map[string]time.Duration{}}
}

func (m *memTokens) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memTokens) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", errKeyNotFound
	}
	return v, nil
}

func (m *memTokens) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.sets, key)
	return nil
}

func (m *memTokens) AddMember(_ context.Context, key, member string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[key] = append(m.sets[key], member)
	m.ttls[key] = ttl
	return nil
}

func (m *memTokens) Members(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sets[key]...), nil
}

func newTestService(t *testing.T) (*Service, *memTokens, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	tokens := newMemTokens()
	svc := NewService(newMemAccounts(), tokens, Options{
		SessionTTL: time.Hour,
		ResetURL:   "http://salon.local/reset",
		BcryptCost: bcrypt.MinCost,
		Log:        zap.New(core),
	})
	return svc, tokens, logs
}

func TestSignUpSignInAuthenticate(t *testing.T) {
	svc, tokens, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, " Ania@Salon.PL ", "tajne-haslo", map[string]string{"salon_name": "Studio Róża"})
	require.NoError(t, err)
	assert.Equal(t, "ania@salon.pl", sess.Email)
	assert.Equal(t, "Studio Róża", sess.SalonName)
	assert.NotEmpty(t, sess.UserID)
	assert.Equal(t, time.Hour, tokens.ttls["sess:"+sess.Token])

	_, err = svc.SignUp(ctx, "ania@salon.pl", "another-pass", nil)
	assert.ErrorIs(t, err, ErrEmailTaken)

	in, err := svc.SignIn(ctx, "ANIA@salon.pl", "tajne-haslo")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, in.UserID)
	assert.NotEqual(t, sess.Token, in.Token)

	got, err := svc.Authenticate(ctx, in.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)

	require.NoError(t, svc.SignOut(ctx, in.Token))
	_, err = svc.Authenticate(ctx, in.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSignIn_Rejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "kasia@salon.pl", "short", nil)
	assert.ErrorIs(t, err, ErrWeakPassword)
	_, err = svc.SignUp(ctx, "not-an-email", "long-enough", nil)
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.SignUp(ctx, "kasia@salon.pl", "long-enough", nil)
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "kasia@salon.pl", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "nobody@salon.pl", "long-enough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResetPasswordFlow(t *testing.T) {
	svc, _, logs := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ola@salon.pl", "old-password", nil)
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, "unknown@salon.pl"))
	assert.Zero(t, logs.FilterMessage("password reset requested").Len())

	require.NoError(t, svc.ResetPassword(ctx, "ola@salon.pl"))
	entries := logs.FilterMessage("password reset requested").All()
	require.Len(t, entries, 1)
	link := entries[0].ContextMap()["link"].(string)
	require.True(t, strings.HasPrefix(link, "http://salon.local/reset?token="))
	token := strings.TrimPrefix(link, "http://salon.local/reset?token=")

	assert.ErrorIs(t, svc.ConfirmReset(ctx, token, "123"), ErrWeakPassword)
	require.NoError(t, svc.ConfirmReset(ctx, token, "new-password"))
	assert.ErrorIs(t, svc.ConfirmReset(ctx, token, "new-password"), ErrResetTokenInvalid)

	_, err = svc.SignIn(ctx, "ola@salon.pl", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "ola@salon.pl", "new-password")
	assert.NoError(t, err)
}

func TestConfirmReset_RevokesSessions(t *testing.T) {
	svc, tokens, logs := newTestService(t)
	ctx := context.Background()

	first, err := svc.SignUp(ctx, "ewa@salon.pl", "old-password", nil)
	require.NoError(t, err)
	second, err := svc.SignIn(ctx, "ewa@salon.pl", "old-password")
	require.NoError(t, err)
	assert.Len(t, tokens.sets["user_sess:"+first.UserID], 2)

	require.NoError(t, svc.ResetPassword(ctx, "ewa@salon.pl"))
	link := logs.FilterMessage("password reset requested").All()[0].ContextMap()["link"].(string)
	token := strings.TrimPrefix(link, "http://salon.local/reset?token=")
	require.NoError(t, svc.ConfirmReset(ctx, token, "new-password"))

	for _, tok := range []string{first.Token, second.Token} {
		_, err := svc.Authenticate(ctx, tok)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}
	assert.Empty(t, tokens.sets["user_sess:"+first.UserID])

	fresh, err := svc.SignIn(ctx, "ewa@salon.pl", "new-password")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, fresh.Token)
	assert.NoError(t, err)
}
