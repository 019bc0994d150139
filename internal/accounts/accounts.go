package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/repositories"
	"github.com/desertthunder/udj/internal/shared"
	"golang.org/x/oauth2"
)

// Authenticator verifies credentials against the server.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (bool, error)
}

// Manager owns the stored accounts of one account type.
type Manager struct {
	repo        *repositories.AccountRepository
	auth        Authenticator
	accountType string
	tokenType   string
	logger      *log.Logger
}

// NewManager creates a [Manager]. accountType scopes [Manager.List] and tokenType is the kind of token it hands out.
func NewManager(repo *repositories.AccountRepository, auth Authenticator, accountType, tokenType string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		repo:        repo,
		auth:        auth,
		accountType: accountType,
		tokenType:   tokenType,
		logger:      logger,
	}
}

// AccountType returns the type new accounts are stored with.
func (m *Manager) AccountType() string { return m.accountType }

// TokenType returns the token type handed out by [Manager.TokenSource].
func (m *Manager) TokenType() string { return m.tokenType }

// Add verifies the credentials with the server and stores them, replacing the password of an existing account.
//
// Rejected credentials return [shared.ErrAuthFailed] and nothing is stored.
func (m *Manager) Add(ctx context.Context, name, password string) (*models.Account, error) {
	account := models.NewAccount(name, m.accountType, password)
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}

	ok, err := m.auth.Authenticate(ctx, account.Name(), password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: server rejected credentials for %s", shared.ErrAuthFailed, account.Name())
	}

	existing, err := m.repo.GetByName(ctx, account.Name())
	switch {
	case errors.Is(err, shared.ErrAccountNotFound):
		if err := m.repo.Create(account); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		account = existing
		account.SetPassword(password)
	}

	m.cache(account, password)
	if err := m.repo.UpdateContext(ctx, account); err != nil {
		return nil, err
	}

	m.logger.Info("account added", "name", account.Name())
	return account, nil
}

// Get returns the stored account called name.
func (m *Manager) Get(ctx context.Context, name string) (*models.Account, error) {
	return m.repo.GetByName(ctx, name)
}

// List returns every stored account of the manager's type.
func (m *Manager) List() ([]*models.Account, error) {
	return m.repo.List(map[string]any{"account_type": m.accountType})
}

// Remove deletes the account and its sync cursor.
func (m *Manager) Remove(ctx context.Context, name string) error {
	account, err := m.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return m.repo.Delete(account.ID())
}

// Logout drops the cached token; the next sync re-authenticates with the stored password.
func (m *Manager) Logout(ctx context.Context, name string) error {
	account, err := m.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	account.ClearToken()
	return m.repo.UpdateContext(ctx, account)
}

// BlockingGetAuthToken returns a token for the named account, authenticating with the stored password when none is
// cached.
//
// A missing account or rejected credentials return [shared.ErrAuthFailed]. Failures of the credential store itself
// wrap [shared.ErrStorage]. Transport errors are returned as they are.
func (m *Manager) BlockingGetAuthToken(ctx context.Context, name, tokenType string) (*oauth2.Token, error) {
	account, err := m.repo.GetByName(ctx, name)
	if errors.Is(err, shared.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}

	if account.HasValidToken() && account.TokenType() == tokenType {
		return account.Token(), nil
	}

	ok, err := m.auth.Authenticate(ctx, account.Name(), account.Password())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: server rejected stored credentials for %s", shared.ErrAuthFailed, name)
	}

	m.cacheAs(account, account.Password(), tokenType)
	if err := m.repo.UpdateContext(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}

	m.logger.Debug("auth token acquired", "account", name)
	return account.Token(), nil
}

// InvalidateAuthToken clears token from the named account. Other accounts keep their tokens even when they
// happen to cache the same value.
func (m *Manager) InvalidateAuthToken(ctx context.Context, name, token string) error {
	n, err := m.repo.ClearToken(ctx, name, token)
	if err != nil {
		return err
	}
	if n == 0 {
		m.logger.Debug("auth token already replaced", "account", name)
		return nil
	}
	m.logger.Info("auth token invalidated", "account", name)
	return nil
}

// TokenSource hands out tokens of the manager's token type for the named account via
// [Manager.BlockingGetAuthToken]. A token is reused for the life of the source while it stays valid.
func (m *Manager) TokenSource(ctx context.Context, name string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tokenSource{ctx: ctx, manager: m, name: name})
}

func (m *Manager) cache(account *models.Account, secret string) {
	m.cacheAs(account, secret, m.tokenType)
}

func (m *Manager) cacheAs(account *models.Account, secret, tokenType string) {
	account.SetToken(&oauth2.Token{AccessToken: secret})
	account.SetTokenType(tokenType)
}

type tokenSource struct {
	ctx     context.Context
	manager *Manager
	name    string
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	return s.manager.BlockingGetAuthToken(s.ctx, s.name, s.manager.tokenType)
}
