package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Account is a UDJ login held by the local credential store.
//
// The cached token is opaque: the server accepts it in place of the password until it is invalidated.
type Account struct {
	id          string
	name        string
	accountType string
	password    string
	token       *oauth2.Token
	tokenType   string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewAccount creates an [Account] without an ID or cached token.
func NewAccount(name, accountType, password string) *Account {
	now := time.Now().UTC()
	return &Account{
		name:        strings.TrimSpace(name),
		accountType: accountType,
		password:    password,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (a *Account) ID() string { return a.id }
func (a *Account) Name() string { return a.name }
func (a *Account) AccountType() string { return a.accountType }
func (a *Account) Password() string { return a.password }
func (a *Account) Token() *oauth2.Token { return a.token }
func (a *Account) TokenType() string { return a.tokenType }
func (a *Account) CreatedAt() time.Time { return a.createdAt }
func (a *Account) UpdatedAt() time.Time { return a.updatedAt }

func (a *Account) SetID(id string) { a.id = id }
func (a *Account) SetPassword(p string) { a.password = p }
func (a *Account) SetCreatedAt(t time.Time) { a.createdAt = t }
func (a *Account) SetUpdatedAt(t time.Time) { a.updatedAt = t }
func (a *Account) SetTokenType(tt string) { a.tokenType = tt }
func (a *Account) SetToken(token *oauth2.Token) { a.token = token }

// HasValidToken reports whether a cached token can be used without re-authenticating.
func (a *Account) HasValidToken() bool {
	return a.token != nil && a.token.Valid()
}

// ClearToken drops the cached token.
func (a *Account) ClearToken() {
	a.token = nil
	a.tokenType = ""
}

// Validate checks required fields.
func (a *Account) Validate() error {
	if a.name == "" {
		return fmt.Errorf("account name is required")
	}
	if a.accountType == "" {
		return fmt.Errorf("account type is required")
	}
	if a.password == "" {
		return fmt.Errorf("account password is required")
	}
	return nil
}
