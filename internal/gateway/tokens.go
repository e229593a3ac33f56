package gateway

import (
	"context"
	"errors"
	"sync"
)

// ErrNoToken is returned by a StaticToken after it has been invalidated.
var ErrNoToken = errors.New("gateway: no token, sign in again")

// StaticToken serves a fixed token until the API rejects it.
type StaticToken struct {
	mu    sync.Mutex
	token string
}

// NewStaticToken returns a source serving token.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

func (s *StaticToken) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

func (s *StaticToken) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Signer exchanges credentials for a token. *Client implements it.
type Signer interface {
	SignIn(ctx context.Context, email, password string) (string, error)
}

// PasswordLogin signs in with stored credentials and caches the token until
// it is invalidated.
type PasswordLogin struct {
	mu       sync.Mutex
	signer   Signer
	email    string
	password string
	token    string
}

// NewPasswordLogin returns a source that signs in through signer, usually an
// anonymous Client.
func NewPasswordLogin(signer Signer, email, password string) *PasswordLogin {
	return &PasswordLogin{signer: signer, email: email, password: password}
}

func (p *PasswordLogin) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" {
		return p.token, nil
	}
	token, err := p.signer.SignIn(ctx, p.email, p.password)
	if err != nil {
		return "", err
	}
	p.token = token
	return token, nil
}

func (p *PasswordLogin) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
}
