package session

import (
	"context"

	"bodycoach/internal/identity"
)

type identityProvider struct {
	auth *identity.Auth
}

// NewIdentityProvider exposes an identity client as a Provider. The client
// should not be used directly by anything else once wrapped.
func NewIdentityProvider(auth *identity.Auth) Provider {
	return &identityProvider{auth: auth}
}

func (p *identityProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := p.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return fromUser(user), nil
}

func (p *identityProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	user, err := p.auth.CreateUserWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return fromUser(user), nil
}

func (p *identityProvider) SignOut(ctx context.Context) error {
	return p.auth.SignOut(ctx)
}

func (p *identityProvider) Subscribe(fn func(*Session)) func() {
	return p.auth.Subscribe(func(user *identity.User) {
		fn(fromUser(user))
	})
}

func fromUser(user *identity.User) *Session {
	if user == nil {
		return nil
	}
	return &Session{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Tokens:      user,
	}
}
