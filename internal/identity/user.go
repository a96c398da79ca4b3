package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// User is a signed-in principal. Its ID token is refreshed through the
// secure token endpoint using the refresh-token grant.
type User struct {
	UID         string
	Email       string
	DisplayName string

	mu         sync.Mutex
	conf       *oauth2.Config
	httpClient *http.Client
	token      *oauth2.Token
}

func newUser(uid, email, displayName string, conf *oauth2.Config, httpClient *http.Client, token *oauth2.Token) *User {
	return &User{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		conf:        conf,
		httpClient:  httpClient,
		token:       token,
	}
}

// IDToken returns the current ID token. With forceRefresh, or once the cached
// token has expired, a new one is obtained from the secure token endpoint.
func (u *User) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !forceRefresh && u.token.Valid() {
		return idTokenOf(u.token), nil
	}

	if u.token == nil || u.token.RefreshToken == "" {
		return "", &Error{Code: CodeTokenExpired, Message: "no refresh token"}
	}

	if u.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, u.httpClient)
	}

	// A fresh source with only the refresh token always performs the grant.
	refreshed, err := u.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: u.token.RefreshToken}).Token()
	if err != nil {
		return "", refreshError(err)
	}

	u.token = refreshed
	return idTokenOf(refreshed), nil
}

func idTokenOf(token *oauth2.Token) string {
	if raw, ok := token.Extra("id_token").(string); ok && raw != "" {
		return raw
	}
	return token.AccessToken
}

func refreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		providerErr := parseRESTError(retrieveErr.Body)
		providerErr.Err = err
		return providerErr
	}
	return &Error{Code: CodeNetworkRequestFailed, Message: err.Error(), Err: err}
}

// credentialResponse is the body returned by signInWithPassword and signUp.
type credentialResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (r credentialResponse) token(now time.Time) (*oauth2.Token, error) {
	var seconds int64 = 3600
	if r.ExpiresIn != "" {
		parsed, err := strconv.ParseInt(r.ExpiresIn, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("identity: invalid expiresIn %q: %w", r.ExpiresIn, err)
		}
		seconds = parsed
	}

	token := &oauth2.Token{
		AccessToken:  r.IDToken,
		TokenType:    "Bearer",
		RefreshToken: r.RefreshToken,
		Expiry:       now.Add(time.Duration(seconds) * time.Second),
	}
	return token.WithExtra(map[string]any{"id_token": r.IDToken}), nil
}
