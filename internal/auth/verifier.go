// Package auth verifies ID tokens issued by the hosted identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// IssuerPrefix precedes the project id in provider ID token issuers.
const IssuerPrefix = "https://securetoken.google.com/"

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("missing bearer token")

// Verifier checks ID tokens for one project.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	insecure bool
}

// NewVerifier discovers the provider signing keys for projectID.
func NewVerifier(ctx context.Context, projectID string) (*Verifier, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("auth: project id is required")
	}

	provider, err := oidc.NewProvider(ctx, IssuerPrefix+projectID)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	return &Verifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: projectID}),
	}, nil
}

// NewEmulatorVerifier accepts tokens minted by the local auth emulator, which
// are unsigned. Issuer, audience and expiry are still checked. now may be nil.
func NewEmulatorVerifier(projectID string, now func() time.Time) *Verifier {
	return &Verifier{
		verifier: oidc.NewVerifier(IssuerPrefix+projectID, &oidc.StaticKeySet{}, &oidc.Config{
			ClientID:                   projectID,
			InsecureSkipSignatureCheck: true,
			Now:                        now,
		}),
		insecure: true,
	}
}

// Insecure reports whether signatures are skipped.
func (v *Verifier) Insecure() bool {
	return v.insecure
}

// Verify validates rawToken and returns its claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrMissingToken
	}

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.Subject == "" {
		claims.Subject = idToken.Subject
	}
	return &claims, nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
