package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	googleidtoken "github.com/futurenda/google-auth-id-token-verifier"
)

// GoogleIdentity is the subset of a verified Google ID token the service uses.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// GoogleVerifier checks a Google ID token for this service's client id.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleIdentity, error)
}

type googleVerifier struct {
	audience []string
	verifier googleidtoken.Verifier
}

// NewGoogleVerifier returns nil when clientID is empty, which disables
// Google sign-in.
func NewGoogleVerifier(clientID string) GoogleVerifier {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil
	}
	return &googleVerifier{audience: []string{clientID}}
}

func (g *googleVerifier) Verify(ctx context.Context, idToken string) (GoogleIdentity, error) {
	if err := ctx.Err(); err != nil {
		return GoogleIdentity{}, err
	}
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return GoogleIdentity{}, fmt.Errorf("%w: id token is required", ErrInvalidInput)
	}
	if err := g.verifier.VerifyIDToken(idToken, g.audience); err != nil {
		return GoogleIdentity{}, fmt.Errorf("%w: google token rejected: %v", ErrUnauthenticated, err)
	}
	claims, err := googleidtoken.Decode(idToken)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("%w: decode google token: %v", ErrUnauthenticated, err)
	}
	if claims.Sub == "" || claims.Email == "" {
		return GoogleIdentity{}, errors.Join(ErrUnauthenticated, errors.New("google token lacks subject or email"))
	}
	return GoogleIdentity{
		Subject:       claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}
