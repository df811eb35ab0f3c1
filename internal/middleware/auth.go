// Package middleware holds Fiber middleware for the trigger surface.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
)

// SubjectKey is the Locals key holding the verified token subject.
const SubjectKey = "subject"

// TokenVerifier verifies a raw ID token.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// BearerAuth requires an ID token issued by the configured OIDC provider.
type BearerAuth struct {
	verifier TokenVerifier
}

// NewBearerAuth discovers the provider at issuer and verifies tokens for
// clientID.
func NewBearerAuth(ctx context.Context, issuer, clientID string) (*BearerAuth, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return NewBearerAuthWithVerifier(provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

// NewBearerAuthWithVerifier wraps an existing verifier.
func NewBearerAuthWithVerifier(v TokenVerifier) *BearerAuth {
	return &BearerAuth{verifier: v}
}

// RequireToken rejects requests without a valid bearer ID token.
func (m *BearerAuth) RequireToken(c fiber.Ctx) error {
	raw := extractBearerToken(c.Get(fiber.HeaderAuthorization))
	if raw == "" {
		return unauthorized(c, "missing bearer token")
	}

	token, err := m.verifier.Verify(c.Context(), raw)
	if err != nil {
		slog.Warn("rejected bearer token", "ip", c.IP(), "error", err)
		return unauthorized(c, "invalid bearer token")
	}

	c.Locals(SubjectKey, token.Subject)
	return c.Next()
}

func unauthorized(c fiber.Ctx, message string) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// extractBearerToken returns the token of an "Authorization: Bearer <token>"
// header value, or "" when the header is not a bearer credential.
func extractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	token = strings.TrimSpace(token)
	if strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}
