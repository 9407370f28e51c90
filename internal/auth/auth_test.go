package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/asset-desk/internal/domain"
	apperrors "github.com/spec-kit/asset-desk/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "identity")
	token, expiresAt, err := tm.GenerateToken(domain.Actor{ID: "u-1", Name: "Dana", Role: domain.RoleEditor, Approved: true})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: "u-1", Name: "Dana", Role: domain.RoleEditor, Approved: true}, claims.Actor())
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", "identity")

	other, _, err := NewTokenManager("other", "identity").GenerateToken(domain.Actor{ID: "u-1"})
	require.NoError(t, err)
	_, err = tm.ParseToken(other)
	assert.Error(t, err, "wrong secret")

	wrongIssuer, _, err := NewTokenManager("secret", "elsewhere").GenerateToken(domain.Actor{ID: "u-1"})
	require.NoError(t, err)
	_, err = tm.ParseToken(wrongIssuer)
	assert.Error(t, err, "wrong issuer")

	noSubject, _, err := tm.GenerateToken(domain.Actor{})
	require.NoError(t, err)
	_, err = tm.ParseToken(noSubject)
	assert.Error(t, err, "missing subject")

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             "root",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: "identity"},
	})
	signed, err := badRole.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(signed)
	assert.Error(t, err, "unknown role")
}

func TestParseTokenDefaultsRoleToViewer(t *testing.T) {
	tm := NewTokenManager("secret", "")
	token, _, err := tm.GenerateToken(domain.Actor{ID: "u-2"})
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, claims.Role)
}

func newGuardedApp(tm *TokenManager, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Post("/guarded", NewAuthMiddleware(tm).Handle, guard, func(c *fiber.Ctx) error {
		actor, _ := ActorFromContext(c)
		return c.SendString(actor.ID)
	})
	return app
}

func TestGuards(t *testing.T) {
	tm := NewTokenManager("secret", "")
	bearer := func(actor domain.Actor) string {
		token, _, err := tm.GenerateToken(actor)
		require.NoError(t, err)
		return "Bearer " + token
	}

	cases := []struct {
		name   string
		guard  fiber.Handler
		header string
		want   int
	}{
		{"missing header", RequireAnyRole(), "", http.StatusUnauthorized},
		{"malformed header", RequireAnyRole(), "Token abc", http.StatusUnauthorized},
		{"garbage token", RequireAnyRole(), "Bearer abc", http.StatusUnauthorized},
		{"viewer reads", RequireAnyRole(), bearer(domain.Actor{ID: "v", Role: domain.RoleViewer}), http.StatusOK},
		{"viewer cannot edit", RequireEditor(), bearer(domain.Actor{ID: "v", Role: domain.RoleViewer}), http.StatusForbidden},
		{"unapproved editor edits", RequireEditor(), bearer(domain.Actor{ID: "e", Role: domain.RoleEditor}), http.StatusOK},
		{"unapproved editor cannot transition", RequireApprovedEditor(), bearer(domain.Actor{ID: "e", Role: domain.RoleEditor}), http.StatusForbidden},
		{"approved editor transitions", RequireApprovedEditor(), bearer(domain.Actor{ID: "e", Role: domain.RoleEditor, Approved: true}), http.StatusOK},
		{"admin transitions", RequireApprovedEditor(), bearer(domain.Actor{ID: "a", Role: domain.RoleAdmin}), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newGuardedApp(tm, tc.guard)
			req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
