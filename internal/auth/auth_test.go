package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cityflow/crm/internal/cache"
	"github.com/cityflow/crm/internal/domain"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, exp, err := tm.GenerateToken("sess-1", "prof-1", domain.RoleManager)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "prof-1", claims.Subject)
	assert.Equal(t, domain.RoleManager, claims.Role)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, _, err := tm.GenerateToken("sess-1", "prof-1", domain.RoleAgent)
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).ParseToken(token)
	assert.Error(t, err)

	later := NewTokenManager("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.ParseToken(token)
	assert.Error(t, err)
}

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(cache.NewMemoryStore())

	session := &domain.Session{
		ID:        "sess-1",
		ProfileID: "prof-1",
		FullName:  "Dana Agent",
		Role:      domain.RoleAgent,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Dana Agent", got.FullName)

	require.NoError(t, store.Delete(ctx, "sess-1"))
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreDeleteByProfile(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(cache.NewMemoryStore())
	expires := time.Now().Add(time.Hour)

	for _, s := range []*domain.Session{
		{ID: "laptop", ProfileID: "prof-1", ExpiresAt: expires},
		{ID: "phone", ProfileID: "prof-1", ExpiresAt: expires},
		{ID: "other", ProfileID: "prof-2", ExpiresAt: expires},
	} {
		require.NoError(t, store.Save(ctx, s))
	}

	require.NoError(t, store.DeleteByProfile(ctx, "prof-1"))
	for _, id := range []string{"laptop", "phone"} {
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, ErrSessionNotFound, id)
	}
	_, err := store.Get(ctx, "other")
	assert.NoError(t, err)

	require.NoError(t, store.DeleteByProfile(ctx, "nobody"))
}

func TestSessionStoreIndexDropsSignedOutSessions(t *testing.T) {
	ctx := context.Background()
	backing := cache.NewMemoryStore()
	store := NewSessionStore(backing)
	expires := time.Now().Add(time.Hour)

	require.NoError(t, store.Save(ctx, &domain.Session{ID: "first", ProfileID: "prof-1", ExpiresAt: expires}))
	require.NoError(t, store.Delete(ctx, "first"))
	require.NoError(t, store.Save(ctx, &domain.Session{ID: "second", ProfileID: "prof-1", ExpiresAt: expires}))

	var ids []string
	hit, err := backing.GetJSON(ctx, "profile-sessions:prof-1", &ids)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{"second"}, ids)
}

func TestSessionStoreRejectsExpiredSession(t *testing.T) {
	store := NewSessionStore(cache.NewMemoryStore())
	err := store.Save(context.Background(), &domain.Session{ID: "s", ExpiresAt: time.Now().Add(-time.Minute)})
	assert.Error(t, err)
}

func newAuthApp(t *testing.T, mw *AuthMiddleware, guards ...fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	handlers := append([]fiber.Handler{mw.Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewInternalError(nil)
		}
		return c.SendString(session.FullName)
	})
	app.Get("/me", handlers...)
	return app
}

func TestAuthMiddleware(t *testing.T) {
	ctx := context.Background()
	tm := NewTokenManager("secret", time.Hour)
	sessions := NewSessionStore(cache.NewMemoryStore())
	mw := NewAuthMiddleware(tm, sessions)

	session := &domain.Session{
		ID:        "sess-1",
		ProfileID: "prof-1",
		FullName:  "Dana Agent",
		Role:      domain.RoleAgent,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, sessions.Save(ctx, session))
	token, _, err := tm.GenerateToken(session.ID, session.ProfileID, session.Role)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		guards []fiber.Handler
		status int
	}{
		{"missing header", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized},
		{"valid session", "Bearer " + token, nil, http.StatusOK},
		{"agent blocked from admin route", "Bearer " + token, []fiber.Handler{RequireAdmin()}, http.StatusForbidden},
		{"agent allowed on any-role route", "Bearer " + token, []fiber.Handler{RequireRole()}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAuthApp(t, mw, tt.guards...)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	t.Run("signed out session rejects token", func(t *testing.T) {
		require.NoError(t, sessions.Delete(ctx, session.ID))
		app := newAuthApp(t, mw)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)

	_, err = HashPassword("short", 4)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err = HashPassword("hunter22", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
