package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"relief_backend/internal/auth"
	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T, db *gorm.DB, tokens *auth.TokenService) *gin.Engine {
	t.Helper()

	authn := NewAuthenticator(tokens, repositories.NewUserRepository())
	r := gin.New()
	r.Use(DBMiddleware(db))

	r.GET("/me", authn.AuthMiddleware(), func(c *gin.Context) {
		user, _ := GetCurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "role": user.Role})
	})
	r.GET("/admin", authn.AuthMiddleware(), RequirePermission(auth.PermUsersVet), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/responders", authn.AuthMiddleware(), RequireRoles(models.UserRoleAdmin, models.UserRoleVolunteer), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/optional", authn.OptionalAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	db := testutil.NewTestDB(t)
	tokens := auth.NewTokenService("test_secret", time.Hour)
	router := newAuthRouter(t, db, tokens)

	user := testutil.CreateUser(t, db, "Vol", "vol@test.com", "password123", models.UserRoleVolunteer, true)
	token, _, err := tokens.Generate(user.ID)
	require.NoError(t, err)

	do := func(path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if mutate != nil {
			mutate(req)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("bearer token", func(t *testing.T) {
		w := do("/me", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), user.ID)
	})

	t.Run("session cookie", func(t *testing.T) {
		w := do("/me", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) })
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("/me", nil).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := do("/me", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-jwt") })
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("permission denied for volunteer", func(t *testing.T) {
		w := do("/admin", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("role allow-list", func(t *testing.T) {
		citizen := testutil.CreateUser(t, db, "Citizen", "citizen@test.com", "password123", models.UserRoleCommunity, false)
		citizenToken, _, err := tokens.Generate(citizen.ID)
		require.NoError(t, err)

		w := do("/responders", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
		assert.Equal(t, http.StatusOK, w.Code)
		w = do("/responders", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+citizenToken) })
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("optional auth", func(t *testing.T) {
		assert.Equal(t, "", do("/optional", nil).Body.String())
		w := do("/optional", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
		assert.Equal(t, user.ID, w.Body.String())
	})

	t.Run("role change applies without new token", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("role", models.UserRoleAdmin).Error)
		w := do("/admin", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		require.NoError(t, repositories.NewUserRepository().HardDelete(db, user.ID))
		w := do("/me", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.err
}

func TestRateLimit(t *testing.T) {
	newRouter := func(limiter *stubLimiter) *gin.Engine {
		r := gin.New()
		r.POST("/auth/send-otp", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	send := func(r *gin.Engine) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/send-otp", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("allowed", func(t *testing.T) {
		limiter := &stubLimiter{allowed: true}
		assert.Equal(t, http.StatusOK, send(newRouter(limiter)).Code)
		assert.Equal(t, []string{"/auth/send-otp:10.0.0.1"}, limiter.keys)
	})

	t.Run("throttled", func(t *testing.T) {
		w := send(newRouter(&stubLimiter{allowed: false}))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		w := send(newRouter(&stubLimiter{err: errors.New("redis down")}))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
