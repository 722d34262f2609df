package middleware

import (
	"errors"

	"relief_backend/internal/auth"
	"relief_backend/internal/logger"
	"relief_backend/internal/models"
	"relief_backend/pkg/apperrors"
	"relief_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SessionCookie - имя HttpOnly cookie с токеном сессии
const SessionCookie = "session"

const (
	ctxUserID      = "userID"
	ctxRole        = "role"
	ctxCurrentUser = "currentUser"
)

// UserLoader - откуда middleware берет актуальную запись пользователя
type UserLoader interface {
	FindByID(db *gorm.DB, id string) (*models.User, error)
}

// Authenticator проверяет токен и перечитывает пользователя из БД на каждом запросе,
// поэтому смена роли или снятие проверки действует сразу, без перевыпуска токена.
type Authenticator struct {
	tokens *auth.TokenService
	users  UserLoader
}

func NewAuthenticator(tokens *auth.TokenService, users UserLoader) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// AuthMiddleware - обязательная аутентификация
func (a *Authenticator) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.authenticate(c)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		a.setUser(c, user)
		c.Next()
	}
}

// OptionalAuth - пользователь подставляется, если сессия валидна; иначе запрос идет анонимно
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := a.authenticate(c); err == nil {
			a.setUser(c, user)
		}
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context) (*models.User, error) {
	tokenStr := tokenFromRequest(c)
	if tokenStr == "" {
		return nil, apperrors.NewUnauthorizedError("Authentication required")
	}

	claims, err := a.tokens.Parse(tokenStr)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	db, ok := c.Get(string(contextkeys.DBContextKey))
	if !ok {
		return nil, apperrors.InternalError(errors.New("db is not set in context"))
	}

	user, err := a.users.FindByID(db.(*gorm.DB), claims.UserID())
	if err != nil {
		// Пользователь удален после выпуска токена
		return nil, apperrors.ErrInvalidToken
	}
	return user, nil
}

func (a *Authenticator) setUser(c *gin.Context, user *models.User) {
	c.Set(ctxUserID, user.ID)
	c.Set(ctxRole, user.Role)
	c.Set(ctxCurrentUser, user)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), user.ID))
}

func tokenFromRequest(c *gin.Context) string {
	if token, err := auth.ExtractBearerToken(c.GetHeader("Authorization")); err == nil {
		return token
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireRoles - пропускает только перечисленные роли
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authentication required"))
			return
		}
		if !roleSet[role] {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			return
		}
		c.Next()
	}
}

// RequirePermission - проверка по таблице auth.Permissions
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authentication required"))
			return
		}
		if !auth.HasPermission(role, permission) {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			return
		}
		c.Next()
	}
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func GetRole(c *gin.Context) (models.UserRole, bool) {
	val, ok := c.Get(ctxRole)
	if !ok {
		return "", false
	}
	role, ok := val.(models.UserRole)
	return role, ok
}

// GetCurrentUser - пользователь, загруженный AuthMiddleware
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	val, ok := c.Get(ctxCurrentUser)
	if !ok {
		return nil, false
	}
	user, ok := val.(*models.User)
	return user, ok && user != nil
}
