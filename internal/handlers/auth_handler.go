package handlers

import (
	"net/http"
	"time"

	"relief_backend/internal/middleware"
	"relief_backend/internal/ratelimit"
	"relief_backend/internal/services"
	"relief_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	*BaseHandler
	authService  services.AuthService
	limiter      ratelimit.Limiter
	secureCookie bool
}

// NewAuthHandler - limiter может быть nil, тогда OTP-маршруты не ограничиваются
func NewAuthHandler(base *BaseHandler, authService services.AuthService, limiter ratelimit.Limiter, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		BaseHandler:  base,
		authService:  authService,
		limiter:      limiter,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	authGroup := r.Group("/auth")
	{
		otp := authGroup.Group("")
		if h.limiter != nil {
			otp.Use(middleware.RateLimit(h.limiter))
		}
		otp.POST("/send-otp", h.SendOTP)
		otp.POST("/resend-otp", h.ResendOTP)
		otp.POST("/verify-otp", h.VerifyOTP)
		otp.POST("/signup", h.Signup)

		authGroup.POST("/signin", h.SignIn)
		authGroup.POST("/signout", h.SignOut)
		authGroup.GET("/session", h.Auth.AuthMiddleware(), h.Session)
	}
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.SendOTP(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req dto.ResendOTPRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.ResendOTP(c.Request.Context(), h.GetDB(c), req.Email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.authService.VerifyOTP(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified successfully",
		"user":    user,
	})
}

// SignIn возвращает токен в теле и ставит HttpOnly cookie сессии
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.SignIn(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	maxAge := int(time.Until(resp.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, resp.Token, maxAge, "/", "", h.secureCookie, true)

	c.JSON(http.StatusOK, resp)
}

// SignOut - токен stateless, поэтому достаточно удалить cookie
func (h *AuthHandler) SignOut(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// Session - пользователь свежий из БД (роль, аватар, статус проверки)
func (h *AuthHandler) Session(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.NewUserDTO(user)})
}
