package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/middleware"
	"github.com/yashrajoria/grocery-backend/models"
	"github.com/yashrajoria/grocery-backend/services"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password, deviceID string) (*services.LoginResult, error)
	Profile(ctx context.Context, userID string) (*models.User, error)
	Logout(ctx context.Context, p *services.Principal, deviceID string) error
	ListSessions(ctx context.Context, userID string) ([]models.DeviceSession, error)
}

type AuthController struct {
	Service AuthService
}

func NewAuthController(svc AuthService) *AuthController {
	return &AuthController{Service: svc}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"deviceId" binding:"required"`
}

type logoutRequest struct {
	DeviceID string `json:"deviceId"`
}

// Register creates an account. POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError("A valid email and password are required", err))
		return
	}

	if err := ac.Service.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// Login issues a token bound to the caller's device. POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError("Email, password and deviceId are required", err))
		return
	}

	result, err := ac.Service.Login(c.Request.Context(), req.Email, req.Password, req.DeviceID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Verify returns the profile of the authenticated user. GET /api/auth/verify
func (ac *AuthController) Verify(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		_ = c.Error(apperrors.AuthRequired("No token, authorization denied"))
		return
	}

	user, err := ac.Service.Profile(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Logout deactivates a device session. The body is optional; without a
// deviceId the caller's own device is logged out.
func (ac *AuthController) Logout(c *gin.Context) {
	principal, err := middleware.GetPrincipal(c)
	if err != nil {
		_ = c.Error(apperrors.AuthRequired("No token, authorization denied"))
		return
	}

	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(bindError("Invalid request body", err))
		return
	}

	if err := ac.Service.Logout(c.Request.Context(), principal, req.DeviceID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Sessions lists the caller's active device sessions. GET /api/auth/sessions
func (ac *AuthController) Sessions(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		_ = c.Error(apperrors.AuthRequired("No token, authorization denied"))
		return
	}

	sessions, err := ac.Service.ListSessions(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if sessions == nil {
		sessions = []models.DeviceSession{}
	}

	c.JSON(http.StatusOK, sessions)
}
