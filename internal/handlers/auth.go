package handlers

import (
	"errors"
	"net/http"

	"todoweb/internal/auth"
	dom "todoweb/internal/domain"
	"todoweb/internal/dto"
	"todoweb/internal/logger"
	"todoweb/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles login, register and logout.
type AuthHandler struct {
	sessions *auth.Manager
	userSvc  *service.UserService
}

// NewAuthHandler returns a new AuthHandler.
func NewAuthHandler(sessions *auth.Manager, userSvc *service.UserService) *AuthHandler {
	return &AuthHandler{sessions: sessions, userSvc: userSvc}
}

// Login godoc
// @Summary      Login
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "Credentials"
// @Success      200   {object}  dto.AuthResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.userSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
			return
		}
		serverError(c, "login", err)
		return
	}
	if _, err := h.sessions.Start(c, user.ID); err != nil {
		serverError(c, "login: start session", err)
		return
	}
	c.JSON(http.StatusOK, dto.AuthResponse{Message: "Login successful", User: userToResponse(user)})
}

// Register godoc
// @Summary      Register
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body  dto.RegisterRequest  true  "Credentials"
// @Success      201   {object}  dto.AuthResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.userSvc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
		default:
			serverError(c, "register", err)
		}
		return
	}
	if _, err := h.sessions.Start(c, user.ID); err != nil {
		serverError(c, "register: start session", err)
		return
	}
	c.JSON(http.StatusCreated, dto.AuthResponse{Message: "User registered successfully", User: userToResponse(user)})
}

// Logout godoc
// @Summary      Logout
// @Tags         auth
// @Success      302
// @Router       /logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.End(c); err != nil {
		// cookie is cleared anyway; the server-side record expires by TTL
		logger.Warnf(c.Request.Context(), "logout: %v", err)
	}
	c.Redirect(http.StatusFound, "/login")
}

func userToResponse(u dom.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID, Username: u.Username}
}

// serverError logs the cause and answers with a generic 500.
func serverError(c *gin.Context, op string, err error) {
	logger.Errorf(c.Request.Context(), "%s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
}
