package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/cms-resource-broker/internal/constants"
	"github.com/yukikurage/cms-resource-broker/internal/dto"
	apierrors "github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	broker      *services.ResourceBroker
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, broker *services.ResourceBroker) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		broker:      broker,
	}
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if apierrors.KindOf(err) == apierrors.KindAccessDenied {
			apierrors.RespondWithError(c, http.StatusUnauthorized,
				apierrors.NewAPIError(apierrors.ErrCodeInvalidCredentials, "Invalid user name or password"))
			return
		}
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeyUserName, user.Name)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the acting user, the guest without a session.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := h.broker.CurrentUser(ctx, caller)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}
	admin, err := h.broker.IsAdmin(ctx, caller)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}
	leader, err := h.broker.IsProjectLeader(ctx, caller)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CurrentUserDTO{
		User:          dto.ToUserDTO(*user),
		Anonymous:     user.Name == h.authService.Anonymous().User,
		Admin:         admin,
		ProjectLeader: leader,
	})
}
