// Package handler contains the HTTP request boundary: thin echo handlers
// that decode requests, call the services and encode responses.  No business
// rules live here.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rentiva/car-rental-backend/internal/auth"
	"github.com/rentiva/car-rental-backend/internal/middleware"
	"github.com/rentiva/car-rental-backend/internal/model"
	"github.com/rentiva/car-rental-backend/internal/repository"
)

// reqTimeout bounds the handler-side work of a single request.
const reqTimeout = 5 * time.Second

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Svc *auth.Service
	Log zerolog.Logger
}

func NewAuthHandler(svc *auth.Service, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Role            string `json:"role"` // optional, defaults to customer
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
	Message string    `json:"message"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

func toAuthResp(creds auth.Credentials, message string) authResp {
	return authResp{
		User:    toUserPart(creds.User),
		Access:  tokenPart{Token: creds.Access.Token, Expires: creds.Access.Exp},
		Refresh: tokenPart{Token: creds.Refresh.Raw, Expires: creds.Refresh.Exp}, // raw goes back to the client exactly once
		Message: message,
	}
}

// Register: create the account and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	creds, err := h.Svc.Register(ctx, auth.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Role:            req.Role,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toAuthResp(creds, "User registered successfully"))
}

// Login: verify credentials and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	creds, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(creds, "Login successful"))
}

// Refresh: validate by hash, revoke the presented token, issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	creds, err := h.Svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(creds, "Token refreshed"))
}

// Logout: revoke the presented refresh token (or all of the user's tokens
// when none is given) and deny-list the current access token.  Requires a
// valid bearer token; the identity comes from the JWT middleware.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(uint64)
	jti, _ := c.Get(middleware.CtxJTI).(string)
	exp, _ := c.Get(middleware.CtxTokenExp).(time.Time)

	// Body is optional; a missing or unreadable body means "log out the
	// whole account".
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if err := h.Svc.Logout(ctx, userID, jti, exp, strings.TrimSpace(req.RefreshToken)); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}

// ChangePassword: verify the old password and install the new one.  All of
// the user's refresh tokens are revoked, forcing re-login on other devices.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(uint64)

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if err := h.Svc.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}

// writeError maps service errors onto the HTTP taxonomy.  Validation
// failures keep their field detail; everything unexpected is logged with
// full detail server-side and surfaced as an opaque 500.
func (h *AuthHandler) writeError(c echo.Context, err error) error {
	var fe auth.FieldErrors
	switch {
	case errors.As(err, &fe):
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe})
	case errors.Is(err, repository.ErrDuplicateUser):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "weak password"})
	case errors.Is(err, auth.ErrTokenExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
	case errors.Is(err, auth.ErrTokenRevoked):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
	case errors.Is(err, auth.ErrTokenInvalid):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	case errors.Is(err, auth.ErrReauthRequired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "re-authentication required"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	default:
		h.Log.Error().Err(err).Str("path", c.Path()).Msg("internal error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
