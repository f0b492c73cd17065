package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rentiva/car-rental-backend/internal/middleware"
	"github.com/rentiva/car-rental-backend/internal/repository"
)

// UserHandler serves the profile endpoints.  The authenticated identity is
// taken from the context values set by the JWT middleware and passed down as
// plain arguments; handlers never reach into a global request user.
type UserHandler struct {
	*AuthHandler
	Users *repository.UserRepo
}

func NewUserHandler(a *AuthHandler, users *repository.UserRepo) *UserHandler {
	return &UserHandler{AuthHandler: a, Users: users}
}

type updateMeReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Me returns the current user's profile.
func (h *UserHandler) Me(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(uint64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	u, err := h.Svc.Profile(ctx, userID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// UpdateMe updates the non-credential profile fields.  Username, email and
// role are fixed here; password changes go through /auth/change-password.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(uint64)

	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	u, err := h.Svc.UpdateProfile(ctx, userID, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u), "message": "Profile updated successfully"})
}

type changeRoleReq struct {
	Role string `json:"role"`
}

// ChangeRole provisions a user's role (admin only).  Self-registration only
// ever grants customer; this is the one path to staff and admin.  The user's
// refresh tokens are revoked so sessions pick up the new role on next login
// or refresh.
func (h *UserHandler) ChangeRole(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var req changeRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	u, err := h.Svc.SetRole(ctx, id, req.Role)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u), "message": "Role updated"})
}

// DeactivateUser soft-deactivates an account (admin only).  Accounts are
// never physically deleted; a deactivated user can no longer log in and
// their refresh tokens are dead ends.
func (h *UserHandler) DeactivateUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if err := h.Users.Deactivate(ctx, id); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deactivated"})
}
