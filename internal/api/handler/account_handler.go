package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fundhive/identity-api/internal/core/ports"
)

// AccountHandler serves the profile, password and email verification routes.
type AccountHandler struct {
	accounts ports.AccountService
	log      zerolog.Logger
}

func NewAccountHandler(accounts ports.AccountService, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, log: log}
}

// --- Request / Response types ---

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password,nefield=CurrentPassword"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// updateProfileRequest leaves absent fields unchanged. An empty
// wallet_address unlinks the wallet.
type updateProfileRequest struct {
	FirstName     *string `json:"first_name" validate:"omitempty,max=50"`
	LastName      *string `json:"last_name" validate:"omitempty,max=50"`
	WalletAddress *string `json:"wallet_address" validate:"omitempty,stellar_address"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin creator donor"`
}

type listUsersQuery struct {
	Role        string `query:"role" validate:"omitempty,oneof=user admin creator donor"`
	CreatedDate string `query:"created_date" validate:"omitempty,datetime=2006-01-02"`
	Limit       int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset      int    `query:"offset" validate:"omitempty,min=0"`
}

// forgotPasswordMessage is returned whether or not the account exists.
const forgotPasswordMessage = "if an account exists for this email, a reset link has been sent"

// Profile returns the authenticated user's profile.
//
// @Summary      Current user profile
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Profile
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /auth/profile [get]
func (h *AccountHandler) Profile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	profile, err := h.accounts.Profile(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile edits the caller's names and linked wallet.
//
// @Summary      Update profile
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  domain.Profile
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /auth/profile [patch]
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	profile, err := h.accounts.UpdateProfile(c.Request().Context(), userID, ports.ProfileUpdate{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// ChangePassword replaces the caller's password and ends their session.
//
// @Summary      Change password
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/change-password [post]
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.accounts.ChangePassword(c.Request().Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password changed, please log in again"})
}

// ForgotPassword starts a password reset. The response does not reveal
// whether the email is registered.
//
// @Summary      Request a password reset
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/forgot-password [post]
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.accounts.ForgotPassword(c.Request().Context(), normalizeEmail(req.Email)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: forgotPasswordMessage})
}

// ResetPassword consumes a reset token and sets a new password.
//
// @Summary      Reset password
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/reset-password [post]
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.accounts.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password has been reset, please log in"})
}

// VerifyEmail consumes an email verification token.
//
// @Summary      Verify email
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        body  body      tokenRequest  true  "Verification token"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/verify-email [post]
func (h *AccountHandler) VerifyEmail(c echo.Context) error {
	var req tokenRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.accounts.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "email verified"})
}

// ResendVerification issues a fresh verification email.
//
// @Summary      Resend verification email
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /auth/resend-verification [post]
func (h *AccountHandler) ResendVerification(c echo.Context) error {
	var req emailRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.accounts.RequestVerification(c.Request().Context(), normalizeEmail(req.Email)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "verification email sent"})
}

// UserByID returns any user's profile. Mounted behind RBAC(admin).
//
// @Summary      Get user by id
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  domain.Profile
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/users/{id} [get]
func (h *AccountHandler) UserByID(c echo.Context) error {
	id := c.Param("id")
	profile, err := h.accounts.Profile(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	adminID, _ := c.Get("user_id").(string)
	h.log.Info().Str("admin_id", adminID).Str("user_id", id).Msg("admin user lookup")
	return c.JSON(http.StatusOK, profile)
}

// ListUsers pages through live users, newest first.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        role          query     string  false  "Filter by role"
// @Param        created_date  query     string  false  "Created on this day (YYYY-MM-DD, UTC)"
// @Param        limit         query     int     false  "Page size (1-100, default 10)"
// @Param        offset        query     int     false  "Results to skip"
// @Success      200  {object}  ports.UserPage
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /admin/users [get]
func (h *AccountHandler) ListUsers(c echo.Context) error {
	var q listUsersQuery
	if err := decode(c, &q); err != nil {
		return badRequest(c, err.Error())
	}

	filter := ports.UserFilter{Role: q.Role, Limit: q.Limit, Offset: q.Offset}
	if q.CreatedDate != "" {
		day, err := time.Parse(time.DateOnly, q.CreatedDate)
		if err != nil {
			return badRequest(c, "created_date must be a date in the form 2006-01-02")
		}
		filter.CreatedFrom = day
		filter.CreatedTo = day.AddDate(0, 0, 1)
	}

	page, err := h.accounts.ListUsers(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// UpdateRole assigns a new role to a user.
//
// @Summary      Update user role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      updateRoleRequest  true  "New role"
// @Success      200   {object}  domain.Profile
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /admin/users/{id}/role [patch]
func (h *AccountHandler) UpdateRole(c echo.Context) error {
	var req updateRoleRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	id := c.Param("id")
	profile, err := h.accounts.UpdateRole(c.Request().Context(), id, req.Role)
	if err != nil {
		return writeError(c, err)
	}

	adminID, _ := c.Get("user_id").(string)
	h.log.Info().Str("admin_id", adminID).Str("user_id", id).Str("role", req.Role).Msg("admin role update")
	return c.JSON(http.StatusOK, profile)
}

// DeleteUser soft-deletes a user and ends their session.
//
// @Summary      Soft delete user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/users/{id} [delete]
func (h *AccountHandler) DeleteUser(c echo.Context) error {
	id := c.Param("id")
	if err := h.accounts.DeleteUser(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}

	adminID, _ := c.Get("user_id").(string)
	h.log.Info().Str("admin_id", adminID).Str("user_id", id).Msg("admin user delete")
	return c.JSON(http.StatusOK, messageResponse{Message: "user deleted"})
}
