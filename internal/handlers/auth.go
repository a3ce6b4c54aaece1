package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/workout_journal/internal/events"
	"github.com/Skotchmaster/workout_journal/internal/hash"
	"github.com/Skotchmaster/workout_journal/internal/logging"
	authmw "github.com/Skotchmaster/workout_journal/internal/middleware/auth"
	"github.com/Skotchmaster/workout_journal/internal/store"
	"github.com/Skotchmaster/workout_journal/internal/tokens"
)

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthHandler struct {
	Store     store.CredentialStore
	JWTSecret []byte
	Producer  *events.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("event publish failed", "error", err)
	}
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" {
		req.Username = req.Name
	}

	if !emailRE.MatchString(req.Email) {
		l.Warn("signup rejected", "status", 400, "reason", "invalid email")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("signup failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	user, err := h.Store.CreateUser(ctx, req.Username, req.Email, pwHash)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			l.Warn("signup rejected", "status", 409, "reason", "email already exists")
			return echo.NewHTTPError(http.StatusConflict, "email already exists")
		}
		l.Error("signup failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	// Auto-login after signup: both tokens are issued right away.
	accessToken, _, err := tokens.IssueAccess(user, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	refreshToken, refreshExp, err := tokens.IssueRefresh(user, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	c.SetCookie(CreateCookie(RefreshCookieName, refreshToken, "/", refreshExp))

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_signed_up",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("signup successful", "user_id", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"token": accessToken,
		"user":  user,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if !emailRE.MatchString(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email")
	}

	user, err := h.Store.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			// Never disclose which of the two fields was wrong.
			l.Warn("login failed", "status", 401)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		l.Error("login failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	accessToken, _, err := tokens.IssueAccess(user, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	refreshToken, refreshExp, err := tokens.IssueRefresh(user, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	c.SetCookie(CreateCookie(RefreshCookieName, refreshToken, "/", refreshExp))

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
	})

	l.Info("login successful", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"token": accessToken,
		"user":  user,
	})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	c.SetCookie(DeleteCookie(RefreshCookieName, "/"))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

// Session resolves the bearer token to the full user profile. The frontend
// calls this on every page load to decide authenticated vs unauthenticated.
func (h *AuthHandler) Session(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	user, err := h.Store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// Refresh mints a new access token from the refresh cookie. The refresh
// token itself is not rotated and stays valid until its own expiry.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	claims, err := tokens.Parse(cookie.Value, h.JWTSecret, tokens.AudienceRefresh)
	if err != nil || claims == nil {
		l.Warn("refresh rejected", "status", 401)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired refresh token")
	}

	user, err := h.Store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired refresh token")
	}

	accessToken, _, err := tokens.IssueAccess(user, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": accessToken,
	})
}

func (h *AuthHandler) GetUser(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	user, err := h.Store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// UpdateUser applies each supplied field through its own store call. A
// failure partway through leaves earlier updates in place.
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_update_user")

	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.Email != "" && !emailRE.MatchString(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email")
	}

	if req.Username != "" {
		if err := h.Store.UpdateName(ctx, userID, req.Username); err != nil {
			l.Error("update failed", "field", "username", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "could not update username")
		}
	}
	if req.Email != "" {
		if err := h.Store.UpdateEmail(ctx, userID, req.Email); err != nil {
			l.Error("update failed", "field", "email", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "could not update email")
		}
	}
	if req.Password != "" {
		pwHash, err := hash.HashPassword(req.Password)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "could not update password")
		}
		if err := h.Store.UpdatePassword(ctx, userID, pwHash); err != nil {
			l.Error("update failed", "field", "password", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "could not update password")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "user updated",
	})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_forgot_password")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if !emailRE.MatchString(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email")
	}

	user, err := h.Store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "email not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	// Delivery of the reset link is handled outside this service; the token
	// travels on the event bus.
	resetToken, _, err := tokens.IssueReset(user, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":        "password_reset_requested",
		"userID":      user.ID,
		"reset_token": resetToken,
	})

	l.Info("password reset requested", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "password reset instructions sent",
	})
}
