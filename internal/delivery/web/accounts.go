package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"blog-service/internal/application/command"
	"blog-service/internal/application/services"
	"blog-service/internal/domain/entities"
)

func profileURL(id uint) string {
	return fmt.Sprintf("/accounts/profile/%d/", id)
}

func (h *Handler) Register(c echo.Context) error {
	if currentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/")
	}
	if c.Request().Method == http.MethodGet {
		return h.render(c, http.StatusOK, "register", "Register", nil)
	}

	username := c.FormValue("username")
	email := c.FormValue("email")
	_, err := h.users.Register(c.Request().Context(), &command.RegisterUserCommand{
		Username:  username,
		Email:     email,
		Password1: c.FormValue("password1"),
		Password2: c.FormValue("password2"),
	})
	if fields, ok := validationErrors(err); ok {
		return h.render(c, http.StatusOK, "register", "Register", map[string]any{
			"Username": username,
			"Email":    email,
			"Errors":   fields,
		})
	}
	if err != nil {
		return err
	}

	addFlash(c, levelSuccess, "Your account was successfully created! Please log in.")
	return c.Redirect(http.StatusFound, loginURL)
}

func (h *Handler) Login(c echo.Context) error {
	next := safeRedirect(c.FormValue("next"), "/")
	if currentUser(c) != nil {
		return c.Redirect(http.StatusFound, next)
	}
	if c.Request().Method == http.MethodGet {
		return h.render(c, http.StatusOK, "login", "Log in", map[string]any{"Next": c.QueryParam("next")})
	}

	username := c.FormValue("username")
	result, err := h.users.Login(c.Request().Context(), &command.LoginUserCommand{
		Username: username,
		Password: c.FormValue("password"),
		ClientIP: c.RealIP(),
	})
	if err != nil {
		status := http.StatusOK
		var message string
		attemptsLeft := 0
		var credErr *services.InvalidCredentialsError
		switch {
		case errors.As(err, &credErr):
			message = "Please enter a correct username and password. Note that both fields may be case-sensitive."
			attemptsLeft = credErr.AttemptsLeft
		case errors.Is(err, services.ErrRateLimited):
			status = http.StatusTooManyRequests
			message = "Too many login attempts. Please try again later."
		default:
			return err
		}
		return h.render(c, status, "login", "Log in", map[string]any{
			"Next":         c.FormValue("next"),
			"Username":     username,
			"FormError":    message,
			"AttemptsLeft": attemptsLeft,
		})
	}

	h.setSessionCookie(c, result.Token, result.ExpiresIn)
	log.Printf("User %q logged in", result.User.Username)
	return c.Redirect(http.StatusFound, next)
}

func (h *Handler) Logout(c echo.Context) error {
	if session := currentSession(c); session != nil {
		if err := h.users.Logout(c.Request().Context(), session.TokenId); err != nil {
			log.Printf("Failed to revoke session: %v", err)
		}
	}
	h.clearSessionCookie(c)
	addFlash(c, levelInfo, "You have been logged out.")
	return c.Redirect(http.StatusFound, "/")
}

// Profile only ever shows the session user's own profile; any other id
// redirects there.
func (h *Handler) Profile(c echo.Context) error {
	userID := currentUserID(c)
	if id, err := pathID(c, "id"); err != nil || id != userID {
		return c.Redirect(http.StatusFound, profileURL(userID))
	}

	profile, err := h.users.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return serviceError(err)
	}
	return h.render(c, http.StatusOK, "profile", "Profile", map[string]any{"Profile": profile.Result})
}

func (h *Handler) ProfileUpdate(c echo.Context) error {
	userID := currentUserID(c)
	if id, err := pathID(c, "id"); err != nil || id != userID {
		return c.Redirect(http.StatusFound, profileURL(userID)+"update/")
	}

	if c.Request().Method == http.MethodGet {
		profile, err := h.users.GetProfile(c.Request().Context(), userID)
		if err != nil {
			return serviceError(err)
		}
		return h.render(c, http.StatusOK, "profile_form", "Update Profile", map[string]any{
			"Profile":     profile.Result,
			"Username":    profile.Result.User.Username,
			"Email":       profile.Result.User.Email,
			"DateOfBirth": formatDOB(profile.Result.DateOfBirth),
		})
	}

	picture, closePicture, err := formUpload(c, "profile_pic")
	if err != nil {
		return echo.ErrBadRequest
	}
	defer closePicture()

	updateCommand := &command.UpdateProfileCommand{
		UserId:      userID,
		Username:    c.FormValue("username"),
		Email:       c.FormValue("email"),
		DateOfBirth: c.FormValue("date_of_birth"),
		ProfilePic:  picture,
	}
	_, err = h.users.UpdateProfile(c.Request().Context(), updateCommand)
	if fields, ok := validationErrors(err); ok {
		profile, perr := h.users.GetProfile(c.Request().Context(), userID)
		if perr != nil {
			return serviceError(perr)
		}
		return h.render(c, http.StatusOK, "profile_form", "Update Profile", map[string]any{
			"Profile":     profile.Result,
			"Username":    updateCommand.Username,
			"Email":       updateCommand.Email,
			"DateOfBirth": updateCommand.DateOfBirth,
			"Errors":      fields,
		})
	}
	if err != nil {
		return serviceError(err)
	}

	addFlash(c, levelSuccess, "Your profile has been updated!")
	return c.Redirect(http.StatusFound, profileURL(userID))
}

func (h *Handler) PasswordReset(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return h.render(c, http.StatusOK, "password_reset", "Password reset", nil)
	}

	email := c.FormValue("email")
	err := h.users.RequestPasswordReset(c.Request().Context(), &command.RequestPasswordResetCommand{Email: email})
	if fields, ok := validationErrors(err); ok {
		return h.render(c, http.StatusOK, "password_reset", "Password reset", map[string]any{
			"Email":  email,
			"Errors": fields,
		})
	}
	if errors.Is(err, services.ErrRateLimited) {
		return h.render(c, http.StatusTooManyRequests, "password_reset", "Password reset", map[string]any{
			"Email":     email,
			"FormError": "Too many reset requests. Please try again later.",
		})
	}
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/accounts/password-reset/done/")
}

func (h *Handler) PasswordResetDone(c echo.Context) error {
	return h.render(c, http.StatusOK, "password_reset_done", "Password reset sent", nil)
}

func (h *Handler) PasswordResetConfirm(c echo.Context) error {
	uidb64, token := c.Param("uidb64"), c.Param("token")
	ctx := c.Request().Context()

	if c.Request().Method == http.MethodGet {
		err := h.users.CheckPasswordResetLink(ctx, uidb64, token)
		if err != nil && !errors.Is(err, services.ErrInvalidResetLink) {
			return err
		}
		return h.render(c, http.StatusOK, "password_reset_confirm", "Enter new password", map[string]any{
			"ValidLink": err == nil,
		})
	}

	err := h.users.ConfirmPasswordReset(ctx, &command.ConfirmPasswordResetCommand{
		UidB64:       uidb64,
		Token:        token,
		NewPassword1: c.FormValue("new_password1"),
		NewPassword2: c.FormValue("new_password2"),
	})
	if errors.Is(err, services.ErrInvalidResetLink) {
		return h.render(c, http.StatusOK, "password_reset_confirm", "Enter new password", map[string]any{
			"ValidLink": false,
		})
	}
	if fields, ok := validationErrors(err); ok {
		return h.render(c, http.StatusOK, "password_reset_confirm", "Enter new password", map[string]any{
			"ValidLink": true,
			"Errors":    fields,
		})
	}
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/accounts/password-reset-complete/")
}

func (h *Handler) PasswordResetComplete(c echo.Context) error {
	return h.render(c, http.StatusOK, "password_reset_complete", "Password reset complete", nil)
}

func formatDOB(dob *time.Time) string {
	if dob == nil {
		return ""
	}
	return dob.Format(entities.DateOfBirthLayout)
}
