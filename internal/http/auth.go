package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/salon-campaigns/internal/auth"
	"github.com/jmehdipour/salon-campaigns/internal/http/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type credentialsReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	SalonName string `json:"salon_name,omitempty"`
}

func authErrorStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrResetTokenInvalid):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func authError(c echo.Context, err error) error {
	code := authErrorStatus(err)
	if code == http.StatusInternalServerError {
		log.Errorf("auth failed: %v", err)
		return jsonError(c, code, "auth error")
	}
	return jsonError(c, code, err.Error())
}

func signUpHandler(p auth.Provider) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credentialsReq
		if err := c.Bind(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, "bad request")
		}
		sess, err := p.SignUp(c.Request().Context(), req.Email, req.Password, map[string]string{
			"salon_name": req.SalonName,
		})
		if err != nil {
			return authError(c, err)
		}
		return c.JSON(http.StatusCreated, sess)
	}
}

func signInHandler(p auth.Provider) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credentialsReq
		if err := c.Bind(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, "bad request")
		}
		sess, err := p.SignIn(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return authError(c, err)
		}
		return c.JSON(http.StatusOK, sess)
	}
}

func signOutHandler(p auth.Provider) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := p.SignOut(c.Request().Context(), middleware.BearerToken(c)); err != nil {
			return authError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func resetPasswordHandler(p auth.Provider) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credentialsReq
		if err := c.Bind(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, "bad request")
		}
		if err := p.ResetPassword(c.Request().Context(), req.Email); err != nil {
			return authError(c, err)
		}
		// same answer whether or not the account exists
		return c.JSON(http.StatusAccepted, map[string]bool{"requested": true})
	}
}

type confirmResetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func confirmResetHandler(p auth.Provider) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req confirmResetReq
		if err := c.Bind(&req); err != nil || req.Token == "" {
			return jsonError(c, http.StatusBadRequest, "bad request")
		}
		if err := p.ConfirmReset(c.Request().Context(), req.Token, req.Password); err != nil {
			return authError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
