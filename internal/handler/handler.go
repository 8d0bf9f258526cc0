package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"expensetracker/internal/auth"
	"expensetracker/internal/errors"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "auth-token"

// MessageResponse is a body with a single human readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// domainError converts a service error into an echo error carrying the
// standard error body. The cause is kept for logging.
func domainError(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		}).SetInternal(err)
	}
	if err := c.Validate(req); err != nil {
		return domainError(err)
	}
	return nil
}

// sessionClaims returns the claims the session middleware stored on c.
func sessionClaims(c echo.Context) (*auth.Claims, error) {
	claims, ok := c.Get(auth.ContextKey).(*auth.Claims)
	if !ok || claims == nil {
		return nil, domainError(errors.ErrUnauthorized)
	}
	return claims, nil
}

// sessionOwner returns the authenticated user id.
func sessionOwner(c echo.Context) (uuid.UUID, error) {
	claims, err := sessionClaims(c)
	if err != nil {
		return uuid.Nil, err
	}
	owner, err := claims.OwnerID()
	if err != nil {
		return uuid.Nil, domainError(errors.ErrUnauthorized)
	}
	return owner, nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid expense id",
			Code:  "INVALID_ID",
		})
	}
	return id, nil
}

func setSessionCookie(c echo.Context, token string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTokenExpiry / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Health godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
