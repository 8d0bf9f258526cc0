package router

import (
	stderrors "errors"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"expensetracker/internal/auth"
	"expensetracker/internal/errors"
)

// sessionTokenLookup reads the bearer header first, then the session cookie.
const sessionTokenLookup = "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:auth-token"

var errRevoked = stderrors.New("session revoked")

// NewSessionMiddleware authenticates requests with a session token and
// stores its *auth.Claims under auth.ContextKey. Revoked tokens are rejected.
func NewSessionMiddleware(jwtService *auth.JWTService, revocations auth.RevocationStore) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  auth.ContextKey,
		TokenLookup: sessionTokenLookup,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return nil, err
			}
			revoked, err := revocations.IsRevoked(c.Request().Context(), claims.ID)
			if err != nil {
				return nil, err
			}
			if revoked {
				return nil, errRevoked
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			message := "Invalid or expired session"
			var missing *echojwt.TokenExtractionError
			if stderrors.As(err, &missing) {
				message = errors.ErrUnauthorized.Error()
			}
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: message,
				Code:  "UNAUTHORIZED",
			}).SetInternal(err)
		},
	})
}
