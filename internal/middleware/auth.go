package middleware

import (
	"errors"
	"net/http"
	"strings"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	UserIDKey         = "user_id"
	accessTokenCookie = "accessToken"
)

var errNoToken = errors.New("no access token")

// AuthMiddleware accepts an HS256 access token from the Authorization header
// or the accessToken cookie and stores its subject as the user id.
func AuthMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := tokenFromRequest(c)
			if err != nil {
				return unauthorized(c, err)
			}

			var claims jwt.RegisteredClaims
			_, err = jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				return unauthorized(c, err)
			}
			if claims.Subject == "" {
				return unauthorized(c, errors.New("token has no subject"))
			}

			c.Set(UserIDKey, claims.Subject)

			req := c.Request()
			l := logging.FromContext(req.Context()).With(zap.String("user_id", claims.Subject))
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) (string, error) {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			return "", errors.New("malformed authorization header")
		}
		return token, nil
	}

	cookie, err := c.Cookie(accessTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", errNoToken
	}
	return cookie.Value, nil
}

func unauthorized(c echo.Context, err error) error {
	logging.FromContext(c.Request().Context()).Debug("authentication failed", zap.Error(err))
	return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error:   "unauthorized",
		Message: "unauthorized",
	})
}
