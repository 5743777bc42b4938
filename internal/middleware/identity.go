package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated subject stored by JWTAuth, or "anon"
// on routes that run without a token.
func UserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
