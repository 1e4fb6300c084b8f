package middleware

// identity.go holds helpers shared across middleware files.  The edge rate
// limiter keys on the authenticated user when one is present so that a
// single NAT egress full of legitimate buyers is not punished as one IP.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's id as a string, or "anon"
// when the request carries no valid token (public routes, or the limiter
// running ahead of JWTAuth in the chain).
func currentUserID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        switch id := v.(type) {
        case uint64:
            return strconv.FormatUint(id, 10)
        case string:
            if id != "" {
                return id
            }
        }
    }
    return "anon"
}
