package middlewares

import (
	t_token "intranet_chat/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
)

// JWTMiddleware 依序從 Authorization header、query、cookie 取得 token 並驗證
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			claims *t_token.Claims
			err    error
		)

		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			claims, err = t_token.ParseBearer(header)
		} else {
			tokenStr := c.Query(QueryToken)
			if tokenStr == "" {
				tokenStr = c.Cookies(CookieToken)
			}
			if tokenStr == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"ok":    false,
					"error": "Missing token",
				})
			}
			claims, err = t_token.ParseJWT(tokenStr)
		}

		if err != nil || claims.MemberID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"ok":    false,
				"error": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenRole, claims.Role)
		return c.Next()
	}
}

// MemberID 取出 JWTMiddleware 設定的 member id
func MemberID(c *fiber.Ctx) string {
	id, _ := c.Locals(TokenMemberID).(string)
	return id
}
