package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/driveline/driveline/internal/domain"
)

// Context keys for storing the authenticated principal
const (
	UserIDKey = "userID"
	RoleKey   = "role"
	EmailKey  = "email"
)

// VerifyToken validates the session JWT and stores the claims in the
// request context. Missing or bad tokens answer 401 with the login path
// so clients know where to send the user.
func VerifyToken(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":       "missing authorization token",
				"redirect_to": domain.PathLogin,
			})
		}

		// Extract token (format: "Bearer <token>")
		tokenString := authHeader
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenString = authHeader[7:]
		}

		token, err := jwt.ParseWithClaims(tokenString, &domain.DrivelineClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":       "invalid or expired token",
				"redirect_to": domain.PathLogin,
			})
		}

		claims, ok := token.Claims.(*domain.DrivelineClaims)
		if !ok || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":       "invalid token claims",
				"redirect_to": domain.PathLogin,
			})
		}

		c.Locals(UserIDKey, claims.UserID)
		c.Locals(RoleKey, claims.Role)
		c.Locals(EmailKey, claims.Email)

		return c.Next()
	}
}

// AuthorizeRole gates a route group to the given roles. A signed-in
// caller with the wrong role gets 403 plus the home path for their own
// role, mirroring what the access guard decides for page routes.
func AuthorizeRole(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(RoleKey).(string)
		principalID, _ := c.Locals(UserIDKey).(string)

		decision := domain.Authorize(domain.GuardState{
			PrincipalID: principalID,
			Role:        role,
		}, allowedRoles)

		switch decision.Kind {
		case domain.DecisionRender:
			return c.Next()
		case domain.DecisionRedirectToLogin:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":       "authentication required",
				"redirect_to": decision.Target,
			})
		default:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":       "insufficient permissions",
				"redirect_to": decision.Target,
			})
		}
	}
}

// UserID extracts the authenticated profile id from the request context.
// Only meaningful after VerifyToken has run.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}

// Role extracts the authenticated role from the request context
func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(RoleKey).(string)
	return role
}
