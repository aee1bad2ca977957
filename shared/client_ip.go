package shared

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP resolves the client identifier for rate limiting and quota
// accounting. The resolution order is a fixed contract for deployments
// behind the reverse proxy: first X-Forwarded-For entry, then X-Real-IP,
// then a loopback fallback.
func ClientIP(c *fiber.Ctx) string {
	forwarded := c.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if ip != "" {
				return ip
			}
		}
	}

	realIP := c.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	return "127.0.0.1"
}
