package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/epp-kardex/internal/application/dto"
)

// Pinger lo implementan los drivers del kardex (pgxpool, sqlite, memoria).
type Pinger interface {
	Ping(ctx context.Context) error
}

// RequireStore corta la petición con 503 si el almacén del kardex no responde,
// en vez de dejar que cada handler falle con 500.
func RequireStore(store Pinger, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := store.Ping(c.UserContext()); err != nil {
			log.Error().Err(err).Str("path", c.Path()).Msg("almacén del kardex no disponible")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "STORE_UNAVAILABLE",
				Message: "el kardex no está disponible, intente más tarde",
			})
		}
		return c.Next()
	}
}
