package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aframp/aframp_backend/internal/payments"
)

// RegisterPaymentRoutes wires payment build, sign and submit endpoints.
// Submission routes run behind the submit middleware chain.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, submit []fiber.Handler) {
	g := r.Group("/afri/payments")
	g.Post("/build", h.Build)
	g.Post("/sign", h.Sign)
	g.Post("/submit", chain(submit, h.Submit)...)
}

func chain(mw []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(mw)+1)
	out = append(out, mw...)
	return append(out, h)
}
