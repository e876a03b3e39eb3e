package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aframp/aframp_backend/internal/payments"
	"github.com/aframp/aframp_backend/internal/trustline"
	"github.com/aframp/aframp_backend/internal/trustlineop"
)

// RegisterTrustlineRoutes wires the application asset trustline endpoints.
// Prepared envelopes are signed and submitted through the payment service.
func RegisterTrustlineRoutes(r fiber.Router, h *trustline.Handler, p *payments.Handler, submit []fiber.Handler) {
	g := r.Group("/afri/trustlines")
	g.Post("/check", h.Check)
	g.Post("/create", h.Create)
	g.Post("/verify", h.Verify)
	g.Post("/min-balance", h.MinBalance)
	g.Post("/submit", chain(submit, p.SubmitEnvelope)...)
}

// RegisterTrustlineOperationRoutes wires the trustline operation audit trail.
func RegisterTrustlineOperationRoutes(r fiber.Router, h *trustlineop.Handler) {
	g := r.Group("/trustlines/operations")
	g.Post("/", h.Create)
	g.Get("/wallet/:address", h.ListByWallet)
	g.Get("/:id", h.Get)
	g.Patch("/:id", h.UpdateStatus)
}
