package trustline

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aframp/aframp_backend/internal/stellar"
	"github.com/aframp/aframp_backend/internal/validation"
)

// Handler exposes trustline endpoints.
type Handler struct {
	manager   *Manager
	validator *validation.Validator
}

// NewHandler constructs a trustline handler.
func NewHandler(manager *Manager, v *validation.Validator) *Handler {
	return &Handler{manager: manager, validator: v}
}

type accountRequest struct {
	AccountID string `json:"account_id" validate:"required,stellar_account"`
}

func (h *Handler) parse(c *fiber.Ctx) (string, error) {
	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return "", fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		return "", err
	}
	return req.AccountID, nil
}

// Check reports the trustline state of an account.
func (h *Handler) Check(c *fiber.Ctx) error {
	id, err := h.parse(c)
	if err != nil {
		return err
	}
	status, err := h.manager.CheckTrustline(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"account_id": id,
		"asset":      h.manager.Asset(),
		"trustline":  status,
	})
}

// Create returns an unsigned change-trust envelope.
func (h *Handler) Create(c *fiber.Ctx) error {
	id, err := h.parse(c)
	if err != nil {
		return err
	}
	tx, err := h.manager.CreateTrustlineTx(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(tx)
}

// Verify reports whether the trustline exists and is authorized.
func (h *Handler) Verify(c *fiber.Ctx) error {
	id, err := h.parse(c)
	if err != nil {
		return err
	}
	ok, err := h.manager.VerifyTrustline(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"account_id": id, "verified": ok})
}

// MinBalance checks the reserve requirement.
func (h *Handler) MinBalance(c *fiber.Ctx) error {
	id, err := h.parse(c)
	if err != nil {
		return err
	}
	if err := h.manager.ValidateMinBalance(c.UserContext(), id); err != nil {
		if errors.Is(err, stellar.ErrValidation) {
			return c.JSON(fiber.Map{"account_id": id, "sufficient": false, "reason": err.Error()})
		}
		return err
	}
	return c.JSON(fiber.Map{"account_id": id, "sufficient": true})
}
