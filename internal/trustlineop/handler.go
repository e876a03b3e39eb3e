package trustlineop

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aframp/aframp_backend/internal/validation"
)

// Handler exposes trustline operation endpoints.
type Handler struct {
	service   *Service
	validator *validation.Validator
}

// NewHandler constructs a trustline operation handler.
func NewHandler(service *Service, v *validation.Validator) *Handler {
	return &Handler{service: service, validator: v}
}

type createRequest struct {
	WalletAddress string          `json:"wallet_address" validate:"required,stellar_account"`
	AssetCode     string          `json:"asset_code" validate:"required,asset_code"`
	Issuer        string          `json:"issuer" validate:"omitempty,stellar_account"`
	OperationType string          `json:"operation_type" validate:"required,oneof=create update remove"`
	Metadata      json.RawMessage `json:"metadata"`
}

type updateRequest struct {
	Status          string `json:"status" validate:"required,oneof=completed failed"`
	TransactionHash string `json:"transaction_hash" validate:"omitempty,len=64,hexadecimal"`
	ErrorMessage    string `json:"error_message" validate:"max=1000"`
}

// Create opens a pending record.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}
	op, err := h.service.Record(c.UserContext(), RecordInput{
		WalletAddress: req.WalletAddress,
		AssetCode:     req.AssetCode,
		Issuer:        req.Issuer,
		Type:          Type(req.OperationType),
		Metadata:      req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(op)
}

// UpdateStatus resolves a pending record.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}
	op, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), StatusUpdate{
		Status:          Status(req.Status),
		TransactionHash: req.TransactionHash,
		ErrorMessage:    req.ErrorMessage,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidTransition):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return err
		}
	}
	return c.JSON(op)
}

// Get returns one record.
func (h *Handler) Get(c *fiber.Ctx) error {
	op, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(op)
}

// ListByWallet returns the newest records of a wallet.
func (h *Handler) ListByWallet(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", DefaultListLimit)
	ops, err := h.service.ListByWallet(c.UserContext(), c.Params("address"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"operations": ops, "count": len(ops)})
}
