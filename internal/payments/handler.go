package payments

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aframp/aframp_backend/internal/validation"
)

// Handler exposes payment endpoints.
type Handler struct {
	service   *Service
	validator *validation.Validator
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service, v *validation.Validator) *Handler {
	return &Handler{service: service, validator: v}
}

type buildRequest struct {
	Source      string `json:"source" validate:"required,stellar_account"`
	Destination string `json:"destination" validate:"required,stellar_account"`
	Amount      string `json:"amount" validate:"required,stellar_amount"`
	AssetCode   string `json:"asset_code" validate:"required,asset_code"`
	AssetIssuer string `json:"asset_issuer" validate:"omitempty,stellar_account"`
	Memo        *Memo  `json:"memo"`
	FeeStroops  *int64 `json:"fee_stroops"`
}

type signRequest struct {
	Draft      Draft  `json:"draft"`
	SecretSeed string `json:"secret_seed" validate:"required"`
}

type envelopeRequest struct {
	EnvelopeXDR string `json:"envelope_xdr" validate:"required,base64"`
	SecretSeed  string `json:"secret_seed" validate:"required"`
}

// Build returns an unsigned payment draft.
func (h *Handler) Build(c *fiber.Ctx) error {
	var req buildRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}
	memo := Memo{Type: MemoNone}
	if req.Memo != nil {
		memo = *req.Memo
	}
	draft, err := h.service.Builder().BuildPayment(c.UserContext(), Operation{
		Source:      req.Source,
		Destination: req.Destination,
		Amount:      req.Amount,
		AssetCode:   req.AssetCode,
		AssetIssuer: req.AssetIssuer,
	}, memo, req.FeeStroops)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(draft)
}

// Sign signs a draft without submitting it.
func (h *Handler) Sign(c *fiber.Ctx) error {
	var req signRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}
	signed, err := h.service.Builder().SignTransaction(req.Draft, req.SecretSeed)
	if err != nil {
		return err
	}
	return c.JSON(signed)
}

// Submit signs a draft and submits it to the network.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req signRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}
	res, err := h.service.SignAndSubmit(c.UserContext(), req.Draft, req.SecretSeed)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(res)
}

// SubmitEnvelope signs and submits a prepared envelope.
func (h *Handler) SubmitEnvelope(c *fiber.Ctx) error {
	var req envelopeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}
	res, err := h.service.SignAndSubmitEnvelope(c.UserContext(), req.EnvelopeXDR, req.SecretSeed)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(res)
}
