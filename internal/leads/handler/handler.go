// Package handler exposes the public leads API: quote computation, lead
// creation and email verification.
package handler

import (
	"net/http"
	"strings"

	"buyback_backend/internal/leads/service"
	"buyback_backend/internal/leads/transport"
	"buyback_backend/internal/pricing"
	"buyback_backend/platform/httpkit"
	"buyback_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the public lead and quote routes.
func (h *Handler) RegisterRoutes(quotes, leads, devices *gin.RouterGroup) {
	quotes.POST("/compute", h.ComputeQuote)

	leads.POST("", h.Create)
	leads.GET("/verify/:token", h.InspectVerification)
	leads.POST("/verify/:token", h.ConfirmVerification)

	devices.GET("", h.ListDevices)
}

func (h *Handler) ComputeQuote(c *gin.Context) {
	var req transport.ComputeQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	breakdown, err := h.svc.ComputeQuote(pricing.Input{
		Model:              req.Model,
		Storage:            req.Storage,
		Damages:            req.Damages,
		HasBox:             req.HasBox,
		HasCharger:         req.HasCharger,
		IsActivationLocked: req.IsActivationLocked,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toBreakdownResponse(breakdown))
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.SellMethod == "pickup" && strings.TrimSpace(req.Address) == "" {
		httpkit.Error(c, http.StatusBadRequest, "address is required for pickup", nil)
		return
	}

	result, err := h.svc.CreateLead(c.Request.Context(), service.CreateLeadInput{
		Email:               strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName:           strings.TrimSpace(req.FirstName),
		LastName:            strings.TrimSpace(req.LastName),
		Phone:               req.Phone,
		Address:             strings.TrimSpace(req.Address),
		SellMethod:          req.SellMethod,
		Model:               req.Model,
		Storage:             req.Storage,
		Damages:             req.Damages,
		HasBox:              req.HasBox,
		HasCharger:          req.HasCharger,
		IsActivationLocked:  req.IsActivationLocked,
		SubmittedFinalQuote: req.FinalQuote,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.CreateLeadResponse{
		LeadID:         result.LeadID,
		QuoteID:        result.QuoteID,
		Quote:          toBreakdownResponse(result.Breakdown),
		PickupFee:      result.PickupFee,
		DistanceKm:     result.DistanceKm,
		QuoteExpiresAt: result.QuoteExpiresAt,
	})
}

func (h *Handler) InspectVerification(c *gin.Context) {
	token := c.Param("token")

	state, err := h.svc.InspectVerification(c.Request.Context(), token)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, state)
}

func (h *Handler) ConfirmVerification(c *gin.Context) {
	token := c.Param("token")

	lead, err := h.svc.ConfirmVerification(c.Request.Context(), token)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.VerifyResponse{
		LeadID:     lead.ID,
		Email:      lead.Email,
		IsVerified: lead.IsVerified,
	})
}

func (h *Handler) ListDevices(c *gin.Context) {
	devices := h.svc.Devices()

	items := make([]transport.DeviceResponse, 0, len(devices))
	for _, dev := range devices {
		items = append(items, transport.DeviceResponse{
			Model:    dev.Model,
			Family:   dev.Family,
			Storages: dev.SortedStorages(),
		})
	}

	httpkit.OK(c, items)
}

func toBreakdownResponse(b pricing.Breakdown) transport.QuoteBreakdownResponse {
	return transport.QuoteBreakdownResponse{
		BasePrice:       b.BasePrice,
		DamageDeduction: b.DamageDeduction,
		Margin:          b.Margin,
		FinalQuote:      b.FinalQuote,
	}
}
