package handler

import (
	"net/http"

	"fueldelivery/internal/middleware"
	"fueldelivery/internal/model"
	"fueldelivery/internal/service"
	"fueldelivery/pkg/response"

	"github.com/gin-gonic/gin"
)

type PricingHandler struct {
	pricingService service.PricingService
	auth           *middleware.Auth
}

func NewPricingHandler(pricingService service.PricingService, auth *middleware.Auth) *PricingHandler {
	return &PricingHandler{pricingService: pricingService, auth: auth}
}

func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/pricing")
	{
		group.GET("", h.auth.RequireRole(), h.GetPricing)
		group.PUT("", h.auth.RequireRole(model.RoleAdmin), h.UpdatePricing)
		group.POST("/quote", h.auth.RequireRole(), h.Quote)
	}
}

// GetPricing returns the current price table
// @Summary      Get pricing
// @Tags         pricing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.PricingResponse}
// @Router       /api/pricing [get]
func (h *PricingHandler) GetPricing(c *gin.Context) {
	res, err := h.pricingService.GetPricing(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// UpdatePricing changes the prices and rates used for new bookings
// @Summary      Update pricing
// @Description  Partial update; omitted fields keep their value. Existing bookings are not repriced.
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdatePricingRequest  true  "Pricing"
// @Success      200      {object}  response.Response{data=service.PricingResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/pricing [put]
func (h *PricingHandler) UpdatePricing(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.UpdatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.pricingService.UpdatePricing(c.Request.Context(), a, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Quote prices a quantity for the caller without creating a booking
// @Summary      Quote a delivery
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.QuoteRequest  true  "Quantity"
// @Success      200      {object}  response.Response{data=pricing.Breakdown}
// @Failure      400      {object}  response.Response
// @Router       /api/pricing/quote [post]
func (h *PricingHandler) Quote(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bd, err := h.pricingService.Quote(c.Request.Context(), a, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bd))
}
