package handler

import (
	"net/http"

	"fueldelivery/internal/middleware"
	"fueldelivery/internal/model"
	"fueldelivery/internal/service"
	"fueldelivery/pkg/pagination"
	"fueldelivery/pkg/response"

	"github.com/gin-gonic/gin"
)

type DeliveryLogHandler struct {
	logService service.DeliveryLogService
	auth       *middleware.Auth
}

func NewDeliveryLogHandler(logService service.DeliveryLogService, auth *middleware.Auth) *DeliveryLogHandler {
	return &DeliveryLogHandler{logService: logService, auth: auth}
}

func (h *DeliveryLogHandler) RegisterRoutes(router *gin.RouterGroup) {
	logs := router.Group("/api/logs")
	{
		logs.POST("", h.auth.RequireRole(model.RoleAdmin), h.CreateLog)
		logs.GET("", h.auth.RequireRole(model.RoleAdmin), h.ListLogs)
		logs.GET("/booking/:id", h.auth.RequireRole(), h.ListByBooking)
	}
}

// CreateLog records a truck drop against a booking
// @Summary      Create delivery log
// @Tags         delivery-logs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateDeliveryLogRequest  true  "Delivery"
// @Success      201      {object}  response.Response{data=service.DeliveryLogResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/logs [post]
func (h *DeliveryLogHandler) CreateLog(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.CreateDeliveryLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.logService.CreateLog(c.Request.Context(), a, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// ListLogs lists delivery logs, newest first
// @Summary      List delivery logs
// @Tags         delivery-logs
// @Produce      json
// @Security     BearerAuth
// @Param        booking_id  query     string  false  "Filter by booking"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=object}
// @Router       /api/logs [get]
func (h *DeliveryLogHandler) ListLogs(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	logs, total, err := h.logService.ListLogs(c.Request.Context(), a, c.Query("booking_id"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Result(logs, total)))
}

// ListByBooking lists the logs of one booking, oldest first
// @Summary      List delivery logs of a booking
// @Tags         delivery-logs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  response.Response{data=[]service.DeliveryLogResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/logs/booking/{id} [get]
func (h *DeliveryLogHandler) ListByBooking(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	logs, err := h.logService.ListByBooking(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}
