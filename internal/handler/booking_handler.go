package handler

import (
	"net/http"

	"fueldelivery/internal/booking"
	"fueldelivery/internal/middleware"
	"fueldelivery/internal/model"
	"fueldelivery/internal/service"
	"fueldelivery/pkg/pagination"
	"fueldelivery/pkg/response"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService service.BookingService
	auth           *middleware.Auth
}

func NewBookingHandler(bookingService service.BookingService, auth *middleware.Auth) *BookingHandler {
	return &BookingHandler{bookingService: bookingService, auth: auth}
}

func (h *BookingHandler) RegisterRoutes(router *gin.RouterGroup) {
	bookings := router.Group("/api/bookings")
	{
		bookings.POST("", h.auth.RequireRole(model.RoleCustomer), h.CreateBooking)
		bookings.GET("", h.auth.RequireRole(), h.ListBookings)
		bookings.GET("/:id", h.auth.RequireRole(), h.GetBooking)
		bookings.PUT("/:id", h.auth.RequireRole(model.RoleAdmin), h.UpdateStatus)
	}

	router.GET("/api/reports/bookings", h.auth.RequireRole(model.RoleAdmin), h.ExportBookings)
}

// CreateBooking prices and stores a delivery request for the calling customer
// @Summary      Create booking
// @Description  Prices the request with the current pricing and the customer's modifier and stores a pending booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      booking.CreateRequest  true  "Booking"
// @Success      201      {object}  response.Response{data=service.BookingResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req booking.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.bookingService.CreateBooking(c.Request.Context(), a, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// ListBookings lists the caller's bookings, or every booking for administrators
// @Summary      List bookings
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        status   query     string  false  "Filter by status"
// @Param        user_id  query     string  false  "Filter by customer (admin only)"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Number of items per page (default 20)"
// @Success      200      {object}  response.Response{data=object}
// @Router       /api/bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.bookingService.ListBookings(c.Request.Context(), a, service.BookingFilter{
		Status: c.Query("status"),
		UserID: c.Query("user_id"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Result(items, total)))
}

// ExportBookings downloads matching bookings as a spreadsheet
// @Summary      Export bookings report
// @Tags         bookings
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        status   query  string  false  "Filter by status"
// @Param        user_id  query  string  false  "Filter by customer"
// @Success      200
// @Failure      403  {object}  response.Response
// @Router       /api/reports/bookings [get]
func (h *BookingHandler) ExportBookings(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	out, err := h.bookingService.ExportBookings(c.Request.Context(), a, service.BookingFilter{
		Status: c.Query("status"),
		UserID: c.Query("user_id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	sendFile(c, out)
}

// GetBooking returns one booking with its pricing snapshot
// @Summary      Get booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  response.Response{data=service.BookingResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	res, err := h.bookingService.GetBooking(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// UpdateStatus moves a booking to another status
// @Summary      Update booking status
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                              true  "Booking ID"
// @Param        payload  body      service.UpdateBookingStatusRequest  true  "Status"
// @Success      200      {object}  response.Response{data=service.BookingResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/bookings/{id} [put]
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.bookingService.UpdateStatus(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
