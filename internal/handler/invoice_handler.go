package handler

import (
	"fmt"
	"net/http"

	"fueldelivery/internal/middleware"
	"fueldelivery/internal/model"
	"fueldelivery/internal/service"
	"fueldelivery/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	auth           *middleware.Auth
}

func NewInvoiceHandler(invoiceService service.InvoiceService, auth *middleware.Auth) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, auth: auth}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.GET("/:id", h.auth.RequireRole(), h.GetInvoice)
		invoices.PUT("/:id", h.auth.RequireRole(model.RoleAdmin), h.RecordDelivery)
		invoices.POST("/:id/upload-image", h.auth.RequireRole(model.RoleAdmin), h.UploadImage)
		invoices.GET("/:id/images/:filename", h.auth.RequireRole(), h.GetImage)
		invoices.DELETE("/:id/images/:filename", h.auth.RequireRole(model.RoleAdmin), h.DeleteImage)
		invoices.GET("/:id/export-pdf", h.auth.RequireRole(), h.ExportPDF)
	}
}

// GetInvoice returns the booking's reconciliation against the governing quantity
// @Summary      Get invoice
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  response.Response{data=booking.Reconciliation}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	rec, err := h.invoiceService.GetInvoice(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// RecordDelivery stores ordered and dispensed liters
// @Summary      Record delivered amounts
// @Description  The stored quote is kept; the response carries the recomputed totals.
// @Description  An omitted amount keeps its recorded value; an empty string clears it.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Booking ID"
// @Param        payload  body      service.RecordDeliveryRequest  true  "Amounts"
// @Success      200      {object}  response.Response{data=booking.Reconciliation}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) RecordDelivery(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.RecordDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rec, err := h.invoiceService.RecordDelivery(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// UploadImage attaches an invoice image or PDF to the booking
// @Summary      Upload invoice image
// @Tags         invoices
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Booking ID"
// @Param        file  formData  file    true  "Image (jpeg, png, gif, webp) or PDF, max 10 MB"
// @Success      201   {object}  response.Response{data=object}
// @Failure      400   {object}  response.Response
// @Failure      409   {object}  response.Response "Image limit reached"
// @Router       /api/invoices/{id}/upload-image [post]
func (h *InvoiceHandler) UploadImage(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	blob, images, err := h.invoiceService.UploadImage(c.Request.Context(), a, c.Param("id"), f)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{
		"file":           blob,
		"invoice_images": images,
	}))
}

// GetImage streams an attached invoice image
// @Summary      Download invoice image
// @Tags         invoices
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        id        path  string  true  "Booking ID"
// @Param        filename  path  string  true  "Image file name"
// @Success      200
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/images/{filename} [get]
func (h *InvoiceHandler) GetImage(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	rc, blob, err := h.invoiceService.OpenImage(c.Request.Context(), a, c.Param("id"), c.Param("filename"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, blob.Size, blob.ContentType, rc, nil)
}

// DeleteImage detaches an invoice image; detaching an absent image succeeds
// @Summary      Delete invoice image
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true  "Booking ID"
// @Param        filename  path      string  true  "Image file name"
// @Success      200       {object}  response.Response{data=object}
// @Failure      404       {object}  response.Response
// @Router       /api/invoices/{id}/images/{filename} [delete]
func (h *InvoiceHandler) DeleteImage(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	images, err := h.invoiceService.DeleteImage(c.Request.Context(), a, c.Param("id"), c.Param("filename"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"invoice_images": images}))
}

// ExportPDF renders the invoice document
// @Summary      Export invoice PDF
// @Tags         invoices
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path  string  true  "Booking ID"
// @Success      200
// @Failure      404  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/invoices/{id}/export-pdf [get]
func (h *InvoiceHandler) ExportPDF(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	out, err := h.invoiceService.ExportPDF(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	sendFile(c, out)
}
