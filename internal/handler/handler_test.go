package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/middleware"
	"fueldelivery/internal/model"
	"fueldelivery/internal/repository"
	"fueldelivery/internal/service"
	"fueldelivery/internal/storage"
	"fueldelivery/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Field      string          `json:"field"`
}

type testServer struct {
	router        *gin.Engine
	adminToken    string
	customerToken string
	otherToken    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	ctx := context.Background()
	auth := middleware.NewAuth("test-secret")

	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	tx := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	pricingRepo := repository.NewPricingRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	logRepo := repository.NewDeliveryLogRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	tankRepo := repository.NewFuelTankRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)

	require.NoError(t, pricingRepo.Save(ctx, &model.PricingConfig{
		FuelPricePerLiter: decimal.RequireFromString("1.50"),
		FederalCarbonTax:  decimal.RequireFromString("0.10"),
		QuebecCarbonTax:   decimal.RequireFromString("0.05"),
		GSTRate:           decimal.RequireFromString("0.05"),
		QSTRate:           decimal.RequireFromString("0.09975"),
	}))

	pricingSvc := service.NewPricingService(pricingRepo, userRepo, auditRepo, tx, nil)
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		NewUserHandler(service.NewUserService(userRepo, auditRepo, tx, auth), auth),
		NewPricingHandler(pricingSvc, auth),
		NewBookingHandler(service.NewBookingService(bookingRepo, userRepo, tankRepo, equipmentRepo, auditRepo, pricingSvc, tx, nil), auth),
		NewInvoiceHandler(service.NewInvoiceService(bookingRepo, logRepo, auditRepo, tx, blobs, nil, nil), auth),
		NewDeliveryLogHandler(service.NewDeliveryLogService(logRepo, bookingRepo, auditRepo, tx, nil), auth),
		NewResourceHandler(service.NewFuelTankService(tankRepo), auth, "/api/fuel-tanks", "/api/admin/fuel-tanks"),
		NewStatisticsHandler(service.NewStatisticsService(repository.NewStatisticsRepository(db)), auth),
		NewAuditHandler(service.NewAuditService(auditRepo), auth),
	}
	router := gin.New()
	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	token := func(name, email, role string) string {
		u := &model.User{Name: name, Email: email, Password: "x", Role: role}
		require.NoError(t, userRepo.Create(ctx, u))
		tok, err := auth.IssueToken(u)
		require.NoError(t, err)
		return tok
	}

	return &testServer{
		router:        router,
		adminToken:    token("Dispatch", "admin@example.com", model.RoleAdmin),
		customerToken: token("Alice", "alice@example.com", model.RoleCustomer),
		otherToken:    token("Bob", "bob@example.com", model.RoleCustomer),
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) upload(t *testing.T, path, token string, content []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "receipt.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return s.serve(t, req)
}

func (s *testServer) createBooking(t *testing.T) service.BookingResponse {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/bookings", s.customerToken, map[string]interface{}{
		"fuel_type":            "diesel",
		"fuel_quantity_liters": 1000,
		"delivery_address":     "123 Rue Principale, Montreal",
		"preferred_date":       "2026-11-02",
		"preferred_time":       "08:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var b service.BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &b))
	return b
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperror.Validation("x", "bad"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", apperror.ErrInvalidPrice), http.StatusBadRequest},
		{apperror.ErrInvalidQuantity, http.StatusBadRequest},
		{fmt.Errorf("%w: booking", apperror.ErrNotFound), http.StatusNotFound},
		{apperror.ErrCapacityExceeded, http.StatusConflict},
		{apperror.ErrConflict, http.StatusConflict},
		{apperror.ErrForbidden, http.StatusForbidden},
		{apperror.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Carol", "email": "carol@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Carol", "email": "carol@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "carol@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var tok service.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	assert.NotEmpty(t, tok.Token)
	assert.NotEmpty(t, w.Result().Cookies())

	w, env = s.do(t, http.MethodGet, "/api/auth/me", tok.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "carol@example.com")

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "carol@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingEndpoints(t *testing.T) {
	s := newTestServer(t)
	b := s.createBooking(t)
	assert.Equal(t, "1905.32", b.TotalPrice)

	w, env := s.do(t, http.MethodPost, "/api/bookings", s.customerToken, map[string]interface{}{
		"fuel_type": "kerosene", "fuel_quantity_liters": 10, "delivery_address": "x",
		"preferred_date": "2026-11-02", "preferred_time": "08:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "fuel_type", env.Field)

	w, _ = s.do(t, http.MethodPost, "/api/bookings", s.adminToken, map[string]interface{}{"fuel_type": "diesel"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/bookings/"+b.ID, s.otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/bookings", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []service.BookingResponse `json:"items"`
		Total int64                     `json:"total"`
		Page  int                       `json:"page"`
		Pages int                       `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 1, list.Pages)

	w, _ = s.do(t, http.MethodPut, "/api/bookings/"+b.ID, s.customerToken, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodPut, "/api/bookings/"+b.ID, s.adminToken, map[string]string{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"status":"delivered"`)

	w, _ = s.do(t, http.MethodPut, "/api/bookings/"+b.ID, s.adminToken, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/reports/bookings", s.customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/reports/bookings?status=delivered", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestInvoiceEndpoints(t *testing.T) {
	s := newTestServer(t)
	b := s.createBooking(t)
	base := "/api/invoices/" + b.ID

	w, env := s.do(t, http.MethodPut, base, s.adminToken, map[string]string{"dispensed_amount": "800"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"quantity_source":"dispensed_amount"`)

	// Correcting only the ordered amount leaves dispensed in place.
	w, env = s.do(t, http.MethodPut, base, s.adminToken, map[string]string{"ordered_amount": "900"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"quantity_source":"dispensed_amount"`)

	w, _ = s.do(t, http.MethodPut, base, s.adminToken, map[string]string{"dispensed_amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var filename string
	for i := 0; i < model.MaxInvoiceImages; i++ {
		w, env = s.upload(t, base+"/upload-image", s.adminToken, pngHeader)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var res struct {
			File storage.Blob `json:"file"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &res))
		filename = res.File.Filename
	}
	w, _ = s.upload(t, base+"/upload-image", s.adminToken, pngHeader)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.upload(t, base+"/upload-image", s.adminToken, []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, base+"/images/"+filename, s.customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, w.Body.Bytes())

	w, _ = s.do(t, http.MethodDelete, base+"/images/"+filename, s.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, base+"/images/"+filename, s.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, base+"/images/"+filename, s.customerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, base+"/export-pdf", s.customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "INV-"+b.ID[:8])
	assert.Contains(t, w.Body.String(), "1524.25")
}

func TestDeliveryLogAndAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	b := s.createBooking(t)

	w, _ := s.do(t, http.MethodPost, "/api/logs", s.adminToken, map[string]string{
		"booking_id": b.ID, "truck_license_plate": "QC-1", "driver_name": "Marc", "liters_delivered": "400",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodPost, "/api/logs", s.adminToken, map[string]string{"booking_id": b.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/logs", s.customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/logs/booking/"+b.ID, s.customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "QC-1")

	w, env = s.do(t, http.MethodGet, "/api/stats", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total_bookings":1`)

	w, env = s.do(t, http.MethodGet, "/api/audit-logs?action="+model.ActionCreateDeliveryLog, s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	w, _ = s.do(t, http.MethodGet, "/api/audit-logs", s.customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPricingAndResourceEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/pricing/quote", s.customerToken, map[string]string{"quantity": "1000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"total_price":"1905.32"`)

	w, _ = s.do(t, http.MethodPut, "/api/pricing", s.customerToken, map[string]string{"gst_rate": "0.06"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodPut, "/api/pricing", s.adminToken, map[string]string{"rack_price": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPut, "/api/pricing", s.adminToken, map[string]string{"rack_price": "1.25"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/fuel-tanks", s.customerToken, map[string]string{"name": "Yard", "capacity": "5000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tank model.FuelTank
	require.NoError(t, json.Unmarshal(env.Data, &tank))

	w, _ = s.do(t, http.MethodDelete, "/api/fuel-tanks/"+tank.ID.String(), s.otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/admin/fuel-tanks", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Yard")

	w, _ = s.do(t, http.MethodGet, "/api/admin/fuel-tanks", s.customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/fuel-tanks/"+tank.ID.String(), s.customerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
