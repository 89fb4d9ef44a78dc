package service

import (
	"context"
	"testing"

	"fueldelivery/internal/model"
	"fueldelivery/internal/repository"
	"fueldelivery/internal/storage"
	"fueldelivery/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(eventType string, data interface{}) {
	m.Called(eventType, data)
}

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	args := m.Called(ctx, html)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type stubIssuer struct{}

func (stubIssuer) IssueToken(user *model.User) (string, error) {
	return "token-" + user.ID.String(), nil
}

type fixture struct {
	db        *gorm.DB
	ctx       context.Context
	events    *mockPublisher
	renderer  *mockRenderer
	uploadDir string

	userRepo    repository.UserRepository
	bookingRepo repository.BookingRepository
	auditRepo   repository.AuditRepository
	tankRepo    repository.OwnedRepository[model.FuelTank]

	users    UserService
	pricing  PricingService
	bookings BookingService
	invoices InvoiceService
	logs     DeliveryLogService
	stats    StatisticsService
	audit    AuditService
	tanks    ResourceService[model.FuelTank, FuelTankRequest]

	admin    Actor
	customer Actor
	other    Actor
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newFixture wires every service over a fresh database. Pricing is fuel 1.50/L with no rack price,
// carbon taxes 0.10 and 0.05, GST 5% and QST 9.975%.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	ctx := context.Background()

	events := &mockPublisher{}
	events.On("Publish", mock.Anything, mock.Anything).Return()
	renderer := &mockRenderer{}

	uploadDir := t.TempDir()
	blobs, err := storage.NewLocalStore(uploadDir)
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
		FuelPricePerLiter: dec("1.50"),
		FederalCarbonTax:  dec("0.10"),
		QuebecCarbonTax:   dec("0.05"),
		GSTRate:           dec("0.05"),
		QSTRate:           dec("0.09975"),
	}))

	pricingSvc := NewPricingService(pricingRepo, userRepo, auditRepo, tx, events)
	f := &fixture{
		db:          db,
		ctx:         ctx,
		events:      events,
		renderer:    renderer,
		uploadDir:   uploadDir,
		userRepo:    userRepo,
		bookingRepo: bookingRepo,
		auditRepo:   auditRepo,
		tankRepo:    tankRepo,
		users:       NewUserService(userRepo, auditRepo, tx, stubIssuer{}),
		pricing:     pricingSvc,
		bookings:    NewBookingService(bookingRepo, userRepo, tankRepo, equipmentRepo, auditRepo, pricingSvc, tx, events),
		invoices:    NewInvoiceService(bookingRepo, logRepo, auditRepo, tx, blobs, renderer, events),
		logs:        NewDeliveryLogService(logRepo, bookingRepo, auditRepo, tx, events),
		stats:       NewStatisticsService(repository.NewStatisticsRepository(db)),
		audit:       NewAuditService(auditRepo),
		tanks:       NewFuelTankService(tankRepo),
	}

	f.admin = f.seedUser(t, "Dispatch", "admin@example.com", model.RoleAdmin, "0")
	f.customer = f.seedUser(t, "Alice Tremblay", "alice@example.com", model.RoleCustomer, "-0.05")
	f.other = f.seedUser(t, "Bob Gagnon", "bob@example.com", model.RoleCustomer, "0")
	return f
}

func (f *fixture) seedUser(t *testing.T, name, email, role, modifier string) Actor {
	t.Helper()
	u := &model.User{Name: name, Email: email, Password: "x", Role: role, PriceModifier: dec(modifier)}
	require.NoError(t, f.userRepo.Create(f.ctx, u))
	return Actor{UserID: u.ID, Role: role}
}

func (f *fixture) createBooking(t *testing.T, liters string) BookingResponse {
	t.Helper()
	req := bookingRequest(liters)
	res, err := f.bookings.CreateBooking(f.ctx, f.customer, req)
	require.NoError(t, err)
	return res
}
