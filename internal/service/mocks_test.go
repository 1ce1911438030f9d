package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/edumarket/booking-service/internal/dispatch"
	"github.com/edumarket/booking-service/internal/gateway"
	"github.com/edumarket/booking-service/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB backs gorm with sqlmock so service transactions have a real
// Begin/Commit/Rollback path while the repositories stay mocked.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

// --- Mock SlotRepository ---

type mockSlotRepo struct {
	db *gorm.DB

	reserveFn       func(ctx context.Context, tx *gorm.DB, slotIDs []uint, teacherID string, bookingID uint) (int64, error)
	releaseFn       func(ctx context.Context, tx *gorm.DB, bookingID uint) error
	findByIDsFn     func(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Slot, error)
	findAvailableFn func(ctx context.Context, teacherID string) ([]models.Slot, error)

	releaseCalls int
}

func (m *mockSlotRepo) ReserveForBooking(ctx context.Context, tx *gorm.DB, slotIDs []uint, teacherID string, bookingID uint) (int64, error) {
	return m.reserveFn(ctx, tx, slotIDs, teacherID, bookingID)
}
func (m *mockSlotRepo) Release(ctx context.Context, tx *gorm.DB, bookingID uint) error {
	m.releaseCalls++
	if m.releaseFn != nil {
		return m.releaseFn(ctx, tx, bookingID)
	}
	return nil
}
func (m *mockSlotRepo) FindByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Slot, error) {
	return m.findByIDsFn(ctx, tx, ids)
}
func (m *mockSlotRepo) FindAvailableByTeacher(ctx context.Context, teacherID string) ([]models.Slot, error) {
	return m.findAvailableFn(ctx, teacherID)
}
func (m *mockSlotRepo) Upsert(ctx context.Context, slot *models.Slot) error { return nil }
func (m *mockSlotRepo) DeleteAvailable(ctx context.Context, id uint) error  { return nil }
func (m *mockSlotRepo) GetDB() *gorm.DB                                     { return m.db }

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	db *gorm.DB

	createFn        func(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	findByIDFn      func(ctx context.Context, id uint) (*models.Booking, error)
	findForUpdateFn func(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	updateFieldsFn  func(ctx context.Context, tx *gorm.DB, id uint, fields map[string]any) error

	updates []map[string]any
}

func (m *mockBookingRepo) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return m.createFn(ctx, tx, booking)
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockBookingRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	return m.findForUpdateFn(ctx, tx, id)
}
func (m *mockBookingRepo) FindByStudent(ctx context.Context, studentID string) ([]models.Booking, error) {
	return nil, nil
}
func (m *mockBookingRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]any) error {
	m.updates = append(m.updates, fields)
	if m.updateFieldsFn != nil {
		return m.updateFieldsFn(ctx, tx, id, fields)
	}
	return nil
}
func (m *mockBookingRepo) GetDB() *gorm.DB { return m.db }

// --- Mock PaymentRepository ---

type mockPaymentRepo struct {
	db *gorm.DB

	createFn        func(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
	findByIDFn      func(ctx context.Context, id uint) (*models.Payment, error)
	findForUpdateFn func(ctx context.Context, tx *gorm.DB, id uint) (*models.Payment, error)
	findByTxnFn     func(ctx context.Context, transactionID string) (*models.Payment, error)
	findActiveFn    func(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Payment, error)
	updateFieldsFn  func(ctx context.Context, tx *gorm.DB, id uint, fields map[string]any) error

	updates []map[string]any
}

func (m *mockPaymentRepo) Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	return m.createFn(ctx, tx, payment)
}
func (m *mockPaymentRepo) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockPaymentRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Payment, error) {
	return m.findForUpdateFn(ctx, tx, id)
}
func (m *mockPaymentRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return m.findByTxnFn(ctx, transactionID)
}
func (m *mockPaymentRepo) FindActiveByBooking(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Payment, error) {
	return m.findActiveFn(ctx, tx, bookingID)
}
func (m *mockPaymentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]any) error {
	m.updates = append(m.updates, fields)
	if m.updateFieldsFn != nil {
		return m.updateFieldsFn(ctx, tx, id, fields)
	}
	return nil
}
func (m *mockPaymentRepo) CancelAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
func (m *mockPaymentRepo) GetDB() *gorm.DB { return m.db }

// --- Mock BookingFinalizer ---

type mockFinalizer struct {
	finalizeCalls int
	cancelCalls   int
	finalizeFn    func(ctx context.Context, tx *gorm.DB, bookingID uint) error
}

func (m *mockFinalizer) FinalizeOnPayment(ctx context.Context, tx *gorm.DB, bookingID uint) error {
	m.finalizeCalls++
	if m.finalizeFn != nil {
		return m.finalizeFn(ctx, tx, bookingID)
	}
	return nil
}
func (m *mockFinalizer) CancelForPayment(ctx context.Context, tx *gorm.DB, bookingID uint) error {
	m.cancelCalls++
	return nil
}

// --- Mock Dispatcher ---

type mockDispatcher struct {
	mu     sync.Mutex
	events []dispatch.Event
}

func (m *mockDispatcher) Dispatch(event dispatch.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockDispatcher) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// --- Mock gateway.Client ---

type mockGateway struct {
	createCheckoutFn func(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResponse, error)
	getOrderFn       func(ctx context.Context, orderID string) (gateway.OrderStatus, error)
	authorizeFn      func(ctx context.Context, orderID string) (*gateway.AuthorizeResult, error)
	captureFn        func(ctx context.Context, orderID string, amount gateway.Amount) (gateway.OrderStatus, error)
	cancelOrderFn    func(ctx context.Context, orderID string, amount gateway.Amount) (gateway.OrderStatus, error)
	refundFn         func(ctx context.Context, orderID string, amount gateway.Amount, comment string) (gateway.OrderStatus, error)

	authorizeCalls int
	captureCalls   int
	refundCalls    int
	cancelCalls    int
}

func (m *mockGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResponse, error) {
	return m.createCheckoutFn(ctx, req)
}
func (m *mockGateway) GetOrder(ctx context.Context, orderID string) (gateway.OrderStatus, error) {
	return m.getOrderFn(ctx, orderID)
}
func (m *mockGateway) Authorize(ctx context.Context, orderID string) (*gateway.AuthorizeResult, error) {
	m.authorizeCalls++
	return m.authorizeFn(ctx, orderID)
}
func (m *mockGateway) Capture(ctx context.Context, orderID string, amount gateway.Amount) (gateway.OrderStatus, error) {
	m.captureCalls++
	return m.captureFn(ctx, orderID, amount)
}
func (m *mockGateway) CancelOrder(ctx context.Context, orderID string, amount gateway.Amount) (gateway.OrderStatus, error) {
	m.cancelCalls++
	return m.cancelOrderFn(ctx, orderID, amount)
}
func (m *mockGateway) Refund(ctx context.Context, orderID string, amount gateway.Amount, comment string) (gateway.OrderStatus, error) {
	m.refundCalls++
	return m.refundFn(ctx, orderID, amount, comment)
}
func (m *mockGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	return true
}
