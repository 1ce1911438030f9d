package repository

import (
	"context"
	"time"

	"github.com/edumarket/booking-service/internal/models"
	"gorm.io/gorm"
)

// activeStatuses are the payment states that block a new attempt for the
// same booking.
var activeStatuses = []models.PaymentStatus{
	models.PaymentPending,
	models.PaymentProcessing,
	models.PaymentCompleted,
}

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	// FindByIDForUpdate serializes settlement-producing transitions: a late
	// webhook and a manual capture/cancel on the same payment cannot
	// interleave.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	FindActiveByBooking(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Payment, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]any) error
	// CancelAbandoned marks pending payments that never reached the gateway
	// and are older than cutoff as cancelled, freeing the booking for a new
	// attempt.
	CancelAbandoned(ctx context.Context, cutoff time.Time) (int64, error)
	GetDB() *gorm.DB
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *paymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindActiveByBooking(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Payment, error) {
	var payment models.Payment
	err := tx.WithContext(ctx).
		Where("booking_id = ? AND status IN ?", bookingID, activeStatuses).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]any) error {
	return tx.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *paymentRepository) CancelAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status = ? AND gateway_order_id IS NULL AND created_at < ?", models.PaymentPending, cutoff).
		Updates(map[string]any{
			"status":         models.PaymentCancelled,
			"failure_reason": "abandoned before checkout",
		})
	return res.RowsAffected, res.Error
}
