package models

import "time"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Payment is one attempt to settle a booking's charge via the installment
// gateway. At most one payment per booking may be pending/processing/completed
// at a time; a new attempt requires the prior one to be failed or cancelled.
type Payment struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	BookingID          uint          `gorm:"not null;index" json:"booking_id"`
	StudentID          string        `gorm:"type:varchar(64);not null" json:"student_id"`
	TeacherID          string        `gorm:"type:varchar(64);not null" json:"teacher_id"`
	Amount             float64       `gorm:"not null" json:"amount"`
	Currency           string        `gorm:"type:varchar(3);not null;default:'AED'" json:"currency"`
	Status             PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TransactionID      string        `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_id"`
	GatewayOrderID     *string       `gorm:"type:varchar(128);index" json:"gateway_order_id,omitempty"`
	CheckoutURL        string        `gorm:"type:text" json:"checkout_url,omitempty"`
	GatewayRawResponse string        `gorm:"type:text" json:"-"`
	FailureReason      string        `gorm:"type:text" json:"failure_reason,omitempty"`
	PaidAt             *time.Time    `json:"paid_at,omitempty"`
	FailedAt           *time.Time    `json:"failed_at,omitempty"`
	RefundedAt         *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}
