package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type BookingPaymentStatus string

const (
	PaymentStatusPending BookingPaymentStatus = "pending"
	PaymentStatusPaid    BookingPaymentStatus = "paid"
	PaymentStatusFailed  BookingPaymentStatus = "failed"
)

// Booking is a student's reservation of one or more slots with one teacher.
// Slots point back at the booking via slots.booking_id while the booking is
// non-terminal; rejection and cancellation release them.
type Booking struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	TeacherID     string               `gorm:"type:varchar(64);not null;index" json:"teacher_id"`
	StudentID     string               `gorm:"type:varchar(64);not null;index" json:"student_id"`
	SubjectLabel  string               `gorm:"type:varchar(255)" json:"subject_label"`
	UnitPrice     float64              `gorm:"not null" json:"unit_price"`
	TotalPrice    float64              `gorm:"not null" json:"total_price"`
	Currency      string               `gorm:"type:varchar(3);not null;default:'AED'" json:"currency"`
	Status        BookingStatus        `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus BookingPaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	RejectReason  string               `gorm:"type:text" json:"reject_reason,omitempty"`
	ApprovedAt    *time.Time           `json:"approved_at,omitempty"`
	RejectedAt    *time.Time           `json:"rejected_at,omitempty"`
	CancelledAt   *time.Time           `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`

	Slots []Slot `gorm:"foreignKey:BookingID" json:"slots,omitempty"`
}

// IsTerminal reports whether no further lifecycle transition is allowed.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingRejected || b.Status == BookingCancelled || b.Status == BookingCompleted
}
