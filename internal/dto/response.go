package dto

import (
	"time"

	"github.com/edumarket/booking-service/internal/models"
)

type SlotResponse struct {
	ID        uint              `json:"id"`
	TeacherID string            `json:"teacher_id"`
	Date      string            `json:"date"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	SubjectID *uint             `json:"subject_id,omitempty"`
	Status    models.SlotStatus `json:"status"`
}

type BookingResponse struct {
	ID            uint                        `json:"id"`
	TeacherID     string                      `json:"teacher_id"`
	StudentID     string                      `json:"student_id"`
	SubjectLabel  string                      `json:"subject_label"`
	UnitPrice     float64                     `json:"unit_price"`
	TotalPrice    float64                     `json:"total_price"`
	Currency      string                      `json:"currency"`
	Status        models.BookingStatus        `json:"status"`
	PaymentStatus models.BookingPaymentStatus `json:"payment_status"`
	Slots         []SlotResponse              `json:"slots"`
	CreatedAt     time.Time                   `json:"created_at"`
}

type PaymentResponse struct {
	ID             uint                 `json:"id"`
	BookingID      uint                 `json:"booking_id"`
	Amount         float64              `json:"amount"`
	Currency       string               `json:"currency"`
	Status         models.PaymentStatus `json:"status"`
	TransactionID  string               `json:"transaction_id"`
	GatewayOrderID *string              `json:"gateway_order_id,omitempty"`
	CheckoutURL    string               `json:"checkout_url,omitempty"`
	FailureReason  string               `json:"failure_reason,omitempty"`
	PaidAt         *time.Time           `json:"paid_at,omitempty"`
	RefundedAt     *time.Time           `json:"refunded_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToSlotResponse(s *models.Slot) SlotResponse {
	return SlotResponse{
		ID:        s.ID,
		TeacherID: s.TeacherID,
		Date:      s.Date.Format("2006-01-02"),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		SubjectID: s.SubjectID,
		Status:    s.Status,
	}
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	slots := make([]SlotResponse, len(b.Slots))
	for i := range b.Slots {
		slots[i] = ToSlotResponse(&b.Slots[i])
	}
	return BookingResponse{
		ID:            b.ID,
		TeacherID:     b.TeacherID,
		StudentID:     b.StudentID,
		SubjectLabel:  b.SubjectLabel,
		UnitPrice:     b.UnitPrice,
		TotalPrice:    b.TotalPrice,
		Currency:      b.Currency,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		Slots:         slots,
		CreatedAt:     b.CreatedAt,
	}
}

func ToPaymentResponse(p *models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		BookingID:      p.BookingID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         p.Status,
		TransactionID:  p.TransactionID,
		GatewayOrderID: p.GatewayOrderID,
		CheckoutURL:    p.CheckoutURL,
		FailureReason:  p.FailureReason,
		PaidAt:         p.PaidAt,
		RefundedAt:     p.RefundedAt,
		CreatedAt:      p.CreatedAt,
	}
}
