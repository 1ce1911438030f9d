package service

import (
	"context"
	"errors"
	"time"

	"github.com/edumarket/booking-service/internal/dispatch"
	"github.com/edumarket/booking-service/internal/models"
	"github.com/edumarket/booking-service/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrNoSlotsSelected  = errors.New("no slots selected")
	ErrMixedTeachers    = errors.New("slots belong to more than one teacher")
	ErrSlotUnavailable  = errors.New("one or more slots are no longer available")
	ErrUnauthorized     = errors.New("acting user is not a party to this booking")
	ErrAlreadyFinalized = errors.New("booking is already in a terminal state")
	ErrAlreadyCompleted = errors.New("booking is already completed")
	ErrNotConfirmed     = errors.New("booking must be confirmed first")
)

type CreateBookingInput struct {
	StudentID    string
	TeacherID    string
	SlotIDs      []uint
	SubjectLabel string
	UnitPrice    float64
	Currency     string
}

type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error)
	Approve(ctx context.Context, bookingID uint, actingTeacherID string) (*models.Booking, error)
	Reject(ctx context.Context, bookingID uint, actingTeacherID, reason string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID uint, actingUserID string) (*models.Booking, error)
	Complete(ctx context.Context, bookingID uint, actingTeacherID string) (*models.Booking, error)
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListAvailableSlots(ctx context.Context, teacherID string) ([]models.Slot, error)

	// BookingFinalizer — tx-scoped hooks driven by the payment reconciler.
	FinalizeOnPayment(ctx context.Context, tx *gorm.DB, bookingID uint) error
	CancelForPayment(ctx context.Context, tx *gorm.DB, bookingID uint) error
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	slotRepo    repository.SlotRepository
	dispatcher  dispatch.Dispatcher
	logger      *zap.Logger
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	slotRepo repository.SlotRepository,
	dispatcher dispatch.Dispatcher,
	logger *zap.Logger,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		slotRepo:    slotRepo,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// CreateBooking reserves the slots and creates the booking in one
// transaction. The reservation itself is a conditional update on
// status='available', so under concurrent requests for the same slot exactly
// one transaction commits; the loser rolls back with ErrSlotUnavailable and
// no booking row.
func (s *bookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if len(in.SlotIDs) == 0 {
		return nil, ErrNoSlotsSelected
	}
	if in.Currency == "" {
		in.Currency = "AED"
	}

	var result *models.Booking

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slots, err := s.slotRepo.FindByIDs(ctx, tx, in.SlotIDs)
		if err != nil {
			return err
		}
		if len(slots) != len(in.SlotIDs) {
			return ErrSlotUnavailable
		}
		for _, slot := range slots {
			if slot.TeacherID != in.TeacherID {
				return ErrMixedTeachers
			}
		}

		booking := &models.Booking{
			TeacherID:     in.TeacherID,
			StudentID:     in.StudentID,
			SubjectLabel:  in.SubjectLabel,
			UnitPrice:     in.UnitPrice,
			TotalPrice:    in.UnitPrice * float64(len(in.SlotIDs)),
			Currency:      in.Currency,
			Status:        models.BookingPending,
			PaymentStatus: models.PaymentStatusPending,
		}
		if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
			return err
		}

		reserved, err := s.slotRepo.ReserveForBooking(ctx, tx, in.SlotIDs, in.TeacherID, booking.ID)
		if err != nil {
			return err
		}
		if reserved != int64(len(in.SlotIDs)) {
			// Another booking won at least one slot; roll everything back.
			return ErrSlotUnavailable
		}

		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Uint("booking_id", result.ID),
		zap.String("student_id", in.StudentID),
		zap.String("teacher_id", in.TeacherID),
		zap.Int("slots", len(in.SlotIDs)),
	)
	s.dispatch(dispatch.Event{
		Name:      dispatch.EventBookingCreated,
		BookingID: result.ID,
		StudentID: result.StudentID,
		TeacherID: result.TeacherID,
	})

	return s.bookingRepo.FindByID(ctx, result.ID)
}

func (s *bookingService) Approve(ctx context.Context, bookingID uint, actingTeacherID string) (*models.Booking, error) {
	booking, err := s.transition(ctx, bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if b.TeacherID != actingTeacherID {
			return ErrUnauthorized
		}
		if b.Status != models.BookingPending {
			return ErrAlreadyFinalized
		}
		now := time.Now()
		return s.bookingRepo.UpdateFields(ctx, tx, b.ID, map[string]any{
			"status":      models.BookingConfirmed,
			"approved_at": &now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(dispatch.Event{
		Name:      dispatch.EventBookingConfirmed,
		BookingID: booking.ID,
		StudentID: booking.StudentID,
		TeacherID: booking.TeacherID,
	})
	return booking, nil
}

func (s *bookingService) Reject(ctx context.Context, bookingID uint, actingTeacherID, reason string) (*models.Booking, error) {
	booking, err := s.transition(ctx, bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if b.TeacherID != actingTeacherID {
			return ErrUnauthorized
		}
		if b.Status != models.BookingPending {
			return ErrAlreadyFinalized
		}
		now := time.Now()
		if err := s.bookingRepo.UpdateFields(ctx, tx, b.ID, map[string]any{
			"status":        models.BookingRejected,
			"reject_reason": reason,
			"rejected_at":   &now,
		}); err != nil {
			return err
		}
		return s.slotRepo.Release(ctx, tx, b.ID)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(dispatch.Event{
		Name:      dispatch.EventBookingRejected,
		BookingID: booking.ID,
		StudentID: booking.StudentID,
		TeacherID: booking.TeacherID,
	})
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, bookingID uint, actingUserID string) (*models.Booking, error) {
	booking, err := s.transition(ctx, bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if actingUserID != b.StudentID && actingUserID != b.TeacherID {
			return ErrUnauthorized
		}
		if b.Status == models.BookingCompleted {
			return ErrAlreadyCompleted
		}
		if b.Status == models.BookingRejected || b.Status == models.BookingCancelled {
			return ErrAlreadyFinalized
		}
		now := time.Now()
		if err := s.bookingRepo.UpdateFields(ctx, tx, b.ID, map[string]any{
			"status":       models.BookingCancelled,
			"cancelled_at": &now,
		}); err != nil {
			return err
		}
		return s.slotRepo.Release(ctx, tx, b.ID)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(dispatch.Event{
		Name:      dispatch.EventBookingCancelled,
		BookingID: booking.ID,
		StudentID: booking.StudentID,
		TeacherID: booking.TeacherID,
	})
	return booking, nil
}

func (s *bookingService) Complete(ctx context.Context, bookingID uint, actingTeacherID string) (*models.Booking, error) {
	booking, err := s.transition(ctx, bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if b.TeacherID != actingTeacherID {
			return ErrUnauthorized
		}
		if b.IsTerminal() {
			return ErrAlreadyFinalized
		}
		if b.Status != models.BookingConfirmed {
			return ErrNotConfirmed
		}
		now := time.Now()
		return s.bookingRepo.UpdateFields(ctx, tx, b.ID, map[string]any{
			"status":       models.BookingCompleted,
			"completed_at": &now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(dispatch.Event{
		Name:      dispatch.EventBookingCompleted,
		BookingID: booking.ID,
		StudentID: booking.StudentID,
		TeacherID: booking.TeacherID,
	})
	return booking, nil
}

// FinalizeOnPayment marks the booking paid inside the reconciler's
// transaction and auto-advances a pending booking to confirmed. Idempotent:
// a booking already marked paid is left untouched.
func (s *bookingService) FinalizeOnPayment(ctx context.Context, tx *gorm.DB, bookingID uint) error {
	booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		return err
	}
	if booking.PaymentStatus == models.PaymentStatusPaid {
		return nil
	}

	fields := map[string]any{"payment_status": models.PaymentStatusPaid}
	if booking.Status == models.BookingPending {
		now := time.Now()
		fields["status"] = models.BookingConfirmed
		fields["approved_at"] = &now
	}
	return s.bookingRepo.UpdateFields(ctx, tx, bookingID, fields)
}

// CancelForPayment cancels the booking and releases its slots when its
// payment is cancelled. A completed booking keeps its slots (the session was
// delivered); terminal bookings are left alone.
func (s *bookingService) CancelForPayment(ctx context.Context, tx *gorm.DB, bookingID uint) error {
	booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		return err
	}
	if booking.IsTerminal() {
		return nil
	}
	now := time.Now()
	if err := s.bookingRepo.UpdateFields(ctx, tx, bookingID, map[string]any{
		"status":       models.BookingCancelled,
		"cancelled_at": &now,
	}); err != nil {
		return err
	}
	return s.slotRepo.Release(ctx, tx, bookingID)
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListAvailableSlots(ctx context.Context, teacherID string) ([]models.Slot, error) {
	return s.slotRepo.FindAvailableByTeacher(ctx, teacherID)
}

// transition runs fn against a row-locked booking in one transaction and
// reloads the booking afterwards.
func (s *bookingService) transition(ctx context.Context, bookingID uint, fn func(tx *gorm.DB, b *models.Booking) error) (*models.Booking, error) {
	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		return fn(tx, booking)
	})
	if err != nil {
		return nil, err
	}
	return s.bookingRepo.FindByID(ctx, bookingID)
}

func (s *bookingService) dispatch(event dispatch.Event) {
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(event)
	}
}
