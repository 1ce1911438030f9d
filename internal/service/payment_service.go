package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edumarket/booking-service/internal/dispatch"
	"github.com/edumarket/booking-service/internal/gateway"
	"github.com/edumarket/booking-service/internal/models"
	"github.com/edumarket/booking-service/internal/phone"
	"github.com/edumarket/booking-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrPaymentInProgress         = errors.New("an active payment already exists for this booking")
	ErrInvalidPhoneNumber        = errors.New("no stored phone number normalizes to the gateway's required format")
	ErrPaymentNotPending         = errors.New("payment is not awaiting checkout")
	ErrPaymentNotProcessing      = errors.New("payment is not awaiting capture")
	ErrPaymentAlreadyCompleted   = errors.New("payment is already completed")
	ErrPaymentAlreadyCancelled   = errors.New("payment is already cancelled")
	ErrPaymentAlreadyRefunded    = errors.New("payment is already refunded")
	ErrPaymentNotCompleted       = errors.New("payment is not completed")
	ErrMustRefundInstead         = errors.New("payment was captured by the gateway, use refund instead")
	ErrCancellationWindowExpired = errors.New("cancellation window has expired")
	ErrCaptureFailed             = errors.New("gateway did not confirm the capture")
)

// ReconcileOutcome tags the result of one reconciliation pass. A single
// reconciliation function serves every entry point (webhook, success
// redirect, manual status check) so local state cannot drift.
type ReconcileOutcome string

const (
	OutcomeCompleted  ReconcileOutcome = "completed"
	OutcomeProcessing ReconcileOutcome = "processing"
	OutcomeFailed     ReconcileOutcome = "failed"
	OutcomePending    ReconcileOutcome = "pending"
	OutcomeCancelled  ReconcileOutcome = "cancelled"
	OutcomeRefunded   ReconcileOutcome = "refunded"
)

type ReconcileResult struct {
	Outcome ReconcileOutcome `json:"outcome"`
	Message string           `json:"message,omitempty"`
}

// CancelResult distinguishes an actual cancellation from a gateway business
// conflict that leaves local state untouched but carries user guidance.
type CancelResult struct {
	Cancelled bool            `json:"cancelled"`
	Guidance  string          `json:"guidance,omitempty"`
	Payment   *models.Payment `json:"payment,omitempty"`
}

type CheckoutCustomer struct {
	FirstName    string
	LastName     string
	Email        string
	PhoneNumbers []string
}

// BookingFinalizer is the slice of the booking lifecycle the reconciler
// drives. Implemented by BookingService; the tx parameter keeps payment and
// booking mutations in one commit.
type BookingFinalizer interface {
	FinalizeOnPayment(ctx context.Context, tx *gorm.DB, bookingID uint) error
	CancelForPayment(ctx context.Context, tx *gorm.DB, bookingID uint) error
}

type PaymentConfig struct {
	AutoCapture       bool
	SuccessURL        string
	FailureURL        string
	CancelURL         string
	WebhookURL        string
	CancelGraceWindow time.Duration
	AbandonedTTL      time.Duration
	Region            phone.Region
}

type PaymentService interface {
	PreparePayment(ctx context.Context, bookingID uint, studentID string) (*models.Payment, error)
	CreateCheckout(ctx context.Context, paymentID uint, customer CheckoutCustomer) (*models.Payment, error)
	HandleCallback(ctx context.Context, paymentID uint) (*ReconcileResult, error)
	HandleCallbackByReference(ctx context.Context, reference string) (*ReconcileResult, error)
	Capture(ctx context.Context, paymentID uint) (*models.Payment, error)
	Cancel(ctx context.Context, paymentID uint, actingUserID string) (*CancelResult, error)
	Refund(ctx context.Context, paymentID uint, amount *float64, comment string) (*models.Payment, error)
	GetPayment(ctx context.Context, id uint) (*models.Payment, error)
	ExpireAbandoned(ctx context.Context) (int64, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	bookingRepo repository.BookingRepository
	gw          gateway.Client
	finalizer   BookingFinalizer
	dispatcher  dispatch.Dispatcher
	cfg         PaymentConfig
	logger      *zap.Logger
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	bookingRepo repository.BookingRepository,
	gw gateway.Client,
	finalizer BookingFinalizer,
	dispatcher dispatch.Dispatcher,
	cfg PaymentConfig,
	logger *zap.Logger,
) PaymentService {
	if cfg.CancelGraceWindow <= 0 {
		cfg.CancelGraceWindow = 24 * time.Hour
	}
	if cfg.Region.CountryCode == "" {
		cfg.Region = phone.UAE
	}
	return &paymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		gw:          gw,
		finalizer:   finalizer,
		dispatcher:  dispatcher,
		cfg:         cfg,
		logger:      logger,
	}
}

// PreparePayment creates a fresh pending payment for the booking. The booking
// row is locked so two concurrent prepares cannot both pass the
// active-payment check.
func (s *paymentService) PreparePayment(ctx context.Context, bookingID uint, studentID string) (*models.Payment, error) {
	var payment *models.Payment

	err := s.paymentRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.StudentID != studentID {
			return ErrUnauthorized
		}
		if booking.IsTerminal() {
			return ErrAlreadyFinalized
		}

		_, err = s.paymentRepo.FindActiveByBooking(ctx, tx, bookingID)
		if err == nil {
			return ErrPaymentInProgress
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		payment = &models.Payment{
			BookingID:     bookingID,
			StudentID:     booking.StudentID,
			TeacherID:     booking.TeacherID,
			Amount:        booking.TotalPrice,
			Currency:      booking.Currency,
			Status:        models.PaymentPending,
			TransactionID: uuid.NewString(),
		}
		return s.paymentRepo.Create(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment prepared",
		zap.Uint("payment_id", payment.ID),
		zap.Uint("booking_id", bookingID),
		zap.String("transaction_id", payment.TransactionID),
	)
	return payment, nil
}

// CreateCheckout builds a gateway order for the payment and stores the
// returned order id and hosted checkout URL. The payment's transaction id is
// the idempotency reference, so a client retry cannot double-charge: if an
// order already exists the stored checkout is returned without another
// gateway call.
func (s *paymentService) CreateCheckout(ctx context.Context, paymentID uint, customer CheckoutCustomer) (*models.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.GatewayOrderID != nil {
		return payment, nil
	}
	if payment.Status != models.PaymentPending {
		return nil, ErrPaymentNotPending
	}

	booking, err := s.bookingRepo.FindByID(ctx, payment.BookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking %d: %w", payment.BookingID, err)
	}

	phoneNumber, err := phone.FirstValid(customer.PhoneNumbers, s.cfg.Region)
	if err != nil {
		return nil, ErrInvalidPhoneNumber
	}

	items := make([]gateway.LineItem, len(booking.Slots))
	for i, slot := range booking.Slots {
		items[i] = gateway.LineItem{
			Name:       fmt.Sprintf("%s session on %s %s-%s", booking.SubjectLabel, slot.Date.Format("2006-01-02"), slot.StartTime, slot.EndTime),
			Quantity:   1,
			UnitPrice:  gateway.FormatAmount(booking.UnitPrice, booking.Currency),
			TotalPrice: gateway.FormatAmount(booking.UnitPrice, booking.Currency),
		}
	}

	resp, err := s.gw.CreateCheckout(ctx, gateway.CheckoutRequest{
		Reference:   payment.TransactionID,
		Description: fmt.Sprintf("Booking #%d with teacher %s", booking.ID, booking.TeacherID),
		TotalAmount: gateway.FormatAmount(payment.Amount, payment.Currency),
		Items:       items,
		Consumer: gateway.Consumer{
			FirstName:   customer.FirstName,
			LastName:    customer.LastName,
			Email:       customer.Email,
			PhoneNumber: phoneNumber,
		},
		URLs: gateway.MerchantURLs{
			Success:      s.cfg.SuccessURL,
			Failure:      s.cfg.FailureURL,
			Cancel:       s.cfg.CancelURL,
			Notification: s.cfg.WebhookURL,
		},
	})
	if err != nil {
		return nil, err
	}

	err = s.paymentRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.paymentRepo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if current.Status != models.PaymentPending {
			// The sweeper or a cancel got here first; the gateway order is
			// orphaned and will expire on the provider side.
			return ErrPaymentNotPending
		}
		return s.paymentRepo.UpdateFields(ctx, tx, paymentID, map[string]any{
			"gateway_order_id":     resp.OrderID,
			"checkout_url":         resp.CheckoutURL,
			"gateway_raw_response": appendRaw(current.GatewayRawResponse, "checkout", resp),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout created",
		zap.Uint("payment_id", paymentID),
		zap.String("gateway_order_id", resp.OrderID),
	)
	return s.loadPayment(ctx, paymentID)
}

func (s *paymentService) HandleCallbackByReference(ctx context.Context, reference string) (*ReconcileResult, error) {
	payment, err := s.paymentRepo.FindByTransactionID(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return s.HandleCallback(ctx, payment.ID)
}

// HandleCallback is the single authoritative reconciliation pass. Idempotent:
// a payment already in a settled state is reported as-is without touching the
// gateway, and gateway failures leave the payment pending and retriable.
func (s *paymentService) HandleCallback(ctx context.Context, paymentID uint) (*ReconcileResult, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case models.PaymentCompleted:
		return &ReconcileResult{Outcome: OutcomeCompleted}, nil
	case models.PaymentCancelled:
		return &ReconcileResult{Outcome: OutcomeCancelled}, nil
	case models.PaymentRefunded:
		return &ReconcileResult{Outcome: OutcomeRefunded}, nil
	case models.PaymentFailed:
		// Terminal for this attempt; retrying means preparing a new payment.
		return &ReconcileResult{Outcome: OutcomeFailed, Message: payment.FailureReason}, nil
	}
	if payment.GatewayOrderID == nil {
		return &ReconcileResult{Outcome: OutcomePending, Message: "checkout not created yet"}, nil
	}

	// Gateway call happens outside any transaction: a slot or payment row
	// lock must never wait on network I/O.
	auth, err := s.gw.Authorize(ctx, *payment.GatewayOrderID)
	if err != nil {
		s.logger.Warn("authorize failed, leaving payment pending",
			zap.Uint("payment_id", paymentID),
			zap.Error(err),
		)
		return &ReconcileResult{Outcome: OutcomePending, Message: "gateway unavailable, reconciliation will be retried"}, nil
	}

	switch {
	case auth.Status == gateway.StatusFullyCaptured,
		auth.Status == gateway.StatusAuthorised && (auth.AutoCaptured || s.cfg.AutoCapture):
		settled, err := s.settle(ctx, paymentID, "authorize", auth)
		if err != nil {
			return nil, err
		}
		if settled {
			s.dispatchSettled(payment)
		}
		return &ReconcileResult{Outcome: OutcomeCompleted}, nil

	case auth.Status == gateway.StatusAuthorised:
		_, err := s.lockedUpdate(ctx, paymentID, []models.PaymentStatus{models.PaymentPending}, func(cur *models.Payment) map[string]any {
			return map[string]any{
				"status":               models.PaymentProcessing,
				"gateway_raw_response": appendRaw(cur.GatewayRawResponse, "authorize", auth),
			}
		})
		if err != nil {
			return nil, err
		}
		return &ReconcileResult{Outcome: OutcomeProcessing, Message: "authorised, awaiting capture"}, nil

	case auth.Status == gateway.StatusDeclined, auth.Status == gateway.StatusFailed, auth.Status == gateway.StatusExpired:
		reason := auth.Message
		if reason == "" {
			reason = string(auth.Status)
		}
		err := s.markFailed(ctx, paymentID, payment.BookingID, reason, auth)
		if err != nil {
			return nil, err
		}
		return &ReconcileResult{Outcome: OutcomeFailed, Message: reason}, nil

	default:
		return &ReconcileResult{Outcome: OutcomePending, Message: "awaiting payer action"}, nil
	}
}

// Capture collects a previously authorised payment. Valid only from
// processing; a second capture on a completed payment is rejected before any
// gateway call.
func (s *paymentService) Capture(ctx context.Context, paymentID uint) (*models.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentCompleted {
		return nil, ErrPaymentAlreadyCompleted
	}
	if payment.Status != models.PaymentProcessing || payment.GatewayOrderID == nil {
		return nil, ErrPaymentNotProcessing
	}

	status, err := s.gw.Capture(ctx, *payment.GatewayOrderID, gateway.FormatAmount(payment.Amount, payment.Currency))
	if err != nil {
		return nil, err
	}
	if status != gateway.StatusFullyCaptured && status != gateway.StatusPartiallyCaptured {
		return nil, fmt.Errorf("%w: gateway reported %s", ErrCaptureFailed, status)
	}

	settled, err := s.settle(ctx, paymentID, "capture", map[string]any{"status": status})
	if err != nil {
		return nil, err
	}
	if settled {
		s.dispatchSettled(payment)
	}
	return s.loadPayment(ctx, paymentID)
}

// Cancel voids the payment. Without a gateway order it is local-only;
// otherwise the gateway decides, and a captured order is answered with
// ErrMustRefundInstead. A 409 from the gateway is translated into user
// guidance without touching local state.
func (s *paymentService) Cancel(ctx context.Context, paymentID uint, actingUserID string) (*CancelResult, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case models.PaymentCancelled:
		return nil, ErrPaymentAlreadyCancelled
	case models.PaymentRefunded:
		return nil, ErrPaymentAlreadyRefunded
	case models.PaymentCompleted:
		if actingUserID == payment.StudentID {
			if payment.PaidAt == nil || time.Since(*payment.PaidAt) > s.cfg.CancelGraceWindow {
				return nil, ErrCancellationWindowExpired
			}
		}
	}

	if payment.GatewayOrderID == nil {
		if payment.Status == models.PaymentCompleted {
			// Money was collected; a local-only cancel cannot return it.
			return nil, ErrMustRefundInstead
		}
		if err := s.cancelLocally(ctx, paymentID, payment.BookingID, "cancelled before checkout"); err != nil {
			return nil, err
		}
		s.dispatchCancelled(payment)
		updated, _ := s.loadPayment(ctx, paymentID)
		return &CancelResult{Cancelled: true, Payment: updated}, nil
	}

	orderStatus, err := s.gw.GetOrder(ctx, *payment.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	switch orderStatus {
	case gateway.StatusFullyCaptured, gateway.StatusPartiallyCaptured:
		return nil, ErrMustRefundInstead
	case gateway.StatusApproved, gateway.StatusAuthorised:
		// Cancellable, but the gateway may capture concurrently; the 409
		// path below handles the loss.
		s.logger.Warn("cancelling an authorised order, may race with capture",
			zap.Uint("payment_id", paymentID),
		)
	}

	status, err := s.gw.CancelOrder(ctx, *payment.GatewayOrderID, gateway.FormatAmount(payment.Amount, payment.Currency))
	if err != nil {
		var conflict *gateway.ConflictError
		if errors.As(err, &conflict) {
			return &CancelResult{Cancelled: false, Guidance: cancelGuidance(conflict.OldState)}, nil
		}
		return nil, err
	}

	if err := s.cancelLocally(ctx, paymentID, payment.BookingID, "cancelled via gateway: "+string(status)); err != nil {
		return nil, err
	}
	s.dispatchCancelled(payment)
	updated, _ := s.loadPayment(ctx, paymentID)
	return &CancelResult{Cancelled: true, Payment: updated}, nil
}

// Refund returns money for a completed payment. The booking's slots stay
// booked: a refunded session remains marked delivered.
func (s *paymentService) Refund(ctx context.Context, paymentID uint, amount *float64, comment string) (*models.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentRefunded {
		return nil, ErrPaymentAlreadyRefunded
	}
	if payment.Status != models.PaymentCompleted || payment.GatewayOrderID == nil {
		return nil, ErrPaymentNotCompleted
	}

	value := payment.Amount
	if amount != nil {
		value = *amount
	}
	if comment == "" {
		comment = "refund requested"
	}

	status, err := s.gw.Refund(ctx, *payment.GatewayOrderID, gateway.FormatAmount(value, payment.Currency), comment)
	if err != nil {
		return nil, err
	}
	if status != gateway.StatusFullyRefunded && status != gateway.StatusPartiallyRefunded {
		return nil, fmt.Errorf("refund not confirmed: gateway reported %s", status)
	}

	refunded, err := s.lockedUpdate(ctx, paymentID, []models.PaymentStatus{models.PaymentCompleted}, func(cur *models.Payment) map[string]any {
		now := time.Now()
		return map[string]any{
			"status":               models.PaymentRefunded,
			"refunded_at":          &now,
			"gateway_raw_response": appendRaw(cur.GatewayRawResponse, "refund", map[string]any{"status": status, "amount": value, "comment": comment}),
		}
	})
	if err != nil {
		return nil, err
	}

	if refunded {
		s.dispatch(dispatch.Event{
			Name:      dispatch.EventPaymentRefunded,
			BookingID: payment.BookingID,
			PaymentID: payment.ID,
			StudentID: payment.StudentID,
			TeacherID: payment.TeacherID,
			Amount:    value,
			Currency:  payment.Currency,
		})
	}
	return s.loadPayment(ctx, paymentID)
}

func (s *paymentService) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	return s.loadPayment(ctx, id)
}

// ExpireAbandoned cancels pending payments that never produced a gateway
// order within the TTL, so a new attempt can be prepared.
func (s *paymentService) ExpireAbandoned(ctx context.Context) (int64, error) {
	if s.cfg.AbandonedTTL <= 0 {
		return 0, nil
	}
	count, err := s.paymentRepo.CancelAbandoned(ctx, time.Now().Add(-s.cfg.AbandonedTTL))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("abandoned payments expired", zap.Int64("count", count))
	}
	return count, nil
}

// --- internals ---

func (s *paymentService) loadPayment(ctx context.Context, id uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// settle moves the payment to completed and finalizes the booking in one
// transaction. Returns false without error when another settlement-producing
// operation got there first: the row lock plus the status re-check make a
// late webhook a no-op instead of an overwrite.
func (s *paymentService) settle(ctx context.Context, paymentID uint, via string, raw any) (bool, error) {
	settled := false
	err := s.paymentRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.paymentRepo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if current.Status != models.PaymentPending && current.Status != models.PaymentProcessing {
			return nil
		}
		now := time.Now()
		if err := s.paymentRepo.UpdateFields(ctx, tx, paymentID, map[string]any{
			"status":               models.PaymentCompleted,
			"paid_at":              &now,
			"gateway_raw_response": appendRaw(current.GatewayRawResponse, via, raw),
		}); err != nil {
			return err
		}
		if err := s.finalizer.FinalizeOnPayment(ctx, tx, current.BookingID); err != nil {
			return err
		}
		settled = true
		return nil
	})
	return settled, err
}

func (s *paymentService) markFailed(ctx context.Context, paymentID, bookingID uint, reason string, raw any) error {
	// Slots are deliberately NOT released on failure: an explicit cancel is
	// required, which avoids racing a client that is retrying checkout.
	failed, err := s.lockedUpdate(ctx, paymentID, []models.PaymentStatus{models.PaymentPending, models.PaymentProcessing}, func(cur *models.Payment) map[string]any {
		now := time.Now()
		return map[string]any{
			"status":               models.PaymentFailed,
			"failed_at":            &now,
			"failure_reason":       reason,
			"gateway_raw_response": appendRaw(cur.GatewayRawResponse, "authorize", raw),
		}
	})
	if err != nil {
		return err
	}
	if !failed {
		// Another pass already recorded the failure; nothing new to announce.
		return nil
	}

	if err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking.PaymentStatus == models.PaymentStatusPaid {
			return nil
		}
		return s.bookingRepo.UpdateFields(ctx, tx, bookingID, map[string]any{
			"payment_status": models.PaymentStatusFailed,
		})
	}); err != nil {
		return err
	}

	payment, loadErr := s.loadPayment(ctx, paymentID)
	if loadErr == nil {
		s.dispatch(dispatch.Event{
			Name:      dispatch.EventPaymentFailed,
			BookingID: bookingID,
			PaymentID: paymentID,
			StudentID: payment.StudentID,
			TeacherID: payment.TeacherID,
		})
	}
	return nil
}

func (s *paymentService) cancelLocally(ctx context.Context, paymentID, bookingID uint, note string) error {
	return s.paymentRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.paymentRepo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if current.Status == models.PaymentCancelled {
			return nil
		}
		if err := s.paymentRepo.UpdateFields(ctx, tx, paymentID, map[string]any{
			"status":               models.PaymentCancelled,
			"failure_reason":       note,
			"gateway_raw_response": appendRaw(current.GatewayRawResponse, "cancel", map[string]string{"note": note}),
		}); err != nil {
			return err
		}
		return s.finalizer.CancelForPayment(ctx, tx, bookingID)
	})
}

// lockedUpdate applies fields to the payment only if its row-locked status is
// one of allowed. Reports whether the update actually ran so callers can skip
// side effects when another pass won the transition.
func (s *paymentService) lockedUpdate(ctx context.Context, paymentID uint, allowed []models.PaymentStatus, fields func(cur *models.Payment) map[string]any) (bool, error) {
	updated := false
	err := s.paymentRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.paymentRepo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		for _, status := range allowed {
			if current.Status == status {
				if err := s.paymentRepo.UpdateFields(ctx, tx, paymentID, fields(current)); err != nil {
					return err
				}
				updated = true
				return nil
			}
		}
		return nil
	})
	return updated, err
}

func (s *paymentService) dispatchSettled(payment *models.Payment) {
	s.logger.Info("payment completed",
		zap.Uint("payment_id", payment.ID),
		zap.Uint("booking_id", payment.BookingID),
	)
	s.dispatch(dispatch.Event{
		Name:      dispatch.EventPaymentCompleted,
		BookingID: payment.BookingID,
		PaymentID: payment.ID,
		StudentID: payment.StudentID,
		TeacherID: payment.TeacherID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
	})
	// Chat-room creation and notifications hang off booking.confirmed.
	s.dispatch(dispatch.Event{
		Name:      dispatch.EventBookingConfirmed,
		BookingID: payment.BookingID,
		StudentID: payment.StudentID,
		TeacherID: payment.TeacherID,
	})
}

func (s *paymentService) dispatchCancelled(payment *models.Payment) {
	s.dispatch(dispatch.Event{
		Name:      dispatch.EventPaymentCancelled,
		BookingID: payment.BookingID,
		PaymentID: payment.ID,
		StudentID: payment.StudentID,
		TeacherID: payment.TeacherID,
	})
}

func (s *paymentService) dispatch(event dispatch.Event) {
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(event)
	}
}

func cancelGuidance(oldState gateway.OrderStatus) string {
	switch oldState {
	case gateway.StatusAuthorised, gateway.StatusApproved:
		return "payment is awaiting capture: wait for it to settle or contact support"
	case gateway.StatusFullyCaptured, gateway.StatusPartiallyCaptured:
		return "payment was already captured: use refund instead"
	default:
		return "payment could not be cancelled: contact support"
	}
}

func appendRaw(existing, label string, payload any) string {
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(fmt.Sprintf("%q", fmt.Sprint(payload)))
	}
	line := fmt.Sprintf(`{"%s":%s}`, label, body)
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
