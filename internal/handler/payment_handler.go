package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/edumarket/booking-service/internal/dto"
	"github.com/edumarket/booking-service/internal/gateway"
	"github.com/edumarket/booking-service/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// signatureHeader carries the provider's HMAC over the webhook body.
const signatureHeader = "X-Gateway-Signature"

type PaymentHandler struct {
	svc    service.PaymentService
	gw     gateway.Client
	logger *zap.Logger
}

func NewPaymentHandler(svc service.PaymentService, gw gateway.Client, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, gw: gw, logger: logger}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/bookings/:id/payments", h.CreatePayment)

	payments := e.Group("/api/v1/payments")
	payments.GET("/:id", h.GetPayment)
	payments.POST("/:id/capture", h.CapturePayment)
	payments.POST("/:id/cancel", h.CancelPayment)
	payments.POST("/:id/refund", h.RefundPayment)

	// Success redirect and webhook both funnel into the same reconciliation.
	payments.GET("/callback", h.SuccessCallback)
	payments.POST("/webhook", h.Webhook)
}

// CreatePayment prepares a payment for the booking and immediately creates
// the gateway checkout, returning the hosted checkout URL.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	bookingID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StudentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student_id is required")
	}

	ctx := c.Request().Context()
	payment, err := h.svc.PreparePayment(ctx, bookingID, req.StudentID)
	if err != nil {
		return paymentError(err)
	}

	payment, err = h.svc.CreateCheckout(ctx, payment.ID, service.CheckoutCustomer{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PhoneNumbers: req.PhoneNumbers,
	})
	if err != nil {
		return paymentError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToPaymentResponse(payment))
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	payment, err := h.svc.GetPayment(c.Request().Context(), id)
	if err != nil {
		return paymentError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

func (h *PaymentHandler) CapturePayment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	payment, err := h.svc.Capture(c.Request().Context(), id)
	if err != nil {
		return paymentError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

func (h *PaymentHandler) CancelPayment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CancelPaymentRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	result, err := h.svc.Cancel(c.Request().Context(), id, req.UserID)
	if err != nil {
		return paymentError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.RefundPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	payment, err := h.svc.Refund(c.Request().Context(), id, req.Amount, req.Comment)
	if err != nil {
		return paymentError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// SuccessCallback handles the payer returning from the hosted checkout.
func (h *PaymentHandler) SuccessCallback(c echo.Context) error {
	reference := c.QueryParam("reference")
	if reference == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reference is required")
	}
	result, err := h.svc.HandleCallbackByReference(c.Request().Context(), reference)
	if err != nil {
		return paymentError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// Webhook verifies the provider signature and runs reconciliation inline;
// the reconciliation is idempotent so provider retries are harmless.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	signature := c.Request().Header.Get(signatureHeader)
	if !h.gw.VerifyWebhookSignature(body, signature) {
		h.logger.Warn("webhook signature rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.OrderReference == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing order reference")
	}

	result, err := h.svc.HandleCallbackByReference(c.Request().Context(), payload.OrderReference)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		// Local failure: make the provider retry.
		h.logger.Error("webhook reconciliation failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "reconciliation failed")
	}
	return c.JSON(http.StatusOK, result)
}

func paymentError(err error) error {
	var conflict *gateway.ConflictError
	switch {
	case errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidPhoneNumber):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrPaymentInProgress),
		errors.Is(err, service.ErrPaymentNotPending),
		errors.Is(err, service.ErrPaymentNotProcessing),
		errors.Is(err, service.ErrPaymentAlreadyCompleted),
		errors.Is(err, service.ErrPaymentAlreadyCancelled),
		errors.Is(err, service.ErrPaymentAlreadyRefunded),
		errors.Is(err, service.ErrPaymentNotCompleted),
		errors.Is(err, service.ErrMustRefundInstead),
		errors.Is(err, service.ErrCancellationWindowExpired),
		errors.Is(err, service.ErrCaptureFailed),
		errors.Is(err, service.ErrAlreadyFinalized),
		errors.As(err, &conflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, gateway.ErrUnreachable):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, gateway.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
