package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"kmevents-payments/internal/checkout"
	"kmevents-payments/internal/dto"
	"kmevents-payments/internal/middleware"
	"kmevents-payments/internal/service"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	webhookService service.WebhookService
}

func NewPaymentHandler(paymentService service.PaymentService, webhookService service.WebhookService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		webhookService: webhookService,
	}
}

// compose builds the "{message}: {detail}" error strings the dashboards
// show; the detail is the backend/gateway error when one exists.
func compose(message string, err error) string {
	if err == nil {
		return message
	}
	return message + ": " + err.Error()
}

func isLocalValidationErr(err error) bool {
	return errors.Is(err, checkout.ErrInvalidAmount) ||
		errors.Is(err, checkout.ErrInvalidKind) ||
		errors.Is(err, checkout.ErrMissingReference)
}

func (h *PaymentHandler) CreateBookingOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.BookingOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user := middleware.UserFromContext(c)

	resp, err := h.paymentService.CreateBookingOrder(ctx, req.BookingID, user)
	if err != nil {
		if errors.Is(err, checkout.ErrMissingReference) {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "bookingId is required"})
		}
		if errors.Is(err, service.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "booking not found"})
		}
		if errors.Is(err, checkout.ErrGatewayUnavailable) {
			return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: "payment gateway failed to load"})
		}
		return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: compose("could not create payment order", err)})
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user := middleware.UserFromContext(c)
	if req.Metadata == nil {
		req.Metadata = map[string]string{}
	}
	if req.Metadata["userId"] == "" {
		req.Metadata["userId"] = middleware.UserIDFromContext(c)
	}

	resp, err := h.paymentService.CreateOrder(ctx, &req, user)
	if err != nil {
		if isLocalValidationErr(err) {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		}
		if errors.Is(err, checkout.ErrGatewayUnavailable) {
			return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: "payment gateway failed to load"})
		}
		return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: compose("could not create payment order", err)})
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Verify(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.paymentService.Verify(ctx, &req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: compose("payment verification failed", err)})
	}

	return c.JSON(http.StatusOK, resp)
}

// ReportFailure is best-effort by contract: the response is 200 no matter
// what happened to the stored report.
func (h *PaymentHandler) ReportFailure(c echo.Context) error {
	ctx := c.Request().Context()

	var report dto.FailureReport
	if err := c.Bind(&report); err != nil {
		return c.NoContent(http.StatusOK)
	}

	h.paymentService.ReportFailure(ctx, &report)

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

func (h *PaymentHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()

	orderID := c.Param("orderId")
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing order id")
	}

	resp, err := h.paymentService.Status(ctx, orderID)
	if err != nil {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "order not found"})
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	eventID := c.Request().Header.Get("X-Razorpay-Event-Id")
	signature := c.Request().Header.Get("X-Razorpay-Signature")

	if err := h.webhookService.Handle(ctx, eventID, signature, body); err != nil {
		if errors.Is(err, service.ErrWebhookSignature) {
			return c.NoContent(http.StatusBadRequest)
		}
		return err
	}

	return c.NoContent(http.StatusOK)
}
