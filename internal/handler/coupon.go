package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kmevents-payments/internal/dto"
	"kmevents-payments/internal/service"
)

type CouponHandler struct {
	couponService service.CouponService
}

func NewCouponHandler(couponService service.CouponService) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
	}
}

func (h *CouponHandler) Validate(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CouponValidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	data, err := h.couponService.Validate(ctx, &req)
	if err != nil {
		// Validation outcomes are business results, not transport errors.
		return c.JSON(http.StatusOK, dto.CouponValidateResponse{
			Success: false,
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, dto.CouponValidateResponse{
		Success: true,
		Data:    data,
	})
}
