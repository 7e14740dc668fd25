package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"kmevents-payments/internal/dto"
	"kmevents-payments/internal/middleware"
	"kmevents-payments/internal/service"
)

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{
		planService: planService,
	}
}

func (h *PlanHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.planService.Plans(ctx),
	})
}

func (h *PlanHandler) CreateEventRequest(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.EventRequestCreate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "title is required"})
	}

	organizerID := middleware.UserIDFromContext(c)
	if organizerID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user")
	}

	resp, err := h.planService.SubmitEventRequest(ctx, organizerID, &req, middleware.UserFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrUnknownPlan) {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		}
		return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: compose("could not submit event request", err)})
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusForbidden
	}
	return c.JSON(status, resp)
}
