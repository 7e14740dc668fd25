package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kmevents-payments/internal/checkout"
	"kmevents-payments/internal/dto"
	"kmevents-payments/internal/model"
	"kmevents-payments/internal/repository"
)

const freePlanName = "Free"

var ErrUnknownPlan = errors.New("unknown subscription plan")

type PlanService interface {
	// Plans returns the catalog; if the catalog store is down it falls
	// back to the built-in default table so callers stay usable.
	Plans(ctx context.Context) []*dto.Plan
	// SubmitEventRequest runs the plan-upgrade gate ahead of an event
	// creation request. It either submits the request, blocks it, or
	// returns an order for the plan payment.
	SubmitEventRequest(ctx context.Context, organizerID string, req *dto.EventRequestCreate, user dto.OrderUser) (*dto.EventRequestResponse, error)
}

type planServiceImpl struct {
	planRepo         repository.PlanRepository
	subscriptionRepo repository.SubscriptionRepository
	eventRequestRepo repository.EventRequestRepository
	payments         PaymentService
	log              *zap.Logger
	now              func() time.Time
}

func NewPlanService(
	planRepo repository.PlanRepository,
	subscriptionRepo repository.SubscriptionRepository,
	eventRequestRepo repository.EventRequestRepository,
	payments PaymentService,
	log *zap.Logger,
) PlanService {
	return &planServiceImpl{
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		eventRequestRepo: eventRequestRepo,
		payments:         payments,
		log:              log,
		now:              time.Now,
	}
}

// defaultPlans is the degraded-mode catalog used when the plan store is
// unreachable. It must stay in sync with the seeded plans.
func defaultPlans() []*dto.Plan {
	return []*dto.Plan{
		{PlanID: "plan_free", Name: "Free", MonthlyFee: 0, EventsPerMonth: 2, Description: "Two events a month, standard support"},
		{PlanID: "plan_basic", Name: "Basic", MonthlyFee: 99900, EventsPerMonth: 5, Description: "Five events a month, priority support"},
		{PlanID: "plan_pro", Name: "Pro", MonthlyFee: 299900, EventsPerMonth: 20, Description: "Twenty events a month, dedicated support"},
	}
}

func (s *planServiceImpl) Plans(ctx context.Context) []*dto.Plan {
	stored, err := s.planRepo.List(ctx)
	if err != nil || len(stored) == 0 {
		if err != nil {
			s.log.Warn("plan catalog unavailable, using default table", zap.Error(err))
		}
		return defaultPlans()
	}

	plans := make([]*dto.Plan, len(stored))
	for i, p := range stored {
		plans[i] = &dto.Plan{
			PlanID:         p.PlanID,
			Name:           p.Name,
			MonthlyFee:     p.MonthlyFee,
			EventsPerMonth: p.EventsPerMonth,
			Description:    p.Description,
		}
	}
	return plans
}

func (s *planServiceImpl) planByName(ctx context.Context, name string) (*dto.Plan, error) {
	stored, err := s.planRepo.FindByName(ctx, name)
	if err == nil {
		return &dto.Plan{
			PlanID:         stored.PlanID,
			Name:           stored.Name,
			MonthlyFee:     stored.MonthlyFee,
			EventsPerMonth: stored.EventsPerMonth,
			Description:    stored.Description,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Warn("plan lookup failed, consulting default table", zap.Error(err))
	}

	for _, p := range defaultPlans() {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, name)
}

func (s *planServiceImpl) activePlanName(ctx context.Context, organizerID string) string {
	sub, err := s.subscriptionRepo.FindActiveByUser(ctx, organizerID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("active subscription lookup failed", zap.Error(err))
		}
		return freePlanName
	}
	return sub.PlanName
}

func (s *planServiceImpl) SubmitEventRequest(ctx context.Context, organizerID string, req *dto.EventRequestCreate, user dto.OrderUser) (*dto.EventRequestResponse, error) {
	selectedName := req.PlanName
	if selectedName == "" {
		selectedName = freePlanName
	}

	activeName := s.activePlanName(ctx, organizerID)

	// A verified plan payment activates its subscription in the same
	// transaction, so a paid-plan claim is honored only when the active
	// subscription backs it. Unbacked claims run the normal gate.
	if req.PaidPlanName != "" {
		if req.PaidPlanName == activeName {
			selectedName = activeName
		} else {
			s.log.Warn("paid plan claim without a matching subscription",
				zap.String("organizer_id", organizerID),
				zap.String("claimed_plan", req.PaidPlanName))
		}
	}

	selected, err := s.planByName(ctx, selectedName)
	if err != nil {
		return nil, err
	}
	active, err := s.planByName(ctx, activeName)
	if err != nil {
		return nil, err
	}

	// Matching or zero-fee plans need no payment. Anything else that is
	// cheaper than an active paid plan is a downgrade, which support
	// handles manually, never the checkout flow.
	needsPayment := selected.Name != active.Name && selected.MonthlyFee > 0
	if needsPayment && active.MonthlyFee > 0 && selected.MonthlyFee < active.MonthlyFee {
		return &dto.EventRequestResponse{
			Success: false,
			Message: "plan downgrades are handled manually; please contact support",
		}, nil
	}

	upgrading := needsPayment

	if !upgrading {
		usage, err := s.eventRequestRepo.CountNonRejectedThisMonth(ctx, organizerID, s.now())
		if err != nil {
			return nil, fmt.Errorf("count monthly event requests: %w", err)
		}
		if usage >= selected.EventsPerMonth {
			return &dto.EventRequestResponse{
				Success: false,
				Message: fmt.Sprintf("monthly event limit reached for the %s plan; upgrade to submit more events", selected.Name),
			}, nil
		}
	}

	if upgrading {
		// Upgrade intent overrides the usage limit: the user pays first,
		// then resubmits with paidPlanName set.
		order, paymentRef, err := s.payments.Checkout(ctx, checkout.Request{
			AmountMinorUnits: selected.MonthlyFee,
			Kind:             checkout.KindSubscription,
			ReferenceID:      selected.Name,
			Metadata:         map[string]string{"userId": organizerID},
			Prefill: checkout.Prefill{
				Name:    user.Name,
				Email:   user.Email,
				Contact: user.Contact,
			},
		})
		if err != nil {
			return nil, err
		}

		return &dto.EventRequestResponse{
			Success:         true,
			PaymentRequired: true,
			Amount:          selected.MonthlyFee,
			Order: &dto.CreateOrderData{
				OrderID:   order.OrderID,
				Key:       order.Key,
				PaymentID: paymentRef,
			},
		}, nil
	}

	request := &model.EventRequest{
		ID:          "evr_" + uuid.NewString(),
		OrganizerID: organizerID,
		Title:       req.Title,
		Description: req.Description,
		PlanName:    selected.Name,
		Status:      "PENDING",
	}
	if err := s.eventRequestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("create event request: %w", err)
	}

	return &dto.EventRequestResponse{
		Success:   true,
		RequestID: request.ID,
	}, nil
}
