package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kmevents-payments/internal/model"
)

type PlanRepository interface {
	List(ctx context.Context) ([]*model.SubscriptionPlan, error)
	FindByName(ctx context.Context, name string) (*model.SubscriptionPlan, error)
	Seed(ctx context.Context) error
}

type planRepoImpl struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepoImpl{
		db: db,
	}
}

func (r *planRepoImpl) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	var plans []*model.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Order("monthly_fee asc").
		Find(&plans).Error

	if err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *planRepoImpl) FindByName(ctx context.Context, name string) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&plan).Error

	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepoImpl) Seed(ctx context.Context) error {
	plans := []model.SubscriptionPlan{
		{PlanID: "plan_free", Name: "Free", MonthlyFee: 0, EventsPerMonth: 2, Description: "Two events a month, standard support"},
		{PlanID: "plan_basic", Name: "Basic", MonthlyFee: 99900, EventsPerMonth: 5, Description: "Five events a month, priority support"},
		{PlanID: "plan_pro", Name: "Pro", MonthlyFee: 299900, EventsPerMonth: 20, Description: "Twenty events a month, dedicated support"},
	}

	return r.db.WithContext(ctx).
		Clauses(onConflictDoNothing()).
		Create(&plans).Error
}

func onConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{DoNothing: true}
}
