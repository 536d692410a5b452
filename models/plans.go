package models

import (
	"github.com/shopspring/decimal"
)

type PlanType string

const (
	PlanBasic       PlanType = "basic"
	PlanPremium     PlanType = "premium"
	PlanPremiumPlus PlanType = "premium_plus"
	PlanUnlimited   PlanType = "unlimited"
)

// PlanConfig binds a plan type to its fixed price and display name.
// Subscriptions are always priced from this catalog, never from caller input.
type PlanConfig struct {
	Name  string
	Value decimal.Decimal
}

var planCatalog = map[PlanType]PlanConfig{
	PlanBasic:       {Name: "Básico", Value: decimal.RequireFromString("59.90")},
	PlanPremium:     {Name: "Premium", Value: decimal.RequireFromString("299.00")},
	PlanPremiumPlus: {Name: "Premium Plus", Value: decimal.RequireFromString("897.90")},
	PlanUnlimited:   {Name: "Ilimitado", Value: decimal.RequireFromString("1897.90")},
}

func (pt PlanType) Valid() bool {
	_, ok := planCatalog[pt]
	return ok
}

func (pt PlanType) Config() (PlanConfig, bool) {
	config, ok := planCatalog[pt]
	return config, ok
}
