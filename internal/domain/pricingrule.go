package domain

import "time"

// PricingRule is the expected pricing for one courier: first-weight pricing,
// per-kilo extra weight, base operation fee and the tolerance thresholds used
// when reviewing flagged shipments. The import pipeline reads rules as lookup
// context only and never mutates them.
type PricingRule struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Courier               string    `json:"courier"`
	FirstWeight           float64   `json:"first_weight"`
	FirstWeightPrice      float64   `json:"first_weight_price"`
	ExtraWeightPrice      float64   `json:"extra_weight_price"`
	BaseOperationFee      float64   `json:"base_operation_fee"`
	ToleranceExpressFee   float64   `json:"tolerance_express_fee"`
	TolerancePackagingFee float64   `json:"tolerance_packaging_fee"`
	Enabled               bool      `json:"enabled"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
