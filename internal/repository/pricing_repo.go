package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
)

type PricingRepo struct {
	db *sql.DB
}

func NewPricingRepo(db *sql.DB) *PricingRepo {
	return &PricingRepo{db: db}
}

const pricingColumns = `id, name, courier, first_weight, first_weight_price,
	extra_weight_price, base_operation_fee, tolerance_express_fee,
	tolerance_packaging_fee, enabled, created_at, updated_at`

type PricingFilter struct {
	Courier string
	Enabled *bool
}

func (r *PricingRepo) List(f PricingFilter) ([]domain.PricingRule, error) {
	var clauses []string
	var args []any
	if f.Courier != "" {
		clauses = append(clauses, "courier = ?")
		args = append(args, f.Courier)
	}
	if f.Enabled != nil {
		clauses = append(clauses, "enabled = ?")
		args = append(args, boolToInt(*f.Enabled))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := r.db.Query(
		"SELECT "+pricingColumns+" FROM pricing_rules"+where+" ORDER BY created_at DESC",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var rules []domain.PricingRule
	for rows.Next() {
		rule, err := scanPricingRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// GetByID returns nil without error when no rule has the given id.
func (r *PricingRepo) GetByID(id string) (*domain.PricingRule, error) {
	row := r.db.QueryRow("SELECT "+pricingColumns+" FROM pricing_rules WHERE id = ?", id)
	rule, err := scanPricingRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rule, err
}

func (r *PricingRepo) Insert(rule *domain.PricingRule) error {
	_, err := r.db.Exec(
		`INSERT INTO pricing_rules
		(id, name, courier, first_weight, first_weight_price, extra_weight_price,
		 base_operation_fee, tolerance_express_fee, tolerance_packaging_fee, enabled,
		 created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rule.ID, rule.Name, rule.Courier, rule.FirstWeight, rule.FirstWeightPrice,
		rule.ExtraWeightPrice, rule.BaseOperationFee, rule.ToleranceExpressFee,
		rule.TolerancePackagingFee, boolToInt(rule.Enabled),
		rule.CreatedAt.Format(time.RFC3339), rule.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

// PricingPatch carries the fields of a partial rule update; nil fields are
// left untouched.
type PricingPatch struct {
	Name                  *string
	FirstWeight           *float64
	FirstWeightPrice      *float64
	ExtraWeightPrice      *float64
	BaseOperationFee      *float64
	ToleranceExpressFee   *float64
	TolerancePackagingFee *float64
	Enabled               *bool
}

func (r *PricingRepo) Update(id string, p PricingPatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}

	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.FirstWeight != nil {
		add("first_weight", *p.FirstWeight)
	}
	if p.FirstWeightPrice != nil {
		add("first_weight_price", *p.FirstWeightPrice)
	}
	if p.ExtraWeightPrice != nil {
		add("extra_weight_price", *p.ExtraWeightPrice)
	}
	if p.BaseOperationFee != nil {
		add("base_operation_fee", *p.BaseOperationFee)
	}
	if p.ToleranceExpressFee != nil {
		add("tolerance_express_fee", *p.ToleranceExpressFee)
	}
	if p.TolerancePackagingFee != nil {
		add("tolerance_packaging_fee", *p.TolerancePackagingFee)
	}
	if p.Enabled != nil {
		add("enabled", boolToInt(*p.Enabled))
	}

	args = append(args, id)
	_, err := r.db.Exec(
		"UPDATE pricing_rules SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanPricingRule(row rowScanner) (*domain.PricingRule, error) {
	var rule domain.PricingRule
	var enabled int
	var createdAt, updatedAt string

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Courier, &rule.FirstWeight, &rule.FirstWeightPrice,
		&rule.ExtraWeightPrice, &rule.BaseOperationFee, &rule.ToleranceExpressFee,
		&rule.TolerancePackagingFee, &enabled, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled != 0
	if rule.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rule.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rule, nil
}
