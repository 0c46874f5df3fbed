package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"

	"github.com/shopspring/decimal"
)

func TestCalculatePromoDiscount(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		value   string
		base    string
		want    string
		wantErr error
	}{
		{name: "percentage", typ: constants.PromoTypePercentage, value: "10", base: "250.00", want: "25"},
		// 33.33 * 15% = 4.9995
		{name: "percentage_rounds", typ: constants.PromoTypePercentage, value: "15", base: "33.33", want: "5"},
		{name: "percentage_full", typ: constants.PromoTypePercentage, value: "100", base: "80", want: "80"},
		{name: "fixed", typ: constants.PromoTypeFixedAmount, value: "50000", base: "200000", want: "50000"},
		{name: "fixed_clamped", typ: constants.PromoTypeFixedAmount, value: "500", base: "120", want: "120"},
		{name: "zero_base", typ: constants.PromoTypeFixedAmount, value: "5", base: "0", want: "0"},
		{name: "unknown_type", typ: "bogo", value: "5", base: "10", wantErr: ErrPromoInvalid},
		{name: "non_positive_value", typ: constants.PromoTypeFixedAmount, value: "0", base: "10", wantErr: ErrPromoInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promo := &models.Promo{Type: tt.typ, Value: models.NewMoneyFromDecimal(decimal.RequireFromString(tt.value))}
			base := models.NewMoneyFromDecimal(decimal.RequireFromString(tt.base))
			got, err := calculatePromoDiscount(promo, base)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want error %v got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("want %s got %s", tt.want, got.String())
			}
		})
	}
}

func TestValidateAndCalculateWithoutPromo(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.promoService()

	result, err := svc.ValidateAndCalculate(nil, "   ", 1, amount(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Promo != nil || !result.DiscountAmount.Decimal.IsZero() {
		t.Fatalf("expected zero discount without promo, got %+v", result)
	}
	zero := uint(0)
	result, err = svc.ValidateAndCalculate(&zero, "", 1, amount(100))
	if err != nil || result.Promo != nil {
		t.Fatalf("zero promo id should mean no promo, got %+v err=%v", result, err)
	}
}

func TestValidateAndCalculateRules(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.promoService()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	customer := seedCustomer(t, env.db, "rules@example.com")
	other := seedCustomer(t, env.db, "other@example.com")

	active := seedPromo(t, env.db, "SPRING10", constants.PromoTypePercentage, 10)
	seedAssignment(t, env.db, customer.ID, active.ID)

	inactive := seedPromo(t, env.db, "OFF", constants.PromoTypeFixedAmount, 5)
	env.db.Model(inactive).Update("is_active", false)
	seedAssignment(t, env.db, customer.ID, inactive.ID)

	future := seedPromo(t, env.db, "FUTURE", constants.PromoTypeFixedAmount, 5)
	start := now.Add(24 * time.Hour)
	env.db.Model(future).Update("start_date", start)
	seedAssignment(t, env.db, customer.ID, future.ID)

	expired := seedPromo(t, env.db, "EXPIRED", constants.PromoTypeFixedAmount, 5)
	end := now.Add(-time.Hour)
	env.db.Model(expired).Update("end_date", end)
	seedAssignment(t, env.db, customer.ID, expired.ID)

	used := seedPromo(t, env.db, "USED", constants.PromoTypeFixedAmount, 5)
	usedLink := seedAssignment(t, env.db, customer.ID, used.ID)
	env.db.Model(usedLink).Updates(map[string]interface{}{"is_used": true, "used_at": now})

	tests := []struct {
		name       string
		promoID    *uint
		code       string
		customerID uint
		wantErr    error
		want       string
	}{
		{name: "by_code_case_insensitive", code: " spring10 ", customerID: customer.ID, want: "20"},
		{name: "by_id", promoID: uintPtr(active.ID), customerID: customer.ID, want: "20"},
		{name: "unknown_code", code: "NOPE", customerID: customer.ID, wantErr: ErrPromoNotFound},
		{name: "unknown_id", promoID: uintPtr(9999), customerID: customer.ID, wantErr: ErrPromoNotFound},
		{name: "inactive", code: "OFF", customerID: customer.ID, wantErr: ErrPromoInactive},
		{name: "not_started", code: "FUTURE", customerID: customer.ID, wantErr: ErrPromoNotStarted},
		{name: "expired", code: "EXPIRED", customerID: customer.ID, wantErr: ErrPromoExpired},
		{name: "not_assigned", code: "SPRING10", customerID: other.ID, wantErr: ErrPromoNotAssigned},
		{name: "inactive_rejected_even_if_unassigned", code: "OFF", customerID: other.ID, wantErr: ErrPromoInactive},
		{name: "already_used", code: "USED", customerID: customer.ID, wantErr: ErrPromoAlreadyUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.ValidateAndCalculate(tt.promoID, tt.code, tt.customerID, amount(200))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want error %v got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Promo == nil || result.CustomerPromo == nil {
				t.Fatalf("expected promo and link in result, got %+v", result)
			}
			if !result.DiscountAmount.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("want discount %s got %s", tt.want, result.DiscountAmount.String())
			}
		})
	}
}

func TestPromoPreview(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.promoService()

	customer := seedCustomer(t, env.db, "preview@example.com")
	product := seedProduct(t, env.db, "Widget", 40, 10)
	promo := seedPromo(t, env.db, "TAKE15", constants.PromoTypeFixedAmount, 15)
	seedAssignment(t, env.db, customer.ID, promo.ID)

	preview, err := svc.Preview(PromoPreviewInput{
		CustomerID: customer.ID,
		PromoCode:  "take15",
		ProductID:  product.ID,
		Quantity:   2,
	})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !preview.Valid || !preview.FinalTotal.Decimal.Equal(decimal.NewFromInt(65)) {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	preview, err = svc.Preview(PromoPreviewInput{
		CustomerID: customer.ID,
		PromoCode:  "MISSING",
		Amount:     amountPtr(30),
	})
	if err != nil {
		t.Fatalf("rule failures should not be errors: %v", err)
	}
	if preview.Valid || preview.Message != ErrPromoNotFound.Error() {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if !preview.FinalTotal.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("invalid promo must leave total unchanged, got %s", preview.FinalTotal.String())
	}

	if _, err := svc.Preview(PromoPreviewInput{CustomerID: customer.ID, PromoCode: "TAKE15"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing base price should be invalid input, got %v", err)
	}

	var count int64
	env.db.Model(&models.CustomerPromo{}).Where("is_used = ?", true).Count(&count)
	if count != 0 {
		t.Fatalf("preview must not redeem promos, used=%d", count)
	}
}

func amountPtr(v int64) *models.Money {
	m := amount(v)
	return &m
}

func TestIsPromoRuleErrorMatchesWrapped(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sentinel", ErrPromoExpired, true},
		{"wrapped", fmt.Errorf("lookup promo: %w", ErrPromoNotAssigned), true},
		{"double wrapped", fmt.Errorf("preview: %w", fmt.Errorf("check: %w", ErrPromoInvalid)), true},
		{"internal", errors.New("db down"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPromoRuleError(tt.err); got != tt.want {
				t.Fatalf("want %v got %v", tt.want, got)
			}
		})
	}
}
