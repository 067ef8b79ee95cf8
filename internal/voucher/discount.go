// Package voucher prices discount codes against a business's share of a
// cart. Codes are configured per deployment and may be scoped to one
// comercio, a product list, a date range and a daily time window.
package voucher

import (
	"math"
	"strings"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED_AMOUNT"
)

type Voucher struct {
	Code              string       `yaml:"code" json:"code"`
	Label             string       `yaml:"label" json:"label"`
	BusinessID        string       `yaml:"businessId" json:"businessId,omitempty"`
	DiscountType      DiscountType `yaml:"discountType" json:"discountType"`
	DiscountValue     float64      `yaml:"discountValue" json:"discountValue"`
	MaxDiscountAmount *float64     `yaml:"maxDiscountAmount" json:"maxDiscountAmount,omitempty"`
	MinOrderAmount    *float64     `yaml:"minOrderAmount" json:"minOrderAmount,omitempty"`
	MaxUsesTotal      *int         `yaml:"maxUsesTotal" json:"maxUsesTotal,omitempty"`
	ValidFrom         *time.Time   `yaml:"validFrom" json:"validFrom,omitempty"`
	ValidUntil        *time.Time   `yaml:"validUntil" json:"validUntil,omitempty"`
	DaysOfWeek        []int        `yaml:"daysOfWeek" json:"daysOfWeek,omitempty"`
	StartTime         *string      `yaml:"startTime" json:"startTime,omitempty"`
	EndTime           *string      `yaml:"endTime" json:"endTime,omitempty"`
	ProductIDs        []string     `yaml:"productIds" json:"productIds,omitempty"`
	Active            bool         `yaml:"active" json:"active"`
}

// Item is one cart line's contribution to the eligible subtotal.
type Item struct {
	ProductID string
	Subtotal  float64
}

type DiscountResult struct {
	Code             string       `json:"code"`
	Label            string       `json:"label"`
	DiscountType     DiscountType `json:"discountType"`
	DiscountValue    float64      `json:"discountValue"`
	DiscountAmount   float64      `json:"discountAmount"`
	EligibleSubtotal float64      `json:"eligibleSubtotal"`
}

type ComputeParams struct {
	BusinessID string
	Subtotal   float64
	Items      []Item
	Uses       int
	Now        time.Time
	Location   *time.Location
}

// Compute checks every restriction of v and returns the discount for the
// eligible part of the order.
func Compute(v Voucher, params ComputeParams) (*DiscountResult, *Error) {
	if err := assertTimeAndScope(v, params); err != nil {
		return nil, err
	}

	if v.MinOrderAmount != nil && params.Subtotal < *v.MinOrderAmount {
		return nil, ValidationError(ErrVoucherMinOrderNotMet, "Order does not meet minimum amount", map[string]any{
			"minOrderAmount": *v.MinOrderAmount,
			"subtotal":       params.Subtotal,
		})
	}
	if v.MaxUsesTotal != nil && params.Uses >= *v.MaxUsesTotal {
		return nil, ValidationError(ErrVoucherUsageLimitReached, "Voucher usage limit reached", map[string]any{
			"maxUsesTotal": *v.MaxUsesTotal,
		})
	}

	eligibleSubtotal := computeEligibleSubtotal(v, params.Items)
	if eligibleSubtotal <= 0 {
		return nil, ValidationError(ErrVoucherNotApplicableItems, "Voucher is not applicable to selected items", map[string]any{
			"scopedProducts": len(v.ProductIDs),
		})
	}

	var discountAmount float64
	if v.DiscountType == DiscountPercentage {
		pct := math.Max(0, math.Min(v.DiscountValue, 100))
		discountAmount = eligibleSubtotal * (pct / 100)
		if v.MaxDiscountAmount != nil {
			discountAmount = math.Min(discountAmount, *v.MaxDiscountAmount)
		}
	} else {
		discountAmount = math.Min(v.DiscountValue, eligibleSubtotal)
	}

	discountAmount = roundCurrency(math.Max(0, discountAmount))
	if discountAmount <= 0 {
		return nil, ValidationError(ErrVoucherDiscountZero, "Voucher discount is zero", nil)
	}

	label := v.Label
	if label == "" {
		label = v.Code
	}
	return &DiscountResult{
		Code:             v.Code,
		Label:            label,
		DiscountType:     v.DiscountType,
		DiscountValue:    v.DiscountValue,
		DiscountAmount:   discountAmount,
		EligibleSubtotal: roundCurrency(eligibleSubtotal),
	}, nil
}

func assertTimeAndScope(v Voucher, params ComputeParams) *Error {
	if !v.Active {
		return ValidationError(ErrVoucherInactive, "Voucher is inactive", nil)
	}
	if v.BusinessID != "" && v.BusinessID != params.BusinessID {
		return ValidationError(ErrVoucherNotApplicable, "Voucher is not valid for this comercio", map[string]any{
			"businessId": params.BusinessID,
		})
	}

	now := params.Now
	if v.ValidFrom != nil && now.Before(*v.ValidFrom) {
		return ValidationError(ErrVoucherNotActiveYet, "Voucher is not active yet", map[string]any{"validFrom": *v.ValidFrom})
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return ValidationError(ErrVoucherExpired, "Voucher has expired", map[string]any{"validUntil": *v.ValidUntil})
	}

	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	nowLocal := now.In(loc)

	if len(v.DaysOfWeek) > 0 {
		dow := int(nowLocal.Weekday())
		allowed := false
		for _, d := range v.DaysOfWeek {
			if d == dow {
				allowed = true
				break
			}
		}
		if !allowed {
			return ValidationError(ErrVoucherNotAvailableToday, "Voucher is not available today", map[string]any{
				"daysOfWeek": v.DaysOfWeek,
				"today":      dow,
			})
		}
	}

	if v.StartTime != nil && v.EndTime != nil {
		if !isValidHHMM(*v.StartTime) || !isValidHHMM(*v.EndTime) {
			return ValidationError(ErrVoucherScheduleInvalid, "Voucher schedule is invalid", nil)
		}
		nowHHMM := nowLocal.Format("15:04")
		if !isTimeWithinWindow(nowHHMM, *v.StartTime, *v.EndTime) {
			return ValidationError(ErrVoucherNotAvailableNow, "Voucher is not available at this time", map[string]any{
				"startTime": *v.StartTime,
				"endTime":   *v.EndTime,
				"now":       nowHHMM,
			})
		}
	}

	return nil
}

func computeEligibleSubtotal(v Voucher, items []Item) float64 {
	scope := make(map[string]struct{}, len(v.ProductIDs))
	for _, id := range v.ProductIDs {
		scope[id] = struct{}{}
	}
	var eligible float64
	for _, item := range items {
		if _, ok := scope[item.ProductID]; ok || len(scope) == 0 {
			eligible += item.Subtotal
		}
	}
	return eligible
}

func isValidHHMM(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}

// isTimeWithinWindow handles windows that wrap past midnight.
func isTimeWithinWindow(nowHHMM string, startHHMM string, endHHMM string) bool {
	if startHHMM == endHHMM {
		return true
	}
	if startHHMM < endHHMM {
		return nowHHMM >= startHHMM && nowHHMM <= endHHMM
	}
	return nowHHMM >= startHHMM || nowHHMM <= endHHMM
}

func roundCurrency(amount float64) float64 {
	return math.Round((amount+math.SmallestNonzeroFloat64)*100) / 100
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
