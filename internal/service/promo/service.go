package promo

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bookit-platform/bookit/internal/domain"
)

// Rule describes how a promo code discounts a subtotal.
type Rule struct {
	Type  domain.DiscountType
	Value float64
}

// Service validates promo codes against a fixed lookup table. The
// reservation engine never calls this; it consumes the resulting
// discount as an opaque number.
type Service struct {
	codes map[string]Rule
}

func defaultCodes() map[string]Rule {
	return map[string]Rule{
		"SAVE10":    {Type: domain.DiscountPercentage, Value: 10},
		"FLAT100":   {Type: domain.DiscountFixed, Value: 100},
		"WELCOME20": {Type: domain.DiscountPercentage, Value: 20},
		"FIRSTTIME": {Type: domain.DiscountPercentage, Value: 15},
	}
}

func New() *Service {
	return &Service{codes: defaultCodes()}
}

// NewWithCodes builds a service with a custom code table.
func NewWithCodes(codes map[string]Rule) *Service {
	normalized := make(map[string]Rule, len(codes))
	for code, rule := range codes {
		normalized[strings.ToUpper(code)] = rule
	}

	return &Service{codes: normalized}
}

// Validate resolves a promo code against a subtotal. Codes are
// case-insensitive; a fixed discount never exceeds the subtotal; the
// amount is rounded to two decimals.
//
// Returns:
//   - *domain.Discount: the discount when the code is known.
//   - error: promo.ErrCodeRequired when code is empty.
//   - error: promo.ErrCodeNotFound when the code is unknown.
func (s *Service) Validate(ctx context.Context, code string, subtotal float64) (*domain.Discount, error) {
	const op = "service.promo.Validate"

	_ = ctx

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrCodeRequired)
	}

	rule, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrCodeNotFound)
	}

	if subtotal < 0 {
		subtotal = 0
	}

	var amount float64
	switch rule.Type {
	case domain.DiscountPercentage:
		amount = subtotal * rule.Value / 100
	case domain.DiscountFixed:
		amount = math.Min(rule.Value, subtotal)
	}

	return &domain.Discount{
		Code:   code,
		Type:   rule.Type,
		Value:  rule.Value,
		Amount: math.Round(amount*100) / 100,
	}, nil
}
