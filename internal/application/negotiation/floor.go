package negotiation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/shopspring/decimal"

	domain "github.com/carnegotiate/carnegotiate/internal/domain/negotiation"
	"github.com/carnegotiate/carnegotiate/internal/domain/vehicle"
)

// DefaultFloorExpr is the platform rule for the lowest permitted offer.
const DefaultFloorExpr = "asking_price * 0.5"

// OfferFloor evaluates the configurable minimum-offer rule. The expression
// sees the listing as parameters and must yield a number; amounts below the
// result are rejected before anything is written.
type OfferFloor struct {
	expr *govaluate.EvaluableExpression
}

func NewOfferFloor(expression string) (*OfferFloor, error) {
	raw := strings.TrimSpace(expression)
	if raw == "" {
		raw = DefaultFloorExpr
	}
	expr, err := govaluate.NewEvaluableExpression(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid offer floor expression: %w", err)
	}
	return &OfferFloor{expr: expr}, nil
}

// MinAllowed computes the lowest acceptable offer for the vehicle, rounded to
// cents.
func (f *OfferFloor) MinAllowed(v *vehicle.Vehicle) (decimal.Decimal, error) {
	params := map[string]interface{}{
		"asking_price": v.AskingPrice.InexactFloat64(),
	}
	result, err := f.expr.Evaluate(params)
	if err != nil {
		return decimal.Zero, err
	}
	num, ok := result.(float64)
	if !ok {
		return decimal.Zero, errors.New("offer floor expression did not evaluate to a number")
	}
	return decimal.NewFromFloat(num).Round(2), nil
}

// Validate checks an offer amount against the floor and returns
// InvalidOfferAmountError carrying the threshold when it falls short.
func (f *OfferFloor) Validate(v *vehicle.Vehicle, amount decimal.Decimal) error {
	min, err := f.MinAllowed(v)
	if err != nil {
		return err
	}
	if amount.LessThan(min) {
		return &domain.InvalidOfferAmountError{MinAllowed: min}
	}
	return nil
}
