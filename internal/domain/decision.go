package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Action is the model's trading verdict.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// ParseAction accepts the three verdicts case-insensitively.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionBuy, ActionSell, ActionHold:
		return a, nil
	case "":
		return "", fmt.Errorf("%w: missing action", ErrMalformedDecision)
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrMalformedDecision, s)
	}
}

var (
	minPercentage = decimal.NewFromInt(1)
	maxPercentage = decimal.NewFromInt(100)
	hundred       = decimal.NewFromInt(100)
)

// Decision is a validated verdict for one asset.
type Decision struct {
	Action     Action
	Percentage decimal.Decimal
	Reason     string
}

// NewDecision validates the raw fields. Percentage must be in [1,100].
func NewDecision(action string, percentage decimal.Decimal, reason string) (Decision, error) {
	a, err := ParseAction(action)
	if err != nil {
		return Decision{}, err
	}
	if percentage.LessThan(minPercentage) || percentage.GreaterThan(maxPercentage) {
		return Decision{}, fmt.Errorf("%w: percentage %s outside [1,100]", ErrMalformedDecision, percentage)
	}
	return Decision{Action: a, Percentage: percentage, Reason: reason}, nil
}

// Fraction returns percentage/100.
func (d Decision) Fraction() decimal.Decimal {
	return d.Percentage.Div(hundred)
}

// IsTrade reports whether the decision asks for an order.
func (d Decision) IsTrade() bool {
	return d.Action == ActionBuy || d.Action == ActionSell
}
