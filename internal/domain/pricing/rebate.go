package pricing

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidSchedule is returned when a stored rebate schedule cannot be
// parsed into (threshold, percent) tiers.
var ErrInvalidSchedule = errors.New("invalid rebate schedule")

// ErrNoSchedule is returned when a product has no rebate schedule attached.
var ErrNoSchedule = errors.New("no rebate schedule")

// Tier is one quantity threshold of a rebate schedule: buying at least
// Threshold units earns a Percent discount.
type Tier struct {
	Threshold int
	Percent   int
}

// Schedule is an ordered list of rebate tiers. Evaluation depends on the
// stored order, so ParseSchedule rejects schedules whose thresholds are not
// strictly ascending.
type Schedule struct {
	Tiers []Tier
}

// ScheduleSource provides the rebate schedule attached to a product.
type ScheduleSource interface {
	// ScheduleFor returns the parsed schedule for the given product.
	// Returns ErrNoSchedule when none is attached and ErrInvalidSchedule
	// when the stored data is malformed.
	ScheduleFor(ctx context.Context, productID int64) (Schedule, error)
}

// ParseSchedule parses the stored schedule format: one "threshold:percent"
// pair per line. Blank lines are ignored. Non-integer fields or thresholds
// out of ascending order fail with ErrInvalidSchedule.
func ParseSchedule(raw string) (Schedule, error) {
	var s Schedule
	prev := 0
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		threshold, percent, ok := strings.Cut(line, ":")
		if !ok {
			return Schedule{}, errors.Wrapf(ErrInvalidSchedule, "line %q", line)
		}
		t, err := strconv.Atoi(strings.TrimSpace(threshold))
		if err != nil {
			return Schedule{}, errors.Wrapf(ErrInvalidSchedule, "threshold %q", threshold)
		}
		p, err := strconv.Atoi(strings.TrimSpace(percent))
		if err != nil {
			return Schedule{}, errors.Wrapf(ErrInvalidSchedule, "percent %q", percent)
		}
		if t <= prev && len(s.Tiers) > 0 {
			return Schedule{}, errors.Wrapf(ErrInvalidSchedule, "threshold %d out of order", t)
		}
		prev = t
		s.Tiers = append(s.Tiers, Tier{Threshold: t, Percent: p})
	}
	return s, nil
}

// RebateFor returns the percentage discount earned by the requested quantity.
//
// Tiers are scanned in stored order with a running discount starting at zero.
// A tier whose threshold is not above the quantity replaces the running
// value; the first tier whose threshold is not below the quantity returns it.
// When the quantity exactly equals a threshold both steps fire on the same
// tier, which applies that tier and stops. A quantity above every threshold
// earns the last tier's percent.
func (s Schedule) RebateFor(quantity int) int {
	current := 0
	for _, tier := range s.Tiers {
		if quantity >= tier.Threshold {
			current = tier.Percent
		}
		if quantity <= tier.Threshold {
			return current
		}
	}
	return current
}

var hundred = decimal.NewFromInt(100)

// ApplyRebate reduces amount by the given percentage and rounds to two
// decimal places, half away from zero, the cart-wide monetary rounding rule.
func ApplyRebate(amount decimal.Decimal, percent int) decimal.Decimal {
	rebate := amount.Mul(decimal.NewFromInt(int64(percent))).Div(hundred)
	return amount.Sub(rebate).Round(2)
}
