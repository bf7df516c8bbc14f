package reminder

import (
	"fmt"
	"regexp"
	"strconv"
)

// InvalidDelayError reports a malformed delay spec. This is a user
// error, reported verbatim and never retried.
type InvalidDelayError struct {
	Spec string
}

func (e *InvalidDelayError) Error() string {
	return fmt.Sprintf("invalid reminder time: '%s'", e.Spec)
}

// delayPattern matches an optional hours, minutes and seconds
// component, each a 1-6 digit integer followed by its unit.
var delayPattern = regexp.MustCompile(`^(?:(\d{1,6})h)?(?:(\d{1,6})m)?(?:(\d{1,6})s)?$`)

// ParseDelay converts a delay spec like "1h30m", "45s" or "2m" into a
// whole number of seconds. At least one component must be present and
// the total must be positive. Arithmetic overflow is a fatal internal
// error rather than an InvalidDelayError: the component width cap
// makes it unreachable from user input.
func ParseDelay(spec string) (int64, error) {
	matches := delayPattern.FindStringSubmatch(spec)
	if matches == nil || (matches[1] == "" && matches[2] == "" && matches[3] == "") {
		return 0, &InvalidDelayError{Spec: spec}
	}

	multipliers := []int64{3600, 60, 1}
	var total int64
	for i, m := range matches[1:] {
		if m == "" {
			continue
		}
		amount, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return 0, &InvalidDelayError{Spec: spec}
		}
		component, err := mulSeconds(amount, multipliers[i])
		if err != nil {
			return 0, err
		}
		total, err = addSeconds(total, component)
		if err != nil {
			return 0, err
		}
	}
	if total <= 0 {
		return 0, &InvalidDelayError{Spec: spec}
	}
	return total, nil
}

func mulSeconds(amount, multiplier int64) (int64, error) {
	product := amount * multiplier
	if amount != 0 && product/amount != multiplier {
		return 0, fmt.Errorf("reminder delay overflows: %d * %d", amount, multiplier)
	}
	return product, nil
}

func addSeconds(a, b int64) (int64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("reminder delay overflows: %d + %d", a, b)
	}
	return sum, nil
}
