package harvest

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Alignment periods for the steady loop's sleep. PeriodMonth keeps the
// historical definition of 31x7 days rather than a calendar month.
const (
	PeriodMinute = time.Minute
	PeriodHour   = time.Hour
	PeriodDay    = 24 * time.Hour
	PeriodWeek   = 7 * PeriodDay
	PeriodMonth  = 31 * PeriodWeek
)

// DelayFunc returns how long the steady loop should sleep before the
// next pass. It is called after each pass completes.
type DelayFunc func() time.Duration

// FixedDelay sleeps a constant duration between passes.
func FixedDelay(d time.Duration) DelayFunc {
	return func() time.Duration {
		return d
	}
}

// AlignedDelay sleeps until the next epoch-aligned boundary of the
// given period, so passes start at predictable times.
func AlignedDelay(period time.Duration) DelayFunc {
	return func() time.Duration {
		seconds := int64(period / time.Second)
		return time.Duration(seconds-time.Now().Unix()%seconds) * time.Second
	}
}

// CronDelay sleeps until the next activation of a standard 5-field
// cron expression.
func CronDelay(spec string) (DelayFunc, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cron expression: %w", err)
	}

	return func() time.Duration {
		return time.Until(schedule.Next(time.Now()))
	}, nil
}

// DelayFromConfig resolves the configured cadence into a DelayFunc.
// Recognized cadences are the alignment period names, "fixed" (or
// empty) for a constant sleep, and anything else is parsed as a cron
// expression.
func DelayFromConfig(cadence string, fixed time.Duration) (DelayFunc, error) {
	switch cadence {
	case "minute":
		return AlignedDelay(PeriodMinute), nil
	case "hour":
		return AlignedDelay(PeriodHour), nil
	case "day":
		return AlignedDelay(PeriodDay), nil
	case "week":
		return AlignedDelay(PeriodWeek), nil
	case "month":
		return AlignedDelay(PeriodMonth), nil
	case "", "fixed":
		if fixed <= 0 {
			return nil, fmt.Errorf("fixed cadence requires a positive sleep interval, got %s", fixed)
		}
		return FixedDelay(fixed), nil
	default:
		return CronDelay(cadence)
	}
}
