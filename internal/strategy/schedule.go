package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ScheduleParams implements a simple daily time-window policy:
// - Charge from grid during [ChargeStart, ChargeEnd)
// - Hold the battery (no discharge) during [HoldStart, HoldEnd)
// - Otherwise discharge is allowed
//
// Times are interpreted in the timezone of the timestamps passed to Decide.
type ScheduleParams struct {
	ChargeStart string  // "HH:MM"
	ChargeEnd   string  // "HH:MM"
	HoldStart   string  // "HH:MM" (optional; empty = no hold window)
	HoldEnd     string  // "HH:MM" (optional; default = HoldStart => zero-length)
	ChargeRateW float64 // grid charge power requested inside the charge window
}

// DefaultScheduleParams charges overnight and holds the battery until the evening peak.
func DefaultScheduleParams() ScheduleParams {
	return ScheduleParams{
		ChargeStart: "02:00",
		ChargeEnd:   "05:00",
		HoldStart:   "05:00",
		HoldEnd:     "07:00",
		ChargeRateW: 2000,
	}
}

type SchedulePolicy struct {
	Params ScheduleParams

	csMins int
	ceMins int
	hsMins int
	heMins int
}

func NewSchedulePolicy(p ScheduleParams) (*SchedulePolicy, error) {
	s := &SchedulePolicy{Params: p}
	var err error
	if s.csMins, err = parseHHMM(p.ChargeStart); err != nil {
		return nil, err
	}
	if s.ceMins, err = parseHHMM(p.ChargeEnd); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.HoldStart) != "" {
		if s.hsMins, err = parseHHMM(p.HoldStart); err != nil {
			return nil, err
		}
		s.heMins = s.hsMins
		if strings.TrimSpace(p.HoldEnd) != "" {
			if s.heMins, err = parseHHMM(p.HoldEnd); err != nil {
				return nil, err
			}
		}
	}
	if p.ChargeRateW < 0 {
		return nil, fmt.Errorf("charge rate must be >= 0, got %g", p.ChargeRateW)
	}
	return s, nil
}

func (s *SchedulePolicy) Name() string { return "schedule" }

// Configure only validates; the engine enforces the grid-charge ceiling itself.
func (s *SchedulePolicy) Configure(p PolicyParams) error {
	return p.Validate()
}

func (s *SchedulePolicy) Decide(ctx context.Context, _ Forecast, now time.Time) (InverterSettings, error) {
	if err := ctx.Err(); err != nil {
		return InverterSettings{}, err
	}
	mins := now.Hour()*60 + now.Minute()

	if inWindow(mins, s.csMins, s.ceMins) {
		return InverterSettings{ChargeFromGrid: true, ChargeRateW: s.Params.ChargeRateW}, nil
	}
	if inWindow(mins, s.hsMins, s.heMins) {
		return InverterSettings{}, nil
	}
	return InverterSettings{AllowDischarge: true}, nil
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// inWindow checks whether tMins is in [start, end) on a 24h clock.
// If start == end, the window is empty (always false).
// If start > end, it wraps across midnight.
func inWindow(tMins, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return tMins >= start && tMins < end
	}
	// wrap
	return tMins >= start || tMins < end
}
