package model

import "fmt"

// Action is a human-friendly label for what the battery did during an hour.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionFromFlow labels an hour by its net battery flow.
func ActionFromFlow(chargeWh, dischargeWh float64) Action {
	switch net := dischargeWh - chargeWh; {
	case net < 0:
		return ActionCharging
	case net > 0:
		return ActionDischarging
	default:
		return ActionIdle
	}
}

// Mode is the per-hour operating mode of the mode-driven simulator. The numeric
// codes are part of the wire format.
type Mode int

const (
	ModeChargeFromGrid   Mode = -1
	ModeAvoidDischarge   Mode = 0
	ModeDischargeAllowed Mode = 10
)

func (m Mode) String() string {
	switch m {
	case ModeChargeFromGrid:
		return "CHARGE_FROM_GRID"
	case ModeAvoidDischarge:
		return "AVOID_DISCHARGE"
	case ModeDischargeAllowed:
		return "DISCHARGE_ALLOWED"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
