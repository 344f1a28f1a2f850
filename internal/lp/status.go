package lp

import "fmt"

// Status is the overall outcome of a solve.
type Status int

const (
	NotSolved Status = iota
	Optimal
	Infeasible
	Unbounded
	Undefined
)

var statusNames = map[Status]string{
	NotSolved:  "Not Solved",
	Optimal:    "Optimal",
	Infeasible: "Infeasible",
	Unbounded:  "Unbounded",
	Undefined:  "Undefined",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for k, v := range statusNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown solver status %q", string(b))
}
