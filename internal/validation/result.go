// Package validation describes the structural checks run against a target
// and the repairs applied to it.
package validation

import "fmt"

// Result contains the outcome of validating one target. Each check reflects
// the state the target was found in; repairs list what was done about it.
type Result struct {
	HasEnoughKeys  bool
	StartsAtZero   bool
	EndsAtLength   bool
	ChannelsInSync bool

	// Details
	Target       string
	KeyCount     int
	KeysMessage  string
	StartMessage string
	EndMessage   string
	SyncMessage  string

	Repairs []Repair
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// Repair records one automatic fix applied during validation.
type Repair struct {
	Check   string
	Channel string
	Details string
}

func (r Repair) String() string {
	if r.Channel == "" {
		return fmt.Sprintf("%s: %s", r.Check, r.Details)
	}
	return fmt.Sprintf("%s (%s): %s", r.Check, r.Channel, r.Details)
}

// IsValid returns true if all validation checks passed.
func (r *Result) IsValid() bool {
	return r.HasEnoughKeys &&
		r.StartsAtZero &&
		r.EndsAtLength &&
		r.ChannelsInSync
}

// Repaired reports whether validation had to change the target.
func (r *Result) Repaired() bool {
	return len(r.Repairs) > 0
}

// AddRepair appends a repair entry.
func (r *Result) AddRepair(check, channel, details string) {
	r.Repairs = append(r.Repairs, Repair{Check: check, Channel: channel, Details: details})
}

// GetValidationSteps returns all validation steps with results.
func (r *Result) GetValidationSteps() []ValidationStep {
	return []ValidationStep{
		{
			Name:    CheckKeyCount,
			Passed:  r.HasEnoughKeys,
			Details: r.KeysMessage,
		},
		{
			Name:    CheckStart,
			Passed:  r.StartsAtZero,
			Details: r.StartMessage,
		},
		{
			Name:    CheckEnd,
			Passed:  r.EndsAtLength,
			Details: r.EndMessage,
		},
		{
			Name:    CheckSync,
			Passed:  r.ChannelsInSync,
			Details: r.SyncMessage,
		},
	}
}

// GetFailures returns descriptions of failed validation checks.
func (r *Result) GetFailures() []string {
	var failures []string
	for _, step := range r.GetValidationSteps() {
		if !step.Passed {
			failures = append(failures, step.Name+": "+step.Details)
		}
	}
	return failures
}
