package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidStage is returned when a string is not one of the known stages.
var ErrInvalidStage = errors.New("invalid stage")

// Stage is the lifecycle stage of a purchase.
// Matching is exact: "Settled" is not a stage.
type Stage string

const (
	StageUnsettled Stage = "unsettled"
	StageSettled   Stage = "settled"
	StageArchived  Stage = "archived"
)

// Stages lists every stage in lifecycle order.
var Stages = []Stage{StageUnsettled, StageSettled, StageArchived}

// transitions holds the allowed moves out of each stage.
var transitions = map[Stage][]Stage{
	StageUnsettled: {StageSettled, StageArchived},
	StageSettled:   {StageUnsettled, StageArchived},
	StageArchived:  nil,
}

// ParseStage converts s into a Stage.
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.Valid() {
		return "", fmt.Errorf("%w: %q (want one of %v)", ErrInvalidStage, s, Stages)
	}
	return stage, nil
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether a purchase in stage s may move to target.
func (s Stage) CanTransitionTo(target Stage) bool {
	if !s.Valid() || !target.Valid() {
		return false
	}
	if s == target {
		return true
	}
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s Stage) String() string {
	return string(s)
}

// UnmarshalJSON rejects unknown stages.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	stage, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = stage
	return nil
}
