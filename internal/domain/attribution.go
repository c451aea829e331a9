package domain

import (
	"fmt"
	"time"
)

// AttributionModel is a rule for distributing conversion credit across touchpoints
type AttributionModel string

const (
	ModelLastClick     AttributionModel = "last_click"
	ModelFirstClick    AttributionModel = "first_click"
	ModelLinear        AttributionModel = "linear"
	ModelTimeDecay     AttributionModel = "time_decay"
	ModelPositionBased AttributionModel = "position_based"
)

// AttributionModels is the canonical display order
var AttributionModels = []AttributionModel{
	ModelLastClick,
	ModelFirstClick,
	ModelLinear,
	ModelTimeDecay,
	ModelPositionBased,
}

// ParseAttributionModel validates a model name
func ParseAttributionModel(name string) (AttributionModel, error) {
	for _, m := range AttributionModels {
		if string(m) == name {
			return m, nil
		}
	}
	return "", NewError(KindInvalidInput, "parse attribution model", fmt.Errorf("unknown attribution model %q", name))
}

// AttributionWeights maps each model to a contribution percentage.
// Weights are parallel what-if views and do not have to sum to 100.
type AttributionWeights map[AttributionModel]float64

// DefaultAttributionWeights are used until a user configures their own
func DefaultAttributionWeights() AttributionWeights {
	return AttributionWeights{
		ModelLastClick:     40,
		ModelFirstClick:    20,
		ModelLinear:        20,
		ModelTimeDecay:     10,
		ModelPositionBased: 10,
	}
}

// Validate rejects unknown models and percentages outside 0..100
func (w AttributionWeights) Validate() error {
	for m, pct := range w {
		if _, err := ParseAttributionModel(string(m)); err != nil {
			return err
		}
		if pct < 0 || pct > 100 || pct != pct {
			return NewError(KindInvalidInput, "validate attribution weights", fmt.Errorf("weight for %s must be between 0 and 100, got %v", m, pct))
		}
	}
	return nil
}

// AttributionSettings is the per-user attribution configuration
type AttributionSettings struct {
	UserID        string             `json:"user_id"`
	SelectedModel AttributionModel   `json:"selected_model"`
	Weights       AttributionWeights `json:"weights"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// DefaultAttributionSettings returns last-click with the static default weights
func DefaultAttributionSettings(userID string) AttributionSettings {
	return AttributionSettings{
		UserID:        userID,
		SelectedModel: ModelLastClick,
		Weights:       DefaultAttributionWeights(),
	}
}

// PerformancePoint is one day of platform performance
type PerformancePoint struct {
	Date        time.Time `json:"date"`
	Spend       float64   `json:"spend"`
	Conversions int64     `json:"conversions"`
	Revenue     float64   `json:"revenue"`
}
