package entity

import (
	"time"

	"archie-core-attribution-layer/internal/domain"
)

// SettingsDoc represents a user's attribution configuration
type SettingsDoc struct {
	ID            string             `bson:"_id,omitempty"`
	UserID        string             `bson:"userId"`
	SelectedModel string             `bson:"selectedModel"`
	Weights       map[string]float64 `bson:"weights"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

// ToDomain converts the document to a domain entity
func (d *SettingsDoc) ToDomain() *domain.AttributionSettings {
	weights := make(domain.AttributionWeights, len(d.Weights))
	for k, v := range d.Weights {
		weights[domain.AttributionModel(k)] = v
	}
	return &domain.AttributionSettings{
		UserID:        d.UserID,
		SelectedModel: domain.AttributionModel(d.SelectedModel),
		Weights:       weights,
		UpdatedAt:     d.UpdatedAt,
	}
}

// SettingsDocFromDomain converts a domain entity to a document
func SettingsDocFromDomain(s *domain.AttributionSettings) *SettingsDoc {
	weights := make(map[string]float64, len(s.Weights))
	for k, v := range s.Weights {
		weights[string(k)] = v
	}
	return &SettingsDoc{
		UserID:        s.UserID,
		SelectedModel: string(s.SelectedModel),
		Weights:       weights,
		UpdatedAt:     s.UpdatedAt,
	}
}

// PerformanceDoc represents one day of performance for a user's platform
type PerformanceDoc struct {
	ID           string    `bson:"_id,omitempty"`
	UserID       string    `bson:"userId"`
	PlatformName string    `bson:"platformName"`
	Date         string    `bson:"date"` // YYYY-MM-DD
	Spend        float64   `bson:"spend"`
	Conversions  int64     `bson:"conversions"`
	Revenue      float64   `bson:"revenue"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// DateLayout is the day format used for performance rows
const DateLayout = "2006-01-02"

// ToDomain converts the document to a domain point
func (d *PerformanceDoc) ToDomain() (domain.PerformancePoint, error) {
	date, err := time.Parse(DateLayout, d.Date)
	if err != nil {
		return domain.PerformancePoint{}, err
	}
	return domain.PerformancePoint{
		Date:        date,
		Spend:       d.Spend,
		Conversions: d.Conversions,
		Revenue:     d.Revenue,
	}, nil
}
