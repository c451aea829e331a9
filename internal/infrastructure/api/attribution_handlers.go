package api

import (
	"fmt"
	"net/http"
	"time"

	"archie-core-attribution-layer/internal/attribution"
	"archie-core-attribution-layer/internal/domain"
)

const dateLayout = "2006-01-02"

type settingsRequest struct {
	SelectedModel string             `json:"selected_model" validate:"required"`
	Weights       map[string]float64 `json:"weights" validate:"omitempty,dive,gte=0,lte=100"`
}

type performanceRequest struct {
	Platform    string  `json:"platform" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Spend       float64 `json:"spend" validate:"gte=0"`
	Conversions int64   `json:"conversions" validate:"gte=0"`
	Revenue     float64 `json:"revenue" validate:"gte=0"`
}

func parseDay(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, domain.NewError(domain.KindInvalidInput, "parse date", fmt.Errorf("%s must be YYYY-MM-DD", name))
	}
	return t, nil
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	from, err := parseDay("from", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	to, err := parseDay("to", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	m, err := h.manager(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	report, err := h.attribution.Report(r.Context(), m, attribution.DateRange{From: from, To: to})
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.attribution.GetSettings(r.Context(), domain.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusOK, settings)
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err, nil)
		return
	}

	settings := domain.AttributionSettings{
		UserID:        domain.GetUserIDFromContext(r.Context()),
		SelectedModel: domain.AttributionModel(req.SelectedModel),
	}
	if req.Weights != nil {
		settings.Weights = make(domain.AttributionWeights, len(req.Weights))
		for k, v := range req.Weights {
			settings.Weights[domain.AttributionModel(k)] = v
		}
	}

	saved, err := h.attribution.SaveSettings(r.Context(), settings)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusOK, saved)
}

func (h *Handler) recordPerformance(w http.ResponseWriter, r *http.Request) {
	var req performanceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err, nil)
		return
	}
	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	date, err := parseDay("date", req.Date)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	point := domain.PerformancePoint{Date: date, Spend: req.Spend, Conversions: req.Conversions, Revenue: req.Revenue}
	if err := h.attribution.RecordPerformance(r.Context(), domain.GetUserIDFromContext(r.Context()), platform, point); err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusCreated, point)
}
