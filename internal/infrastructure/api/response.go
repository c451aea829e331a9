package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"archie-core-attribution-layer/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError renders a failure. data, when non-nil, is returned alongside the
// error, e.g. the failed installation record.
func writeError(w http.ResponseWriter, err error, data interface{}) {
	kind := domain.KindOf(err)
	body := &errorBody{Kind: string(kind), Message: err.Error()}
	if kind == "" {
		body.Kind = "Internal"
		body.Message = "internal error"
	}
	writeJSON(w, statusFor(kind), envelope{Success: false, Data: data, Error: body})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindStoreNotFound:
		return http.StatusNotFound
	case domain.KindInstallationInProgress:
		return http.StatusConflict
	case domain.KindThemeLayoutInvalid:
		return http.StatusUnprocessableEntity
	case domain.KindRemoteAPIFailed:
		return http.StatusBadGateway
	case domain.KindTrackingIDGenerationFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body and validates it
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewError(domain.KindInvalidInput, "decode request", err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.NewError(domain.KindInvalidInput, "validate request", errors.New(verrs[0].Error()))
		}
		return domain.NewError(domain.KindInvalidInput, "validate request", err)
	}
	return nil
}
