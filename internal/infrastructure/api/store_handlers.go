package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
)

type connectStoreRequest struct {
	ShopDomain  string `json:"shop_domain" validate:"required"`
	AccessToken string `json:"access_token" validate:"required"`
}

type installRequest struct {
	ThemeID uint64 `json:"theme_id"`
}

func (h *Handler) connectStore(w http.ResponseWriter, r *http.Request) {
	var req connectStoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err, nil)
		return
	}
	store, err := h.storefronts.ConnectStore(r.Context(), domain.GetUserIDFromContext(r.Context()), req.ShopDomain, req.AccessToken)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusCreated, store)
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.storefronts.ListStores(r.Context(), domain.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusOK, stores)
}

// ownedStoreID checks that the authenticated user owns the store in the path
func (h *Handler) ownedStoreID(r *http.Request) (string, error) {
	storeID := chi.URLParam(r, "storeId")
	if _, err := h.storefronts.GetStoreForUser(r.Context(), domain.GetUserIDFromContext(r.Context()), storeID); err != nil {
		return "", err
	}
	return storeID, nil
}

func (h *Handler) installTracking(w http.ResponseWriter, r *http.Request) {
	var req installRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, err, nil)
			return
		}
	}
	storeID, err := h.ownedStoreID(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	inst, err := h.installer.InstallTrackingCode(r.Context(), storeID, req.ThemeID)
	if err != nil {
		writeError(w, err, inst)
		return
	}
	writeData(w, http.StatusCreated, inst)
}

func (h *Handler) listInstallations(w http.ResponseWriter, r *http.Request) {
	storeID, err := h.ownedStoreID(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	list, err := h.installer.ListInstallations(r.Context(), storeID)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusOK, list)
}

// streamInstallations pushes terminal installation statuses as server-sent events
func (h *Handler) streamInstallations(w http.ResponseWriter, r *http.Request) {
	storeID, err := h.ownedStoreID(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported"), nil)
		return
	}

	sub := h.events.Subscribe(r.Context(), &pubsub.InstallationEventFilter{StoreID: storeID})
	defer h.events.Unsubscribe(sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ": subscribed\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-sub.Events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error().Err(err).Msg("Failed to encode installation event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: installation\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
