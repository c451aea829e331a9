package api

import (
	"net/http"
	"time"

	"archie-core-attribution-layer/internal/application"
	"archie-core-attribution-layer/internal/domain"

	"github.com/go-chi/chi/v5"
)

type connectRequest struct {
	Platform    string             `json:"platform" validate:"required"`
	Credentials domain.Credentials `json:"credentials"`
}

type connectionView struct {
	ID        string          `json:"id"`
	Platform  domain.Platform `json:"platform"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type connectionsView struct {
	Connections []connectionView         `json:"connections"`
	Connected   map[domain.Platform]bool `json:"connected"`
}

func viewConnections(m *application.ConnectionManager) connectionsView {
	out := connectionsView{
		Connections: []connectionView{},
		Connected:   make(map[domain.Platform]bool, len(domain.Platforms)),
	}
	for _, p := range domain.Platforms {
		out.Connected[p] = m.IsConnected(p)
	}
	for _, c := range m.Connections() {
		out.Connections = append(out.Connections, connectionView{
			ID:        c.ID,
			Platform:  c.PlatformName,
			Status:    string(c.Status),
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}

// manager resolves the connection manager of the authenticated user
func (h *Handler) manager(r *http.Request) (*application.ConnectionManager, error) {
	return h.connections.For(r.Context(), domain.GetUserIDFromContext(r.Context()))
}

func (h *Handler) listConnections(w http.ResponseWriter, r *http.Request) {
	m, err := h.manager(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusOK, viewConnections(m))
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err, nil)
		return
	}
	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	m, err := h.manager(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if err := m.Connect(r.Context(), m.CurrentUser(), platform, req.Credentials); err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusCreated, viewConnections(m))
}

func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	platform, err := domain.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	m, err := h.manager(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if err := m.Disconnect(r.Context(), platform); err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusOK, viewConnections(m))
}

func (h *Handler) refreshConnections(w http.ResponseWriter, r *http.Request) {
	m, err := h.manager(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if err := m.Refresh(r.Context()); err != nil {
		writeError(w, err, nil)
		return
	}
	writeData(w, http.StatusOK, viewConnections(m))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.connections.Forget(r.Context(), domain.GetUserIDFromContext(r.Context()))
	writeData(w, http.StatusOK, map[string]bool{"cleared": true})
}
