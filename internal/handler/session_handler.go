package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ygnbus/internal/bridge"
	"ygnbus/internal/location"
	"ygnbus/internal/nav"
	"ygnbus/internal/route"
	"ygnbus/internal/session"
)

// SessionHandler exposes the session operations to the UI shell.
type SessionHandler struct {
	session  *session.Session
	reported *location.Reported
	logger   *slog.Logger
}

// NewSessionHandler wires s to HTTP. Locations posted by the shell are also
// recorded in reported so later refreshes see them.
func NewSessionHandler(s *session.Session, reported *location.Reported, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		session:  s,
		reported: reported,
		logger:   logger.With("handler", "session"),
	}
}

// Routes mounts the session API under /v1.
func (h *SessionHandler) Routes(r chi.Router) {
	r.Get("/session", h.GetSession)
	r.Post("/nav", h.SelectPanel)
	r.Delete("/nav", h.ClosePanel)
	r.Post("/location", h.ReportLocation)
	r.Get("/nearby", h.ListNearby)

	r.Get("/stops", h.SearchStops)
	r.Post("/stops/more", h.MoreStops)
	r.Post("/stops/{id}/pin", h.PinStop)
	r.Delete("/stops/pin", h.UnpinStop)

	r.Get("/lines", h.SearchLines)
	r.Post("/lines/more", h.MoreLines)
	r.Post("/lines/{id}/toggle", h.ToggleLine)

	r.Route("/directions", func(r chi.Router) {
		r.Get("/", h.GetDirections)
		r.Post("/focus", h.FocusEndpoint)
		r.Post("/blur", h.BlurEndpoint)
		r.Post("/query", h.EditEndpoint)
		r.Post("/select", h.SelectEndpoint)
		r.Post("/submit", h.SubmitEndpointSearch)
		r.Post("/more", h.MoreEndpoints)
		r.Post("/swap", h.SwapEndpoints)
		r.Post("/detail", h.ViewRouteDetail)
		r.Post("/back", h.BackToOptions)
	})
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.View())
}

type panelRequest struct {
	Panel string `json:"panel"`
}

func (h *SessionHandler) SelectPanel(w http.ResponseWriter, r *http.Request) {
	var req panelRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	panel, err := nav.ParsePanel(req.Panel)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.session.SelectPanel(panel)
	respondJSON(w, http.StatusOK, h.session.View())
}

func (h *SessionHandler) ClosePanel(w http.ResponseWriter, r *http.Request) {
	h.session.ClosePanel()
	respondJSON(w, http.StatusOK, h.session.View())
}

func (h *SessionHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	loc, err := bridge.NormalizeLocation(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid location: "+err.Error())
		return
	}
	if loc != nil && !loc.Valid() {
		respondError(w, http.StatusBadRequest, "location out of range")
		return
	}

	if loc != nil && h.reported != nil {
		h.reported.Set(*loc)
	}
	h.session.SetLocation(loc)
	respondJSON(w, http.StatusOK, loc)
}

type NearbyResponse struct {
	Entries    []json.RawMessage `json:"entries"`
	Count      int               `json:"count"`
	ServerTime time.Time         `json:"server_time"`
}

func (h *SessionHandler) ListNearby(w http.ResponseWriter, r *http.Request) {
	entries := h.session.Nearby()
	respondJSON(w, http.StatusOK, NearbyResponse{
		Entries:    entries,
		Count:      len(entries),
		ServerTime: time.Now(),
	})
}

func (h *SessionHandler) SearchStops(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.SearchStops(r.URL.Query().Get("q")))
}

func (h *SessionHandler) MoreStops(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.MoreStops())
}

func (h *SessionHandler) PinStop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid stop id")
		return
	}

	stop, err := h.session.PinStop(id)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stop)
}

func (h *SessionHandler) UnpinStop(w http.ResponseWriter, r *http.Request) {
	h.session.UnpinStop()
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) SearchLines(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.SearchLines(r.URL.Query().Get("q")))
}

func (h *SessionHandler) MoreLines(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.MoreLines())
}

type ToggleLineResponse struct {
	Expanded bool                `json:"expanded"`
	Detail   *session.LineDetail `json:"detail,omitempty"`
}

func (h *SessionHandler) ToggleLine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid line id")
		return
	}

	detail, err := h.session.ToggleLine(id)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ToggleLineResponse{Expanded: detail != nil, Detail: detail})
}

func (h *SessionHandler) GetDirections(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Directions())
}

type endpointRequest struct {
	Field  string `json:"field"`
	Text   string `json:"text,omitempty"`
	StopID int    `json:"stop_id,omitempty"`
}

func (h *SessionHandler) decodeEndpoint(w http.ResponseWriter, r *http.Request) (endpointRequest, nav.Field, bool) {
	var req endpointRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return req, nav.FieldNone, false
	}
	field, err := nav.ParseField(req.Field)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return req, nav.FieldNone, false
	}
	return req, field, true
}

func (h *SessionHandler) FocusEndpoint(w http.ResponseWriter, r *http.Request) {
	_, field, ok := h.decodeEndpoint(w, r)
	if !ok {
		return
	}
	if err := h.session.FocusEndpoint(field); err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.session.Directions())
}

func (h *SessionHandler) BlurEndpoint(w http.ResponseWriter, r *http.Request) {
	_, field, ok := h.decodeEndpoint(w, r)
	if !ok {
		return
	}
	h.session.BlurEndpoint(field)
	respondJSON(w, http.StatusOK, h.session.Directions())
}

func (h *SessionHandler) EditEndpoint(w http.ResponseWriter, r *http.Request) {
	req, field, ok := h.decodeEndpoint(w, r)
	if !ok {
		return
	}
	if err := h.session.EditEndpoint(field, req.Text); err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.session.Directions())
}

func (h *SessionHandler) SelectEndpoint(w http.ResponseWriter, r *http.Request) {
	req, field, ok := h.decodeEndpoint(w, r)
	if !ok {
		return
	}
	if _, err := h.session.SelectEndpoint(field, req.StopID); err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.session.Directions())
}

func (h *SessionHandler) SubmitEndpointSearch(w http.ResponseWriter, r *http.Request) {
	if _, _, err := h.session.SubmitEndpointSearch(); err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.session.Directions())
}

func (h *SessionHandler) MoreEndpoints(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.MoreEndpoints())
}

func (h *SessionHandler) SwapEndpoints(w http.ResponseWriter, r *http.Request) {
	h.session.SwapEndpoints()
	respondJSON(w, http.StatusOK, h.session.Directions())
}

type detailRequest struct {
	LineID int `json:"line_id"`
}

func (h *SessionHandler) ViewRouteDetail(w http.ResponseWriter, r *http.Request) {
	var req detailRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
	}
	if _, err := h.session.ViewRouteDetail(req.LineID); err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.session.Directions())
}

func (h *SessionHandler) BackToOptions(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.BackToOptions(); err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.session.Directions())
}

func (h *SessionHandler) respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownStop), errors.Is(err, session.ErrUnknownLine):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, nav.ErrNotDirections),
		errors.Is(err, session.ErrNotEditing),
		errors.Is(err, route.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, route.ErrUnknownLine):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("session operation failed", "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
	}
}
