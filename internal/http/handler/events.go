package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JG3233/babybuddy/internal/auth"
	"github.com/JG3233/babybuddy/internal/baby"
	"github.com/JG3233/babybuddy/internal/event"
)

type EventHandler struct {
	Events *event.Service
	Babies *baby.Service
}

type eventPayloadReq struct {
	EventType       string        `json:"event_type"`
	OccurredAtLocal string        `json:"occurred_at_local"`
	Timezone        string        `json:"timezone"`
	Notes           string        `json:"notes"`
	Details         event.Details `json:"details"`
	IdempotencyKey  string        `json:"idempotency_key"`
}

func (req *eventPayloadReq) toPayload() event.Payload {
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	return event.Payload{
		EventType:       strings.TrimSpace(req.EventType),
		OccurredAtLocal: strings.TrimSpace(req.OccurredAtLocal),
		Timezone:        tz,
		Notes:           req.Notes,
		Details:         req.Details,
	}
}

func babyIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "babyID"))
	return id, err == nil
}

func eventIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "eventID"))
	return id, err == nil
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	bid, ok := babyIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	b, err := h.Babies.ForUser(r.Context(), uid, bid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req eventPayloadReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad json", http.StatusBadRequest)
		return
	}
	p := req.toPayload()
	if p.EventType == "" || p.OccurredAtLocal == "" {
		jsonError(w, "event_type and occurred_at_local are required", http.StatusBadRequest)
		return
	}

	var idem *string
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" {
		idem = &k
	} else if k := strings.TrimSpace(req.IdempotencyKey); k != "" {
		idem = &k
	}

	ev, err := h.Events.Create(r.Context(), uid, b, p, idem)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	// an idempotent replay is a success to the client, not a conflict
	writeJSON(w, http.StatusCreated, event.Serialize(ev))
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	bid, ok := babyIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	b, err := h.Babies.ForUser(r.Context(), uid, bid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	f := event.ListFilter{
		EventType: strings.TrimSpace(r.URL.Query().Get("type")),
	}
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		f.From = &v
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		f.To = &v
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Offset = n
		}
	}

	page, err := h.Events.List(r.Context(), uid, b, f)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	results := make([]event.EventDTO, 0, len(page.Events))
	for i := range page.Events {
		results = append(results, event.Serialize(&page.Events[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"pagination": map[string]any{
			"total":    page.Total,
			"limit":    page.Limit,
			"offset":   page.Offset,
			"has_more": page.HasMore,
		},
	})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	eid, ok := eventIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	ev, err := h.Events.ForUser(r.Context(), uid, eid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req eventPayloadReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad json", http.StatusBadRequest)
		return
	}
	p := req.toPayload()
	if p.EventType == "" || p.OccurredAtLocal == "" {
		jsonError(w, "event_type and occurred_at_local are required", http.StatusBadRequest)
		return
	}

	updated, err := h.Events.Update(r.Context(), uid, ev, p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event.Serialize(updated))
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	eid, ok := eventIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	ev, err := h.Events.ForUser(r.Context(), uid, eid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.Events.Delete(r.Context(), uid, ev); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
