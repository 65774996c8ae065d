package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JG3233/babybuddy/internal/auth"
	"github.com/JG3233/babybuddy/internal/baby"
	"github.com/JG3233/babybuddy/internal/event"
)

type SummaryHandler struct {
	Events *event.Service
	Babies *baby.Service
}

func (h *SummaryHandler) resolveBaby(w http.ResponseWriter, r *http.Request) (*baby.Baby, uint64, bool) {
	uid, _ := auth.UserIDFromContext(r.Context())
	bid, ok := babyIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return nil, 0, false
	}
	b, err := h.Babies.ForUser(r.Context(), uid, bid)
	if err != nil {
		writeServiceError(w, err)
		return nil, 0, false
	}
	return b, uid, true
}

// timezone defaults to the baby's own zone when the query omits one.
func summaryTimezone(r *http.Request, b *baby.Baby) string {
	if tz := strings.TrimSpace(r.URL.Query().Get("timezone")); tz != "" {
		return tz
	}
	return b.Timezone
}

func (h *SummaryHandler) Daily(w http.ResponseWriter, r *http.Request) {
	b, uid, ok := h.resolveBaby(w, r)
	if !ok {
		return
	}

	dayRaw := r.URL.Query().Get("date")
	if dayRaw == "" {
		jsonError(w, "date query param is required", http.StatusBadRequest)
		return
	}
	day, err := time.Parse("2006-01-02", dayRaw)
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	tz := summaryTimezone(r, b)

	sm, err := h.Events.DailySummary(r.Context(), uid, b, day, tz)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":     dayRaw,
		"timezone": tz,
		"total":    sm.Total,
		"by_type":  sm.ByType,
	})
}

func (h *SummaryHandler) Range(w http.ResponseWriter, r *http.Request) {
	b, uid, ok := h.resolveBaby(w, r)
	if !ok {
		return
	}

	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw == "" || toRaw == "" {
		jsonError(w, "from and to query params are required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse("2006-01-02", fromRaw)
	if err != nil {
		jsonError(w, "from and to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", toRaw)
	if err != nil {
		jsonError(w, "from and to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	tz := summaryTimezone(r, b)

	sm, err := h.Events.RangeSummary(r.Context(), uid, b, start, end, tz)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":     fromRaw,
		"to":       toRaw,
		"timezone": tz,
		"total":    sm.Total,
		"by_type":  sm.ByType,
	})
}

func (h *SummaryHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	b, uid, ok := h.resolveBaby(w, r)
	if !ok {
		return
	}

	tz := summaryTimezone(r, b)
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			year = n
		}
	}
	if v := r.URL.Query().Get("month"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			month = n
		}
	}

	days, err := h.Events.CalendarMonth(r.Context(), uid, b, year, month, tz)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":     year,
		"month":    month,
		"timezone": tz,
		"days":     days,
	})
}
