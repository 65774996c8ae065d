package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JG3233/babybuddy/internal/auth"
	"github.com/JG3233/babybuddy/internal/event"
	"github.com/JG3233/babybuddy/internal/family"
)

type FamilyHandler struct {
	Families *family.Service
	Events   *event.Service
}

type familyDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uint64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type membershipDTO struct {
	ID       uint64    `json:"id"`
	FamilyID string    `json:"family_id"`
	UserID   uint64    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func toFamilyDTO(f *family.Family) familyDTO {
	return familyDTO{ID: f.ID.String(), Name: f.Name, CreatedBy: f.CreatedByID, CreatedAt: f.CreatedAt}
}

func toMembershipDTO(m *family.Membership) membershipDTO {
	return membershipDTO{ID: m.ID, FamilyID: m.FamilyID.String(), UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
}

func familyIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "familyID"))
	return id, err == nil
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, "name required", http.StatusBadRequest)
		return
	}

	f, err := h.Families.Create(r.Context(), uid, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFamilyDTO(f))
}

func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	families, err := h.Families.ListForUser(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]familyDTO, 0, len(families))
	for i := range families {
		out = append(out, toFamilyDTO(&families[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	fid, ok := familyIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	members, err := h.Families.Members(r.Context(), uid, fid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]membershipDTO, 0, len(members))
	for i := range members {
		out = append(out, toMembershipDTO(&members[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *FamilyHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	fid, ok := familyIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		UserID uint64 `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == 0 {
		jsonError(w, "user_id required", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = family.RoleCaregiver
	}

	m, err := h.Families.AddMember(r.Context(), uid, fid, req.UserID, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMembershipDTO(m))
}

func (h *FamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	fid, ok := familyIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Families.Delete(r.Context(), uid, fid); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recent is the rolling dashboard window: per-type counts for the whole
// family over the trailing hours (default 24).
func (h *FamilyHandler) Recent(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	fid, ok := familyIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	hours := 24
	if v := strings.TrimSpace(r.URL.Query().Get("hours")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 24*90 {
			hours = n
		}
	}

	byType, err := h.Events.RecentCounts(r.Context(), uid, fid, hours)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var total int64
	for _, n := range byType {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hours":   hours,
		"total":   total,
		"by_type": byType,
	})
}
