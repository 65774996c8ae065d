package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/JG3233/babybuddy/internal/auth"
	"github.com/JG3233/babybuddy/internal/baby"
)

type BabyHandler struct {
	Babies *baby.Service
}

type babyDTO struct {
	ID        string  `json:"id"`
	FamilyID  string  `json:"family_id"`
	Name      string  `json:"name"`
	BirthDate *string `json:"birth_date"`
	Timezone  string  `json:"timezone"`
}

func toBabyDTO(b *baby.Baby) babyDTO {
	dto := babyDTO{
		ID:       b.ID.String(),
		FamilyID: b.FamilyID.String(),
		Name:     b.Name,
		Timezone: b.Timezone,
	}
	if b.BirthDate != nil {
		d := b.BirthDate.Format("2006-01-02")
		dto.BirthDate = &d
	}
	return dto
}

func (h *BabyHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	fid, ok := familyIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Name      string `json:"name"`
		BirthDate string `json:"birth_date"`
		Timezone  string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad json", http.StatusBadRequest)
		return
	}

	in := baby.CreateInput{
		Name:     strings.TrimSpace(req.Name),
		Timezone: strings.TrimSpace(req.Timezone),
	}
	if req.BirthDate != "" {
		d, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			jsonError(w, "birth_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		in.BirthDate = &d
	}

	b, err := h.Babies.Create(r.Context(), uid, fid, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBabyDTO(b))
}

func (h *BabyHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	fid, ok := familyIDParam(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	babies, err := h.Babies.ListForFamily(r.Context(), uid, fid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]babyDTO, 0, len(babies))
	for i := range babies {
		out = append(out, toBabyDTO(&babies[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
