package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/dailyping/internal/domain"
	"github.com/ykvlv/dailyping/internal/streak"
)

// Store is the storage surface the handlers use. store.Repo satisfies it.
type Store interface {
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	LoadEntryForDay(ctx context.Context, userID string, day domain.Day) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, e *domain.Entry) error
	ListDeliveries(ctx context.Context, userID string, limit int) ([]domain.DeliveryOutcome, error)
}

// Submitter records a day's entry and advances the streak.
type Submitter interface {
	OnSubmission(ctx context.Context, userID string, day domain.Day, content string) (streak.Submission, error)
}

type Handler struct {
	store  Store
	submit Submitter
	log    *zap.Logger
}

func NewHandler(store Store, submit Submitter, log *zap.Logger) *Handler {
	return &Handler{store: store, submit: submit, log: log}
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toUserDTO(u))
}

// PutUser creates the user or replaces its settings. Streak and
// subscription state are server-owned and ignored here.
func (h *Handler) PutUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := req.toUser(chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.UpsertUser(r.Context(), u); err != nil {
		h.fail(w, err)
		return
	}
	saved, err := h.store.GetUser(r.Context(), u.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toUserDTO(saved))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Day     string `json:"day"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	res, err := h.submit.OnSubmission(r.Context(), chi.URLParam(r, "userID"), domain.Day(req.Day), req.Content)
	if err != nil {
		h.fail(w, err)
		return
	}
	status := http.StatusCreated
	if !res.Created {
		status = http.StatusOK
	}
	h.respondJSON(w, status, submissionDTO{
		Day:        res.Day.String(),
		Created:    res.Created,
		Transition: string(res.Transition),
		Streak:     toStreakDTO(res.Streak),
	})
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEntry(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, toEntryDTO(e))
}

// PatchEntry edits content, note, completion, reminders or sub-items.
// Absent fields are left as they are.
func (h *Handler) PatchEntry(w http.ResponseWriter, r *http.Request) {
	var req entryPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	e, ok := h.loadEntry(w, r)
	if !ok {
		return
	}
	if err := req.apply(e); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.UpdateEntry(r.Context(), e); err != nil {
		h.fail(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	list, err := h.store.ListDeliveries(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]deliveryDTO, 0, len(list))
	for _, o := range list {
		out = append(out, toDeliveryDTO(o))
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handler) loadEntry(w http.ResponseWriter, r *http.Request) (*domain.Entry, bool) {
	day, err := domain.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	e, err := h.store.LoadEntryForDay(r.Context(), chi.URLParam(r, "userID"), day)
	if err != nil {
		h.fail(w, err)
		return nil, false
	}
	return e, true
}

// fail maps domain errors onto status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidDay), errors.Is(err, streak.ErrFutureDay):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, streak.ErrConflict):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
