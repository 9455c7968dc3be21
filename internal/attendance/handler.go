package attendance

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/endrycofr/nginx-load-balancer/internal/domain"
	"github.com/endrycofr/nginx-load-balancer/internal/pkg/httputil"
)

// Handler handles HTTP requests for attendance records.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new attendance handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all attendance routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// CreateRequest represents the request body for creating a record.
type CreateRequest struct {
	StudentID string `json:"student_id" validate:"required,max=20"`
	Name      string `json:"name" validate:"required,max=100"`
}

// UpdateRequest represents the request body for a partial update. Absent
// fields keep their stored value.
type UpdateRequest struct {
	StudentID *string `json:"student_id,omitempty"`
	Name      *string `json:"name,omitempty"`
}

// Record represents an attendance record in responses.
type Record struct {
	ID         int64     `json:"id"`
	StudentID  string    `json:"student_id"`
	Name       string    `json:"name"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toRecord(a *domain.Attendance) Record {
	return Record{
		ID:         a.ID,
		StudentID:  a.StudentID,
		Name:       a.Name,
		RecordedAt: a.RecordedAt,
	}
}

// ListResponse is the body of a successful list call.
type ListResponse struct {
	Total int      `json:"total"`
	Data  []Record `json:"data"`
}

// Create handles POST /attendance.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	record := &domain.Attendance{
		StudentID: req.StudentID,
		Name:      req.Name,
	}
	if err := h.service.Create(r.Context(), record); err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusCreated, toRecord(record))
}

// List handles GET /attendance.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	resp := ListResponse{
		Total: len(records),
		Data:  make([]Record, 0, len(records)),
	}
	for i := range records {
		resp.Data = append(resp.Data, toRecord(&records[i]))
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// Update handles PUT /attendance/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.service.Update(r.Context(), id, req.StudentID, req.Name)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, notFoundMapping)
		return
	}

	httputil.Success(w, http.StatusOK, toRecord(record))
}

// Delete handles DELETE /attendance/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid record id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.HandleError(r.Context(), w, err, notFoundMapping)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var notFoundMapping = []httputil.ErrorMapping{
	{Error: ErrNotFound, Status: http.StatusNotFound},
}
