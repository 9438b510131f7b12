package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/nursecheck-triage/models"
	"github.com/maastricht-university/nursecheck-triage/orchestrator"
	"github.com/maastricht-university/nursecheck-triage/render"
)

type Triage interface {
	Run(ctx context.Context, patientID string) (*orchestrator.Result, error)
}

type Records interface {
	Get(ctx context.Context, patientID string) (*models.PatientRecord, error)
}

type Directory interface {
	Get(ctx context.Context, patientID string) (*models.Patient, error)
	Queue(ctx context.Context, nurseID string) ([]models.Patient, error)
	ToggleProcessed(ctx context.Context, patientID string) (bool, error)
	Similar(ctx context.Context, patientID string) ([]models.SimilarCase, error)
}

type Handler struct {
	triage  Triage
	records Records
	dir     Directory
	log     *logrus.Entry
}

func NewHandler(triage Triage, records Records, dir Directory, log *logrus.Entry) *Handler {
	return &Handler{triage: triage, records: records, dir: dir, log: log.WithField("component", "api")}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/patients/{id}/triage", h.Triage)
	r.Get("/patients/{id}/record", h.Record)
	r.Get("/patients/{id}/record.pdf", h.RecordPDF)
	r.Post("/patients/{id}/processed", h.ToggleProcessed)
	r.Get("/patients/{id}/similar", h.Similar)
	r.Get("/queue", h.Queue)
}

func (h *Handler) Triage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.triage.Run(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) RecordPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.records.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	// A missing directory entry only drops the DOB line.
	patient, err := h.dir.Get(r.Context(), id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="patient_`+id+`.pdf"`)
	if err := render.Write(w, patient, rec); err != nil {
		h.log.WithError(err).WithField("patient_id", id).Error("pdf render failed")
	}
}

func (h *Handler) ToggleProcessed(w http.ResponseWriter, r *http.Request) {
	processed, err := h.dir.ToggleProcessed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"processed": processed})
}

func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	cases, err := h.dir.Similar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	// Without nurse_id every patient is listed.
	patients, err := h.dir.Queue(r.Context(), r.URL.Query().Get("nurse_id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// Status maps pipeline and store errors to HTTP status codes.
func Status(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrClassificationFormat), errors.Is(err, models.ErrInvalidEmotion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrOracleUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrSessionOpen):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := Status(err)
	if code == http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
