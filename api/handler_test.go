package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maastricht-university/nursecheck-triage/logging"
	"github.com/maastricht-university/nursecheck-triage/models"
	"github.com/maastricht-university/nursecheck-triage/orchestrator"
	"github.com/maastricht-university/nursecheck-triage/urgency"
)

type triageFunc func(ctx context.Context, id string) (*orchestrator.Result, error)

func (f triageFunc) Run(ctx context.Context, id string) (*orchestrator.Result, error) {
	return f(ctx, id)
}

type fakeRecords map[string]*models.PatientRecord

func (f fakeRecords) Get(_ context.Context, id string) (*models.PatientRecord, error) {
	rec, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, models.ErrNotFound)
	}
	return rec, nil
}

type fakeDirectory struct {
	patients  map[string]models.Patient
	processed map[string]bool
}

func (f *fakeDirectory) Get(_ context.Context, id string) (*models.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (f *fakeDirectory) Queue(_ context.Context, nurseID string) ([]models.Patient, error) {
	var out []models.Patient
	for _, p := range f.patients {
		if nurseID == "" || p.AssignNurseID == nurseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeDirectory) ToggleProcessed(_ context.Context, id string) (bool, error) {
	if _, ok := f.patients[id]; !ok {
		return false, models.ErrNotFound
	}
	f.processed[id] = !f.processed[id]
	return f.processed[id], nil
}

func (f *fakeDirectory) Similar(_ context.Context, id string) ([]models.SimilarCase, error) {
	if _, ok := f.patients[id]; !ok {
		return nil, models.ErrNotFound
	}
	return []models.SimilarCase{{PatientID: "p2", Name: "Sam Lee", Note: "low mood", Score: 2}}, nil
}

func newServer(t *testing.T, triage triageFunc) *httptest.Server {
	t.Helper()
	recs := fakeRecords{"p1": {
		PatientID: "p1", PatientName: "Alex Doan",
		Notes: []models.RecordEntry{{Note: "ok", Priority: 3, Timestamp: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}},
	}}
	dir := &fakeDirectory{
		patients:  map[string]models.Patient{"p1": {ID: "p1", FirstName: "Alex", LastName: "Doan", AssignNurseID: "n1"}},
		processed: map[string]bool{},
	}
	srv := httptest.NewServer(NewRouter(NewHandler(triage, recs, dir, logging.Discard())))
	t.Cleanup(srv.Close)
	return srv
}

func TestTriageStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{&orchestrator.StageError{Stage: orchestrator.StateTranscriptFetched, Err: models.ErrNotFound}, http.StatusNotFound},
		{&orchestrator.StageError{Stage: orchestrator.StateClassified, Err: &urgency.FormatError{Field: "priority", Raw: "high"}}, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: timeout", models.ErrOracleUnavailable), http.StatusBadGateway},
		{models.ErrSessionOpen, http.StatusConflict},
		{fmt.Errorf("%w: disk full", models.ErrPersistence), http.StatusInternalServerError},
	}
	for _, c := range cases {
		srv := newServer(t, func(_ context.Context, id string) (*orchestrator.Result, error) {
			return &orchestrator.Result{PatientID: id, State: orchestrator.StateDone}, c.err
		})
		resp, err := http.Post(srv.URL+"/api/patients/p1/triage", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != c.want {
			t.Fatalf("err %v: status = %d, want %d", c.err, resp.StatusCode, c.want)
		}
	}
}

func TestRecordEndpoints(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/patients/p1/record")
	if err != nil {
		t.Fatal(err)
	}
	var rec models.PatientRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if rec.PatientID != "p1" || len(rec.Notes) != 1 {
		t.Fatalf("record = %+v", rec)
	}

	resp, err = http.Get(srv.URL + "/api/patients/ghost/record")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing record status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/patients/p1/record.pdf")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.Header.Get("Content-Type") != "application/pdf" || !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("pdf response: %s %q", resp.Header.Get("Content-Type"), buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestQueueAndProcessed(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/queue?nurse_id=n2")
	if err != nil {
		t.Fatal(err)
	}
	var empty []models.Patient
	json.NewDecoder(resp.Body).Decode(&empty)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(empty) != 0 {
		t.Fatalf("other nurse queue = %d %+v", resp.StatusCode, empty)
	}

	resp, err = http.Get(srv.URL + "/api/queue?nurse_id=n1")
	if err != nil {
		t.Fatal(err)
	}
	var queue []models.Patient
	json.NewDecoder(resp.Body).Decode(&queue)
	resp.Body.Close()
	if len(queue) != 1 || queue[0].ID != "p1" {
		t.Fatalf("queue = %+v", queue)
	}

	for _, want := range []bool{true, false} {
		resp, err := http.Post(srv.URL+"/api/patients/p1/processed", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		var body map[string]bool
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if body["processed"] != want {
			t.Fatalf("processed = %v, want %v", body["processed"], want)
		}
	}
}

func TestSimilarEndpoint(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/patients/p1/similar")
	if err != nil {
		t.Fatal(err)
	}
	var cases []models.SimilarCase
	if err := json.NewDecoder(resp.Body).Decode(&cases); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(cases) != 1 || cases[0].PatientID != "p2" || cases[0].Score != 2 {
		t.Fatalf("similar = %+v", cases)
	}

	resp, err = http.Get(srv.URL + "/api/patients/ghost/similar")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown patient status = %d", resp.StatusCode)
	}
}

func TestStatusInvalidEmotion(t *testing.T) {
	err := &orchestrator.StageError{Stage: orchestrator.StateTranscriptFetched, Err: fmt.Errorf("turn 1: %w", models.ErrInvalidEmotion)}
	if got := Status(err); got != http.StatusUnprocessableEntity {
		t.Fatalf("Status = %d", got)
	}
}

func TestStatusDefault(t *testing.T) {
	if got := Status(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("Status = %d", got)
	}
}
