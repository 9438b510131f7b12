package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// RunReport is the JSON trace left on disk for each completed or failed run.
type RunReport struct {
	GeneratedAt time.Time `json:"generated_at"`
	Error       string    `json:"error,omitempty"`
	*Result
}

func mkRunDir(outputsRoot, patientID string) (string, error) {
	dir := filepath.Join(outputsRoot, "patient_"+patientID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReport stores res as <root>/patient_<id>/run_<timestamp>_<run>.json.
func writeReport(outputsRoot string, res *Result, runErr error, at time.Time) (string, error) {
	dir, err := mkRunDir(outputsRoot, res.PatientID)
	if err != nil {
		return "", err
	}
	name := "run_" + at.UTC().Format("20060102-150405") + "_" + res.RunID[:8] + ".json"
	path := filepath.Join(dir, name)

	rep := RunReport{GeneratedAt: at.UTC(), Result: res}
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	if err := writeJSON(path, rep); err != nil {
		return "", err
	}
	return path, nil
}
