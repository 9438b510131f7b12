package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/maastricht-university/nursecheck-triage/models"
)

const timeLayout = "2006-01-02 15:04:05"

var colWidths = []float64{40, 70, 80}

// PDF renders a patient's check-in history, newest entry first.
type PDF struct {
	dir string
}

func NewPDF(dir string) *PDF { return &PDF{dir: dir} }

func (p *PDF) Path(patientID string) string {
	return filepath.Join(p.dir, fmt.Sprintf("patient_%s.pdf", patientID))
}

// Render writes the document to Path(patientID) and returns that path.
func (p *PDF) Render(patient *models.Patient, rec *models.PatientRecord) (string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", err
	}
	path := p.Path(rec.PatientID)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := Write(f, patient, rec); err != nil {
		return "", err
	}
	return path, nil
}

// Write streams the rendered PDF to w.
func Write(w io.Writer, patient *models.Patient, rec *models.PatientRecord) error {
	name := rec.PatientName
	if patient != nil && patient.FullName() != "" {
		name = patient.FullName()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 25)
	pdf.CellFormat(0, 14, tr(fmt.Sprintf("%s's Check-in Record", name)), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 15)
	info := fmt.Sprintf("Age: %d  Gender: %s  Weight: %g lbs  Blood Type: %s", rec.Age, rec.Gender, rec.Weight, rec.BloodType)
	if patient != nil && patient.DOB != "" {
		info = fmt.Sprintf("DOB: %s  ", patient.DOB) + info
	}
	pdf.CellFormat(0, 10, tr(info), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(0, 10, "Notes History:", "", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "B", 11)
	for i, h := range []string{"Date", "Top 5 emotions", "Note"} {
		pdf.CellFormat(colWidths[i], 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	const lineH = 5.0
	left, _, _, _ := pdf.GetMargins()
	for i := len(rec.Notes) - 1; i >= 0; i-- {
		cells := Row(rec.Notes[i])
		lines := 1
		for c, text := range cells {
			if n := len(pdf.SplitLines([]byte(tr(text)), colWidths[c]-2)); n > lines {
				lines = n
			}
		}
		h := float64(lines) * lineH
		if pdf.GetY()+h > 270 {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		for c, text := range cells {
			pdf.Rect(x, y, colWidths[c], h, "D")
			pdf.MultiCell(colWidths[c], lineH, tr(text), "", "L", false)
			x += colWidths[c]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(left, y+h)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// Row is the table row for one entry: date, emotions as percentages, note.
func Row(e models.RecordEntry) [3]string {
	parts := make([]string, 0, len(e.Emotions))
	for _, em := range e.Emotions {
		parts = append(parts, fmt.Sprintf("%s (%.1f%%)", em.Label, em.Score*10))
	}
	return [3]string{e.Timestamp.Format(timeLayout), strings.Join(parts, ", "), e.Note}
}
