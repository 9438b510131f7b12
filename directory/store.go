package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/maastricht-university/nursecheck-triage/models"
)

type patientRow struct {
	ID            string `gorm:"primaryKey;size:64"`
	FirstName     string `gorm:"size:128;index:idx_patient_identity"`
	LastName      string `gorm:"size:128;index:idx_patient_identity"`
	Age           int
	DOB           string `gorm:"size:32;index:idx_patient_identity"`
	Address       string
	Weight        float64
	BloodType     string `gorm:"size:8"`
	Phone         string `gorm:"size:32"`
	Email         string `gorm:"size:255;index:idx_patient_identity"`
	Gender        string `gorm:"size:32"`
	RoomNumber    string `gorm:"size:32"`
	AssignNurseID string `gorm:"size:64;index"`
	Priority      int    `gorm:"index"`
	Note          string
	Processed     bool
}

func (patientRow) TableName() string { return "patients" }

type nurseRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	FirstName string `gorm:"size:128"`
	LastName  string `gorm:"size:128"`
	Age       int
	Shift     string `gorm:"size:64"`
	Phone     string `gorm:"size:32"`
	Email     string `gorm:"size:255"`
}

func (nurseRow) TableName() string { return "nurses" }

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&patientRow{}, &nurseRow{})
}

type Store struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewStore(db *gorm.DB, log *logrus.Entry) *Store {
	return &Store{db: db, log: log.WithField("component", "directory")}
}

func (s *Store) Get(ctx context.Context, patientID string) (*models.Patient, error) {
	var row patientRow
	err := s.db.WithContext(ctx).Where("id = ?", patientID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("patient %s: %w", patientID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load patient %s: %w", patientID, err)
	}
	p := row.toModel()
	return &p, nil
}

// SetPriorityAndNote refreshes the denormalized queue fields from the latest
// record entry.
func (s *Store) SetPriorityAndNote(ctx context.Context, patientID string, priority int, note string) error {
	res := s.db.WithContext(ctx).Model(&patientRow{}).
		Where("id = ?", patientID).
		Updates(map[string]any{"priority": priority, "note": note})
	if res.Error != nil {
		return fmt.Errorf("update patient %s: %w", patientID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("patient %s: %w", patientID, models.ErrNotFound)
	}
	return nil
}

// CreatePatient inserts p unless a patient with the same name, date of birth
// and e-mail exists, in which case the existing id is returned.
func (s *Store) CreatePatient(ctx context.Context, p models.Patient) (string, error) {
	var existing patientRow
	err := s.db.WithContext(ctx).
		Where("first_name = ? AND last_name = ? AND dob = ? AND email = ?", p.FirstName, p.LastName, p.DOB, p.Email).
		Take(&existing).Error
	if err == nil {
		s.log.WithField("patient_id", existing.ID).Info("patient already exists")
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("find patient: %w", err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := patientFromModel(p)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create patient: %w", err)
	}
	return row.ID, nil
}

// CreateNurse inserts n unless a nurse with the same name, age and phone exists.
func (s *Store) CreateNurse(ctx context.Context, n models.Nurse) (string, error) {
	var existing nurseRow
	err := s.db.WithContext(ctx).
		Where("first_name = ? AND last_name = ? AND age = ? AND phone = ?", n.FirstName, n.LastName, n.Age, n.Phone).
		Take(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("find nurse: %w", err)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	row := nurseRow(n)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create nurse: %w", err)
	}
	return row.ID, nil
}

func (s *Store) GetNurse(ctx context.Context, nurseID string) (*models.Nurse, error) {
	var row nurseRow
	err := s.db.WithContext(ctx).Where("id = ?", nurseID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("nurse %s: %w", nurseID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load nurse %s: %w", nurseID, err)
	}
	n := models.Nurse(row)
	return &n, nil
}

func (s *Store) AssignNurse(ctx context.Context, patientID, nurseID string) error {
	if _, err := s.GetNurse(ctx, nurseID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&patientRow{}).Where("id = ?", patientID).Update("assign_nurse_id", nurseID)
	if res.Error != nil {
		return fmt.Errorf("assign nurse: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("patient %s: %w", patientID, models.ErrNotFound)
	}
	return nil
}

// ToggleProcessed flips the processed flag and returns the new value.
func (s *Store) ToggleProcessed(ctx context.Context, patientID string) (bool, error) {
	var processed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row patientRow
		if err := tx.Where("id = ?", patientID).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("patient %s: %w", patientID, models.ErrNotFound)
			}
			return err
		}
		processed = !row.Processed
		return tx.Model(&patientRow{}).Where("id = ?", patientID).Update("processed", processed).Error
	})
	return processed, err
}

// Queue lists patients for the nurse work queue: unprocessed before processed,
// each group by descending priority. An empty nurseID lists everyone.
func (s *Store) Queue(ctx context.Context, nurseID string) ([]models.Patient, error) {
	q := s.db.WithContext(ctx).Model(&patientRow{})
	if nurseID != "" {
		q = q.Where("assign_nurse_id = ?", nurseID)
	}
	var rows []patientRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	out := make([]models.Patient, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Processed != out[j].Processed {
			return !out[i].Processed
		}
		return out[i].Priority > out[j].Priority
	})
	return out, nil
}

// Similar ranks every other patient by how many distinct words their note
// shares with patientID's note, highest first. Patients sharing no word are
// left out.
func (s *Store) Similar(ctx context.Context, patientID string) ([]models.SimilarCase, error) {
	target, err := s.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	words := wordSet(target.Note)
	out := []models.SimilarCase{}
	if len(words) == 0 {
		return out, nil
	}

	var rows []patientRow
	if err := s.db.WithContext(ctx).Where("id <> ?", patientID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	for _, r := range rows {
		score := 0
		for w := range wordSet(r.Note) {
			if _, ok := words[w]; ok {
				score++
			}
		}
		if score == 0 {
			continue
		}
		p := r.toModel()
		out = append(out, models.SimilarCase{PatientID: p.ID, Name: p.FullName(), Note: p.Note, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PatientID < out[j].PatientID
	})
	return out, nil
}

// wordSet splits on whitespace; matching is exact, case and punctuation included.
func wordSet(note string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(note) {
		set[w] = struct{}{}
	}
	return set
}

func (r patientRow) toModel() models.Patient {
	return models.Patient(r)
}

func patientFromModel(p models.Patient) patientRow {
	return patientRow(p)
}
