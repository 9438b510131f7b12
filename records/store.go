package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/maastricht-university/nursecheck-triage/models"
)

const maxAppendAttempts = 5

// Demographics supplies the patient snapshot a new record is seeded with.
type Demographics interface {
	Get(ctx context.Context, patientID string) (*models.Patient, error)
}

// recordRow is one document per patient. Notes is the whole ordered history;
// Revision guards the read-modify-write in Append.
type recordRow struct {
	PatientID   string `gorm:"primaryKey;size:64"`
	PatientName string `gorm:"size:255"`
	Age         int
	Gender      string `gorm:"size:32"`
	Weight      float64
	BloodType   string `gorm:"size:8"`
	DoctorID    string `gorm:"size:64"`
	DateCreated time.Time
	Notes       datatypes.JSON
	Revision    int64 `gorm:"not null;default:0"`
}

func (recordRow) TableName() string { return "records" }

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&recordRow{})
}

type Store struct {
	db     *gorm.DB
	people Demographics
	log    *logrus.Entry
}

func NewStore(db *gorm.DB, people Demographics, log *logrus.Entry) *Store {
	return &Store{db: db, people: people, log: log.WithField("component", "records")}
}

// Append adds entry to the end of the patient's history, creating the record
// on first use. Concurrent appends are serialized by a revision check; after
// maxAppendAttempts lost races it gives up with models.ErrConflict.
func (s *Store) Append(ctx context.Context, patientID string, entry models.RecordEntry) (*models.PatientRecord, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		var row recordRow
		err := s.db.WithContext(ctx).Where("patient_id = ?", patientID).Take(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec, created, err := s.create(ctx, patientID, entry)
			if err != nil {
				return nil, err
			}
			if created {
				return rec, nil
			}
			continue
		case err != nil:
			return nil, fmt.Errorf("%w: load record %s: %v", models.ErrPersistence, patientID, err)
		}

		notes, err := decodeNotes(row.Notes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
		}
		notes = append(notes, entry)
		raw, err := json.Marshal(notes)
		if err != nil {
			return nil, fmt.Errorf("%w: encode notes: %v", models.ErrPersistence, err)
		}

		res := s.db.WithContext(ctx).Model(&recordRow{}).
			Where("patient_id = ? AND revision = ?", patientID, row.Revision).
			Updates(map[string]any{"notes": datatypes.JSON(raw), "revision": row.Revision + 1})
		if res.Error != nil {
			return nil, fmt.Errorf("%w: update record %s: %v", models.ErrPersistence, patientID, res.Error)
		}
		if res.RowsAffected == 1 {
			row.Notes = raw
			row.Revision++
			return row.toModel(notes), nil
		}
		s.log.WithFields(logrus.Fields{"patient_id": patientID, "attempt": attempt}).Warn("record revision moved, retrying append")
	}
	return nil, fmt.Errorf("%w: append to %s: %w", models.ErrPersistence, patientID, models.ErrConflict)
}

// create inserts a fresh record seeded from the directory. created is false
// when another writer inserted the row first.
func (s *Store) create(ctx context.Context, patientID string, entry models.RecordEntry) (*models.PatientRecord, bool, error) {
	p, err := s.people.Get(ctx, patientID)
	if err != nil {
		return nil, false, err
	}
	notes := []models.RecordEntry{entry}
	raw, err := json.Marshal(notes)
	if err != nil {
		return nil, false, fmt.Errorf("%w: encode notes: %v", models.ErrPersistence, err)
	}
	row := recordRow{
		PatientID:   patientID,
		PatientName: p.FullName(),
		Age:         p.Age,
		Gender:      p.Gender,
		Weight:      p.Weight,
		BloodType:   p.BloodType,
		DateCreated: entry.Timestamp,
		Notes:       raw,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		var n int64
		if cerr := s.db.WithContext(ctx).Model(&recordRow{}).Where("patient_id = ?", patientID).Count(&n).Error; cerr == nil && n > 0 {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: create record %s: %v", models.ErrPersistence, patientID, err)
	}
	return row.toModel(notes), true, nil
}

// Get returns the patient's record, or models.ErrNotFound.
func (s *Store) Get(ctx context.Context, patientID string) (*models.PatientRecord, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Where("patient_id = ?", patientID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("record %s: %w", patientID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load record %s: %v", models.ErrPersistence, patientID, err)
	}
	notes, err := decodeNotes(row.Notes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return row.toModel(notes), nil
}

func (s *Store) LatestPriority(ctx context.Context, patientID string) (int, error) {
	rec, err := s.Get(ctx, patientID)
	if err != nil {
		return 0, err
	}
	latest := rec.Latest()
	if latest == nil {
		return 0, fmt.Errorf("record %s has no entries: %w", patientID, models.ErrNotFound)
	}
	return latest.Priority, nil
}

func decodeNotes(raw datatypes.JSON) ([]models.RecordEntry, error) {
	var notes []models.RecordEntry
	if len(raw) == 0 {
		return notes, nil
	}
	if err := json.Unmarshal(raw, &notes); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return notes, nil
}

func (r recordRow) toModel(notes []models.RecordEntry) *models.PatientRecord {
	return &models.PatientRecord{
		PatientID:   r.PatientID,
		PatientName: r.PatientName,
		Age:         r.Age,
		Gender:      r.Gender,
		Weight:      r.Weight,
		BloodType:   r.BloodType,
		DoctorID:    r.DoctorID,
		DateCreated: r.DateCreated,
		Notes:       notes,
		Revision:    r.Revision,
	}
}
