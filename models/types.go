package models

import "time"

type Speaker string

const (
	SpeakerPatient   Speaker = "PATIENT"
	SpeakerCaregiver Speaker = "CAREGIVER"
)

type EmotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ConversationTurn is one utterance of a captured session. Emotions keep the
// order the source reported them in.
type ConversationTurn struct {
	Role     Speaker        `json:"role"`
	Text     string         `json:"text"`
	Emotions []EmotionScore `json:"emotions"`
}

type Session struct {
	ID     string             `json:"session_id"`
	Turns  []ConversationTurn `json:"turns"`
	Closed bool               `json:"closed"`
}

// TopEmotions is at most five emotions, highest cumulative intensity first.
type TopEmotions []EmotionScore

type UrgencyVerdict struct {
	NeedsVisit bool   `json:"needs_visit"`
	Priority   int    `json:"priority"`
	Summary    string `json:"summary"`
}

type RecordEntry struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"` // full transcript
	Note      string      `json:"note"`    // one-line summary
	Timestamp time.Time   `json:"timestamp"`
	Emotions  TopEmotions `json:"emotions"`
	Priority  int         `json:"priority"`
}

type PatientRecord struct {
	PatientID   string        `json:"patient_id"`
	PatientName string        `json:"patient_name"`
	Age         int           `json:"age"`
	Gender      string        `json:"gender"`
	Weight      float64       `json:"weight"`
	BloodType   string        `json:"blood_type"`
	DoctorID    string        `json:"doctor_id,omitempty"`
	DateCreated time.Time     `json:"date_created"`
	Notes       []RecordEntry `json:"notes"`
	Revision    int64         `json:"revision"`
}

// Latest returns the most recently appended entry, or nil for an empty history.
func (r *PatientRecord) Latest() *RecordEntry {
	if r == nil || len(r.Notes) == 0 {
		return nil
	}
	return &r.Notes[len(r.Notes)-1]
}

// Patient is the directory view. Priority and Note mirror the latest record
// entry so the work queue can sort without reading histories.
type Patient struct {
	ID            string  `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Age           int     `json:"age"`
	DOB           string  `json:"dob"`
	Address       string  `json:"address"`
	Weight        float64 `json:"weight"`
	BloodType     string  `json:"blood_type"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email"`
	Gender        string  `json:"gender"`
	RoomNumber    string  `json:"room_number"`
	AssignNurseID string  `json:"assign_nurse_id"`
	Priority      int     `json:"priority"`
	Note          string  `json:"note"`
	Processed     bool    `json:"processed"`
}

func (p Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Nurse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Shift     string `json:"shift"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (n Nurse) FullName() string {
	if n.LastName == "" {
		return n.FirstName
	}
	return n.FirstName + " " + n.LastName
}

// SimilarCase is another patient whose latest note shares Score distinct words
// with the reference patient's note.
type SimilarCase struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Note      string `json:"note"`
	Score     int    `json:"score"`
}
