package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/nursecheck-triage/emotion"
	"github.com/maastricht-university/nursecheck-triage/lock"
	"github.com/maastricht-university/nursecheck-triage/models"
)

type TranscriptSource interface {
	GetLatestSession(ctx context.Context, patientID string) (*models.Session, error)
}

type Directory interface {
	Get(ctx context.Context, patientID string) (*models.Patient, error)
	SetPriorityAndNote(ctx context.Context, patientID string, priority int, note string) error
}

type RecordStore interface {
	Append(ctx context.Context, patientID string, entry models.RecordEntry) (*models.PatientRecord, error)
}

type Classifier interface {
	Classify(ctx context.Context, transcript string, top models.TopEmotions) (models.UrgencyVerdict, error)
}

type Notifier interface {
	Send(ctx context.Context, nurseID, patientID string) error
}

type Renderer interface {
	Render(patient *models.Patient, rec *models.PatientRecord) (string, error)
}

// Deps are the collaborators a pipeline drives. Renderer is optional, and
// run reports are only written when ReportsDir is set.
type Deps struct {
	Source     TranscriptSource
	Directory  Directory
	Records    RecordStore
	Classifier Classifier
	Notifier   Notifier
	Renderer   Renderer
	Locker     lock.Locker
	ReportsDir string
	Log        *logrus.Entry
}

type Pipeline struct {
	d   Deps
	log *logrus.Entry
	now func() time.Time
}

func NewPipeline(d Deps) *Pipeline {
	if d.Locker == nil {
		d.Locker = lock.NewLocal()
	}
	return &Pipeline{d: d, log: d.Log.WithField("component", "pipeline"), now: time.Now}
}

// Run triages the patient's most recent conversation session.
func (p *Pipeline) Run(ctx context.Context, patientID string) (*Result, error) {
	res, log := p.begin(patientID)
	sess, err := p.d.Source.GetLatestSession(ctx, patientID)
	if err != nil {
		res, err = p.fail(res, log, StateTranscriptFetched, err)
		p.report(res, log, err)
		return res, err
	}
	res, err = p.runSession(ctx, res, log, sess)
	p.report(res, log, err)
	return res, err
}

// RunSession triages an already fetched session.
func (p *Pipeline) RunSession(ctx context.Context, patientID string, sess *models.Session) (*Result, error) {
	res, log := p.begin(patientID)
	res, err := p.runSession(ctx, res, log, sess)
	p.report(res, log, err)
	return res, err
}

func (p *Pipeline) begin(patientID string) (*Result, *logrus.Entry) {
	res := &Result{RunID: uuid.NewString(), PatientID: patientID}
	res.enter(StateIdle)
	return res, p.log.WithFields(logrus.Fields{"patient_id": patientID, "run_id": res.RunID})
}

func (p *Pipeline) runSession(ctx context.Context, res *Result, log *logrus.Entry, sess *models.Session) (*Result, error) {
	patientID := res.PatientID

	// IDLE -> TRANSCRIPT_FETCHED
	if sess == nil || len(sess.Turns) == 0 {
		log.Info("no conversation")
		res.NoConversation = true
		res.enter(StateDone)
		return res, nil
	}
	res.SessionID = sess.ID
	log = log.WithField("session_id", sess.ID)
	if !sess.Closed {
		return p.fail(res, log, StateTranscriptFetched, models.ErrSessionOpen)
	}
	if err := emotion.Validate(sess.Turns); err != nil {
		return p.fail(res, log, StateTranscriptFetched, err)
	}
	patient, err := p.d.Directory.Get(ctx, patientID)
	if err != nil {
		return p.fail(res, log, StateTranscriptFetched, err)
	}
	transcript := Transcript(sess.Turns)
	res.enter(StateTranscriptFetched)

	// -> EMOTION_AGGREGATED
	profile := emotion.Aggregate(sess.Turns)
	res.TopEmotions = emotion.TopK(profile, emotion.DefaultTopK)
	res.enter(StateEmotionAggregated)
	log.WithField("top_emotions", res.TopEmotions).Debug("emotions aggregated")

	// -> CLASSIFIED
	verdict, err := p.d.Classifier.Classify(ctx, transcript, res.TopEmotions)
	if err != nil {
		return p.fail(res, log, StateClassified, err)
	}
	res.Verdict = &verdict
	res.enter(StateClassified)

	// -> PERSISTED, one writer per patient
	if err := p.persist(ctx, res, log, patient, transcript, verdict); err != nil {
		return p.fail(res, log, StatePersisted, err)
	}
	res.enter(StatePersisted)

	// -> ALERTED
	if verdict.NeedsVisit {
		res.Alerted = true
		if err := p.alert(ctx, patient); err != nil {
			res.AlertError = err.Error()
			log.WithError(err).WithField("nurse_id", patient.AssignNurseID).Warn("nurse alert failed")
		}
		res.enter(StateAlerted)
	}

	res.enter(StateDone)
	log.WithFields(logrus.Fields{
		"priority":    verdict.Priority,
		"needs_visit": verdict.NeedsVisit,
	}).Info("triage complete")
	return res, nil
}

// persist appends the entry, mirrors it to the directory and re-renders the
// record document, all while holding the patient's lock so a slower run can
// not overwrite a newer document.
func (p *Pipeline) persist(ctx context.Context, res *Result, log *logrus.Entry, patient *models.Patient, transcript string, v models.UrgencyVerdict) error {
	release, err := p.d.Locker.Lock(ctx, res.PatientID)
	if err != nil {
		return fmt.Errorf("%w: acquire patient lock: %v", models.ErrPersistence, err)
	}
	defer release()

	entry := models.RecordEntry{
		ID:        uuid.NewString(),
		Content:   transcript,
		Note:      v.Summary,
		Timestamp: p.now().UTC(),
		Emotions:  res.TopEmotions,
		Priority:  v.Priority,
	}
	rec, err := p.d.Records.Append(ctx, res.PatientID, entry)
	if err != nil {
		return err
	}
	res.Entry = &entry

	if err := p.d.Directory.SetPriorityAndNote(ctx, res.PatientID, v.Priority, v.Summary); err != nil {
		return fmt.Errorf("%w: mirror priority to directory: %v", models.ErrPersistence, err)
	}

	if p.d.Renderer != nil {
		if path, err := p.d.Renderer.Render(patient, rec); err != nil {
			log.WithError(err).Warn("record document not rendered")
		} else {
			res.DocumentPath = path
		}
	}
	return nil
}

// alert never fails the run; the caller only logs the error.
func (p *Pipeline) alert(ctx context.Context, patient *models.Patient) error {
	if patient.AssignNurseID == "" {
		return fmt.Errorf("patient %s has no assigned nurse", patient.ID)
	}
	return p.d.Notifier.Send(ctx, patient.AssignNurseID, patient.ID)
}

func (p *Pipeline) fail(res *Result, log *logrus.Entry, stage State, err error) (*Result, error) {
	res.FailedStage = stage
	res.enter(StateFailed)
	log.WithError(err).WithField("stage", stage).Error("triage failed")
	return res, &StageError{Stage: stage, Err: err}
}

func (p *Pipeline) report(res *Result, log *logrus.Entry, runErr error) {
	if p.d.ReportsDir == "" {
		return
	}
	path, err := writeReport(p.d.ReportsDir, res, runErr, p.now())
	if err != nil {
		log.WithError(err).Warn("run report not written")
		return
	}
	log.WithField("path", path).Debug("run report written")
}

// Transcript renders turns as "Patient: ..." / "Nurse: ..." lines.
func Transcript(turns []models.ConversationTurn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Role == models.SpeakerPatient {
			b.WriteString("Patient: ")
		} else {
			b.WriteString("Nurse: ")
		}
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}
