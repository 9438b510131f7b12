package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// Watch polls the transcript source until a closed session other than after
// appears for the patient, then triages it. Transient fetch errors are logged
// and retried on the next tick.
func (p *Pipeline) Watch(ctx context.Context, patientID string, interval time.Duration, after string) (*Result, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive, got %s", interval)
	}
	log := p.log.WithField("patient_id", patientID)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		sess, err := p.d.Source.GetLatestSession(ctx, patientID)
		switch {
		case err != nil:
			log.WithError(err).Warn("poll failed")
		case sess != nil && sess.Closed && len(sess.Turns) > 0 && sess.ID != after:
			log.WithField("session_id", sess.ID).Info("closed session found")
			return p.RunSession(ctx, patientID, sess)
		default:
			log.Debug("waiting for a closed session")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
