package urgency

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maastricht-university/nursecheck-triage/models"
)

// Oracle is the external text-classification model.
type Oracle interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

type Classifier struct {
	oracle Oracle
	log    *logrus.Entry
}

func NewClassifier(oracle Oracle, log *logrus.Entry) *Classifier {
	return &Classifier{oracle: oracle, log: log.WithField("component", "urgency")}
}

// Classify issues the needs-visit, summary and priority prompts concurrently
// and joins them into one verdict. Oracle failures wrap
// models.ErrOracleUnavailable; unparseable replies are *FormatError.
func (c *Classifier) Classify(ctx context.Context, transcript string, top models.TopEmotions) (models.UrgencyVerdict, error) {
	var visitRaw, summaryRaw, priorityRaw string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.ask(gctx, "needs_visit", NeedsVisitPrompt(top), &visitRaw)
	})
	g.Go(func() error {
		return c.ask(gctx, "summary", SummaryPrompt(transcript), &summaryRaw)
	})
	g.Go(func() error {
		return c.ask(gctx, "priority", PriorityPrompt(transcript, top), &priorityRaw)
	})
	if err := g.Wait(); err != nil {
		return models.UrgencyVerdict{}, err
	}

	needsVisit, err := ParseNeedsVisit(visitRaw)
	if err != nil {
		return models.UrgencyVerdict{}, err
	}
	priority, err := ParsePriority(priorityRaw)
	if err != nil {
		return models.UrgencyVerdict{}, err
	}

	v := models.UrgencyVerdict{
		NeedsVisit: needsVisit,
		Priority:   priority,
		Summary:    ParseSummary(summaryRaw),
	}
	c.log.WithFields(logrus.Fields{
		"needs_visit": v.NeedsVisit,
		"priority":    v.Priority,
	}).Debug("classified")
	return v, nil
}

func (c *Classifier) ask(ctx context.Context, field, prompt string, out *string) error {
	resp, err := c.oracle.Classify(ctx, prompt)
	if err != nil {
		if errors.Is(err, models.ErrOracleUnavailable) {
			return fmt.Errorf("%s: %w", field, err)
		}
		return fmt.Errorf("%s: %w: %v", field, models.ErrOracleUnavailable, err)
	}
	*out = resp
	return nil
}
