package emotion

import (
	"fmt"
	"math"
	"sort"

	"github.com/maastricht-university/nursecheck-triage/models"
)

const DefaultTopK = 5

// Profile holds cumulative per-emotion intensity for a session. Labels are
// remembered in first-seen order so ties rank deterministically.
type Profile struct {
	order  []string
	totals map[string]float64
}

func NewProfile() *Profile {
	return &Profile{totals: map[string]float64{}}
}

// Add folds one score into the running total for label.
func (p *Profile) Add(label string, score float64) {
	if _, ok := p.totals[label]; !ok {
		p.order = append(p.order, label)
	}
	p.totals[label] += score
}

func (p *Profile) Len() int { return len(p.order) }

func (p *Profile) Get(label string) (float64, bool) {
	v, ok := p.totals[label]
	return v, ok
}

// Labels returns labels in first-seen order.
func (p *Profile) Labels() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Map returns a copy of the totals.
func (p *Profile) Map() map[string]float64 {
	out := make(map[string]float64, len(p.totals))
	for k, v := range p.totals {
		out[k] = v
	}
	return out
}

// CheckScore rejects intensities that cannot be summed into a profile:
// negative, NaN or infinite values.
func CheckScore(label string, score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return fmt.Errorf("%w: %s = %v", models.ErrInvalidEmotion, label, score)
	}
	return nil
}

// Validate checks every score of every turn with CheckScore.
func Validate(turns []models.ConversationTurn) error {
	for i, t := range turns {
		for _, e := range t.Emotions {
			if err := CheckScore(e.Label, e.Score); err != nil {
				return fmt.Errorf("turn %d: %w", i, err)
			}
		}
	}
	return nil
}

// Aggregate sums every turn's emotion scores into a profile. No
// normalization, clipping or decay is applied.
func Aggregate(turns []models.ConversationTurn) *Profile {
	p := NewProfile()
	for _, t := range turns {
		for _, e := range t.Emotions {
			p.Add(e.Label, e.Score)
		}
	}
	return p
}

// TopK ranks the profile by descending total and keeps the first k, each
// rounded to two decimals. Ties keep first-seen order.
func TopK(p *Profile, k int) models.TopEmotions {
	if p == nil || k <= 0 {
		return models.TopEmotions{}
	}
	labels := p.Labels()
	sort.SliceStable(labels, func(i, j int) bool {
		return p.totals[labels[i]] > p.totals[labels[j]]
	})
	if len(labels) > k {
		labels = labels[:k]
	}
	out := make(models.TopEmotions, 0, len(labels))
	for _, l := range labels {
		out = append(out, models.EmotionScore{Label: l, Score: round2(p.totals[l])})
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
