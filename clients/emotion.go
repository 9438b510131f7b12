package clients

import (
	"context"
	"net/http"

	"github.com/maastricht-university/nursecheck-triage/models"
)

// --- Emotion (/detect) ---
type EmoReq struct {
	Text string `json:"text"`
}
type EmoScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
type EmoResp struct {
	Emotions        []EmoScore `json:"emotions"`
	DominantEmotion string     `json:"dominant_emotion"`
}

// Emotion scores a single utterance from its text. Used for turns the
// transcript source delivered without prosody features.
func (h *HTTP) Emotion(ctx context.Context, url, text string) ([]models.EmotionScore, error) {
	var out EmoResp
	if err := h.doJSON(ctx, "emotion", http.MethodPost, url+"/detect", nil, EmoReq{Text: text}, &out); err != nil {
		return nil, err
	}
	scores := make([]models.EmotionScore, 0, len(out.Emotions))
	for _, e := range out.Emotions {
		scores = append(scores, models.EmotionScore{Label: e.Label, Score: e.Score})
	}
	return scores, nil
}
