package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/nursecheck-triage/config"
	"github.com/maastricht-university/nursecheck-triage/emotion"
	"github.com/maastricht-university/nursecheck-triage/models"
)

// --- Transcript source (EVI chat history) ---
type chatSummary struct {
	ID              string `json:"id"`
	CustomSessionID string `json:"custom_session_id"`
	Status          string `json:"status"`
	StartTimestamp  int64  `json:"start_timestamp"`
	EndTimestamp    *int64 `json:"end_timestamp"`
}

type chatsPage struct {
	ChatsPage []chatSummary `json:"chats_page"`
}

type chatEvent struct {
	Role            string  `json:"role"`
	Type            string  `json:"type"`
	MessageText     string  `json:"message_text"`
	EmotionFeatures *string `json:"emotion_features"`
}

type chatDetail struct {
	chatSummary
	EventsPage []chatEvent `json:"events_page"`
}

// TranscriptSource reads completed conversation sessions from the voice
// service's chat history API.
type TranscriptSource struct {
	http       *HTTP
	cfg        config.Transcript
	emotionURL string
	log        *logrus.Entry
}

func NewTranscriptSource(h *HTTP, cfg config.Transcript, emotionURL string, log *logrus.Entry) *TranscriptSource {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 45
	}
	return &TranscriptSource{
		http:       h,
		cfg:        cfg,
		emotionURL: strings.TrimRight(emotionURL, "/"),
		log:        log.WithField("component", "transcript"),
	}
}

func (s *TranscriptSource) headers() map[string]string {
	if s.cfg.APIKey == "" {
		return nil
	}
	return map[string]string{"X-Hume-Api-Key": s.cfg.APIKey}
}

// GetLatestSession returns the most recent session for the patient. No
// session at all yields an empty, closed Session and no error.
func (s *TranscriptSource) GetLatestSession(ctx context.Context, patientID string) (*models.Session, error) {
	base := strings.TrimRight(s.cfg.URL, "/")
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(s.cfg.PageSize))
	q.Set("page_number", "1")

	var page chatsPage
	if err := s.http.doJSON(ctx, "transcript list", http.MethodGet, base+"/v0/evi/chats?"+q.Encode(), s.headers(), nil, &page); err != nil {
		return nil, err
	}

	var latest *chatSummary
	for i := range page.ChatsPage {
		c := &page.ChatsPage[i]
		if s.cfg.MatchPatient && c.CustomSessionID != patientID {
			continue
		}
		latest = c
	}
	if latest == nil {
		return &models.Session{Closed: true}, nil
	}

	var detail chatDetail
	if err := s.http.doJSON(ctx, "transcript chat", http.MethodGet, base+"/v0/evi/chats/"+url.PathEscape(latest.ID), s.headers(), nil, &detail); err != nil {
		return nil, err
	}
	if detail.ID == "" {
		detail.ID = latest.ID
	}

	sess := &models.Session{ID: detail.ID, Closed: closed(detail.chatSummary)}
	for _, ev := range detail.EventsPage {
		if strings.TrimSpace(ev.MessageText) == "" {
			continue
		}
		turn := models.ConversationTurn{Role: speaker(ev.Role), Text: ev.MessageText}
		if ev.EmotionFeatures != nil && *ev.EmotionFeatures != "" {
			scores, err := DecodeEmotionFeatures(*ev.EmotionFeatures)
			if err != nil {
				return nil, fmt.Errorf("chat %s: %w", detail.ID, err)
			}
			turn.Emotions = scores
		}
		if len(turn.Emotions) == 0 && s.emotionURL != "" {
			scores, err := s.http.Emotion(ctx, s.emotionURL, ev.MessageText)
			if err != nil {
				s.log.WithError(err).WithField("session_id", detail.ID).Warn("text emotion detection failed")
			} else {
				turn.Emotions = scores
			}
		}
		sess.Turns = append(sess.Turns, turn)
	}
	return sess, nil
}

func closed(c chatSummary) bool {
	if c.EndTimestamp != nil && *c.EndTimestamp > 0 {
		return true
	}
	return c.Status != "" && !strings.EqualFold(c.Status, "ACTIVE")
}

func speaker(role string) models.Speaker {
	if strings.EqualFold(role, "USER") {
		return models.SpeakerPatient
	}
	return models.SpeakerCaregiver
}

// DecodeEmotionFeatures parses a JSON object of emotion -> intensity, keeping
// key order. Intensities may be numbers or numeric strings and must be finite
// and non-negative.
func DecodeEmotionFeatures(raw string) ([]models.EmotionScore, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("emotion features: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("emotion features: want object, got %v", tok)
	}

	var out []models.EmotionScore
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("emotion features: %w", err)
		}
		label, _ := kt.(string)
		vt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("emotion features %s: %w", label, err)
		}
		var score float64
		switch v := vt.(type) {
		case json.Number:
			score, err = v.Float64()
		case string:
			score, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		default:
			err = fmt.Errorf("unsupported value %v", vt)
		}
		if err != nil {
			return nil, fmt.Errorf("emotion features %s: %w", label, err)
		}
		if err := emotion.CheckScore(label, score); err != nil {
			return nil, fmt.Errorf("emotion features: %w", err)
		}
		out = append(out, models.EmotionScore{Label: label, Score: score})
	}
	return out, nil
}
