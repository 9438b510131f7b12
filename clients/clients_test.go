package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maastricht-university/nursecheck-triage/config"
	"github.com/maastricht-university/nursecheck-triage/logging"
	"github.com/maastricht-university/nursecheck-triage/models"
)

func TestDecodeEmotionFeaturesKeepsOrder(t *testing.T) {
	scores, err := DecodeEmotionFeatures(`{"Sadness": 0.5, "Anger": "0.25", "Calmness": 1}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []models.EmotionScore{{Label: "Sadness", Score: 0.5}, {Label: "Anger", Score: 0.25}, {Label: "Calmness", Score: 1}}
	if len(scores) != len(want) {
		t.Fatalf("scores = %+v", scores)
	}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("scores[%d] = %+v, want %+v", i, scores[i], want[i])
		}
	}

	for _, bad := range []string{`[]`, `{"a": "high"}`, `{"a": {"b": 1}}`, `not json`} {
		if _, err := DecodeEmotionFeatures(bad); err == nil {
			t.Fatalf("DecodeEmotionFeatures(%q) accepted", bad)
		}
	}
}

func TestDecodeEmotionFeaturesRejectsOutOfDomain(t *testing.T) {
	for _, bad := range []string{
		`{"sadness": "NaN"}`,
		`{"sadness": "Inf"}`,
		`{"sadness": "-Inf"}`,
		`{"sadness": 0.5, "anger": -4}`,
		`{"anger": "-0.1"}`,
	} {
		scores, err := DecodeEmotionFeatures(bad)
		if !errors.Is(err, models.ErrInvalidEmotion) {
			t.Fatalf("DecodeEmotionFeatures(%s) = %+v, %v; want invalid emotion", bad, scores, err)
		}
	}
	if _, err := DecodeEmotionFeatures(`{"calmness": 0}`); err != nil {
		t.Fatalf("zero intensity rejected: %v", err)
	}
}

func transcriptServer(t *testing.T, chats string, detail map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Hume-Api-Key"); got != "k" {
			t.Errorf("api key header = %q", got)
		}
		switch {
		case r.URL.Path == "/v0/evi/chats":
			if r.URL.Query().Get("page_size") != "45" {
				t.Errorf("page_size = %q", r.URL.Query().Get("page_size"))
			}
			io.WriteString(w, chats)
		case strings.HasPrefix(r.URL.Path, "/v0/evi/chats/"):
			id := strings.TrimPrefix(r.URL.Path, "/v0/evi/chats/")
			body, ok := detail[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			io.WriteString(w, body)
		case r.URL.Path == "/detect":
			io.WriteString(w, `{"emotions":[{"label":"fear","score":0.4}],"dominant_emotion":"fear"}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestTranscriptSourceLatestSession(t *testing.T) {
	srv := transcriptServer(t,
		`{"chats_page":[{"id":"c1","status":"COMPLETE"},{"id":"c2","status":"COMPLETE","end_timestamp":1716244940762}]}`,
		map[string]string{
			"c2": `{"id":"c2","status":"COMPLETE","end_timestamp":1716244940762,"events_page":[
				{"role":"USER","message_text":"I feel hopeless","emotion_features":"{\"sadness\": 5.0}"},
				{"role":"AGENT","message_text":"I'm sorry to hear that.","emotion_features":"{\"sadness\": 3.0}"},
				{"role":"SYSTEM","message_text":"","emotion_features":null},
				{"role":"USER","message_text":"Yes","emotion_features":null}
			]}`,
		})
	defer srv.Close()

	src := NewTranscriptSource(NewHTTP(), config.Transcript{Service: config.Service{URL: srv.URL, APIKey: "k"}}, srv.URL, logging.Discard())
	sess, err := src.GetLatestSession(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetLatestSession: %v", err)
	}
	if sess.ID != "c2" || !sess.Closed {
		t.Fatalf("session = %+v", sess)
	}
	if len(sess.Turns) != 3 {
		t.Fatalf("turns = %d, want 3 (empty events skipped)", len(sess.Turns))
	}
	if sess.Turns[0].Role != models.SpeakerPatient || sess.Turns[1].Role != models.SpeakerCaregiver {
		t.Fatalf("roles = %s, %s", sess.Turns[0].Role, sess.Turns[1].Role)
	}
	if sess.Turns[1].Emotions[0].Score != 3.0 {
		t.Fatalf("turn 1 emotions = %+v", sess.Turns[1].Emotions)
	}
	if len(sess.Turns[2].Emotions) != 1 || sess.Turns[2].Emotions[0].Label != "fear" {
		t.Fatalf("text emotion fallback not applied: %+v", sess.Turns[2].Emotions)
	}
}

func TestTranscriptSourceMatchPatientAndEmpty(t *testing.T) {
	srv := transcriptServer(t,
		`{"chats_page":[{"id":"c1","custom_session_id":"p1","status":"ACTIVE"},{"id":"c2","custom_session_id":"p2","status":"COMPLETE"}]}`,
		map[string]string{
			"c1": `{"id":"c1","status":"ACTIVE","events_page":[{"role":"USER","message_text":"hi","emotion_features":"{\"joy\": 1}"}]}`,
		})
	defer srv.Close()

	cfg := config.Transcript{Service: config.Service{URL: srv.URL, APIKey: "k"}, MatchPatient: true}
	src := NewTranscriptSource(NewHTTP(), cfg, "", logging.Discard())

	sess, err := src.GetLatestSession(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetLatestSession: %v", err)
	}
	if sess.ID != "c1" || sess.Closed {
		t.Fatalf("session = %+v, want open c1", sess)
	}

	none, err := src.GetLatestSession(context.Background(), "p9")
	if err != nil {
		t.Fatalf("GetLatestSession: %v", err)
	}
	if len(none.Turns) != 0 || !none.Closed {
		t.Fatalf("absent session = %+v", none)
	}
}

type roster struct{}

func (roster) Get(_ context.Context, id string) (*models.Patient, error) {
	if id != "p1" {
		return nil, models.ErrNotFound
	}
	return &models.Patient{ID: "p1", FirstName: "Alex", LastName: "Doan"}, nil
}

func (roster) GetNurse(_ context.Context, id string) (*models.Nurse, error) {
	if id != "n1" {
		return nil, models.ErrNotFound
	}
	return &models.Nurse{ID: "n1", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}, nil
}

func TestEmailNotifierSend(t *testing.T) {
	var got EmailReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Header.Get("Authorization") != "Bearer re_key" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		io.WriteString(w, `{"id":"msg_1"}`)
	}))
	defer srv.Close()

	cfg := config.Notify{Service: config.Service{URL: srv.URL, APIKey: "re_key"}, From: "alerts@example.com"}
	n := NewEmailNotifier(NewHTTP(), cfg, roster{}, logging.Discard())
	if err := n.Send(context.Background(), "n1", "p1"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Subject != "Urgent care alert for nurse Jane Doe" || got.To[0] != "jane@example.com" {
		t.Fatalf("email = %+v", got)
	}
	if !strings.Contains(got.HTML, "Alex Doan (ID: p1)") {
		t.Fatalf("html = %s", got.HTML)
	}

	if err := n.Send(context.Background(), "ghost", "p1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown nurse err = %v", err)
	}
}

func TestEmailNotifierUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewEmailNotifier(NewHTTP(), config.Notify{Service: config.Service{URL: srv.URL}}, roster{}, logging.Discard())
	err := n.Send(context.Background(), "n1", "p1")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want 429", err)
	}
}

func completionServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "yi-large" || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		fmt.Fprintf(w, `{"id":"c","object":"chat.completion","created":1,"model":"yi-large","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, reply)
	}))
}

func TestOracleClassify(t *testing.T) {
	srv := completionServer(t, "  True \n", http.StatusOK)
	defer srv.Close()

	o := NewOracle(config.Oracle{Service: config.Service{URL: srv.URL + "/v1", APIKey: "k"}, Model: "yi-large", TimeoutSeconds: 5})
	got, err := o.Classify(context.Background(), "are any negative?")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != "True" {
		t.Fatalf("reply = %q", got)
	}
}

func TestOracleUnavailable(t *testing.T) {
	srv := completionServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	o := NewOracle(config.Oracle{Service: config.Service{URL: srv.URL + "/v1", APIKey: "k"}, TimeoutSeconds: 5})
	if _, err := o.Classify(context.Background(), "x"); !errors.Is(err, models.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want oracle unavailable", err)
	}
}
