package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json")
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", log.GetLevel())
	}
	log.WithField("patient_id", "p1").Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not json: %v (%q)", err, buf.String())
	}
	if line["patient_id"] != "p1" || line["msg"] != "hello" {
		t.Fatalf("unexpected fields: %v", line)
	}
}

func TestNewWithWriterBadLevel(t *testing.T) {
	log := NewWithWriter(&bytes.Buffer{}, "loud", "text")
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %v, want info fallback", log.GetLevel())
	}
}
