package clients

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/nursecheck-triage/config"
	"github.com/maastricht-university/nursecheck-triage/models"
)

// Roster resolves the people an alert is about.
type Roster interface {
	Get(ctx context.Context, patientID string) (*models.Patient, error)
	GetNurse(ctx context.Context, nurseID string) (*models.Nurse, error)
}

// --- Notification (/emails) ---
type EmailReq struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type EmailResp struct {
	ID string `json:"id"`
}

// EmailNotifier alerts the assigned nurse through a transactional e-mail API.
type EmailNotifier struct {
	http   *HTTP
	cfg    config.Notify
	roster Roster
	log    *logrus.Entry
}

func NewEmailNotifier(h *HTTP, cfg config.Notify, roster Roster, log *logrus.Entry) *EmailNotifier {
	return &EmailNotifier{http: h, cfg: cfg, roster: roster, log: log.WithField("component", "notify")}
}

func (n *EmailNotifier) Send(ctx context.Context, nurseID, patientID string) error {
	nurse, err := n.roster.GetNurse(ctx, nurseID)
	if err != nil {
		return err
	}
	if nurse.Email == "" {
		return fmt.Errorf("nurse %s has no e-mail address", nurseID)
	}
	patient, err := n.roster.Get(ctx, patientID)
	if err != nil {
		return err
	}

	req := EmailReq{
		From:    n.cfg.From,
		To:      []string{nurse.Email},
		Subject: "Urgent care alert for nurse " + nurse.FullName(),
		HTML:    alertHTML(patient.FullName(), patientID),
	}
	headers := map[string]string{}
	if n.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + n.cfg.APIKey
	}
	var out EmailResp
	if err := n.http.doJSON(ctx, "notify", http.MethodPost, strings.TrimRight(n.cfg.URL, "/")+"/emails", headers, req, &out); err != nil {
		return err
	}
	n.log.WithFields(logrus.Fields{"patient_id": patientID, "nurse_id": nurseID, "message_id": out.ID}).Info("alert sent")
	return nil
}

func alertHTML(patientName, patientID string) string {
	return fmt.Sprintf(`<html>
    <ul>
        <li> Patient: %s (ID: %s)</li>
        <li> Status: Emergent </li>
        <li> Action Required: Immediate attention needed. Review patient details promptly and proceed with urgent care protocols. </li>
    </ul>
</html>`, html.EscapeString(patientName), html.EscapeString(patientID))
}
