package urgency

import (
	"fmt"
	"strings"

	"github.com/maastricht-university/nursecheck-triage/models"
)

const (
	negativeEmotionPrompt = "From these emotion, determine if there are any negative emotions. Only return True or False.\n %s"

	summaryPrompt = "From the conversation, generate a summarized note on patient's health. Don't overlook anything. Return the summary in 1 line. \n %s"

	priorityPrompt = "Process the priority of the patient from scale 1-10 based on the conversation and priority.  Return in format <priority number> \n Conversation: %s \n Emotion: %s"
)

// FormatEmotions renders top emotions as {'sadness': 8.0, 'anger': 6.0}.
func FormatEmotions(top models.TopEmotions) string {
	parts := make([]string, 0, len(top))
	for _, e := range top {
		parts = append(parts, fmt.Sprintf("'%s': %g", e.Label, e.Score))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func NeedsVisitPrompt(top models.TopEmotions) string {
	return fmt.Sprintf(negativeEmotionPrompt, FormatEmotions(top))
}

func SummaryPrompt(transcript string) string {
	return fmt.Sprintf(summaryPrompt, transcript)
}

func PriorityPrompt(transcript string, top models.TopEmotions) string {
	return fmt.Sprintf(priorityPrompt, transcript, FormatEmotions(top))
}
