package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/nursecheck-triage/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	urgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var queueCmd = &cobra.Command{
	Use:   "queue [nurse-id]",
	Short: "Show a nurse's work queue",
	Long: `queue lists the patients assigned to a nurse, or every patient when no
nurse is given. Unprocessed patients come first, each group ordered by
priority from highest to lowest.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStores()
		if err != nil {
			return err
		}
		defer a.close()

		var nurseID string
		if len(args) == 1 {
			nurseID = args[0]
		}
		patients, err := a.dir.Queue(cmd.Context(), nurseID)
		if err != nil {
			return fmt.Errorf("fetching queue: %w", err)
		}
		if len(patients) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No patients assigned.")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), queueTable(patients))
		return nil
	},
}

var processedCmd = &cobra.Command{
	Use:   "processed <patient-id>",
	Short: "Toggle a patient's processed flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStores()
		if err != nil {
			return err
		}
		defer a.close()

		processed, err := a.dir.ToggleProcessed(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s processed=%t\n", args[0], processed)
		return nil
	},
}

func priorityStyle(p models.Patient) lipgloss.Style {
	switch {
	case p.Processed:
		return doneStyle
	case p.Priority >= 8:
		return urgentStyle
	case p.Priority >= 5:
		return mediumStyle
	default:
		return lipgloss.NewStyle()
	}
}

func queueTable(patients []models.Patient) string {
	const row = "  %-36s %-24s %-4s %-6s %s"
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf(row, "ID", "NAME", "PRI", "ROOM", "NOTE")))
	b.WriteByte('\n')
	for _, p := range patients {
		note := p.Note
		if p.Processed {
			note = "(processed) " + note
		}
		b.WriteString(priorityStyle(p).Render(fmt.Sprintf(row, p.ID, p.FullName(), strconv.Itoa(p.Priority), p.RoomNumber, note)))
		b.WriteByte('\n')
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(queueCmd, processedCmd)
}
