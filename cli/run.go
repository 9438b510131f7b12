package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/nursecheck-triage/orchestrator"
)

var (
	watchInterval time.Duration
	watchAfter    string
)

var runCmd = &cobra.Command{
	Use:   "run <patient-id>",
	Short: "Triage the patient's latest conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.pipeline.Run(cmd.Context(), args[0])
		if res != nil {
			printResult(cmd.OutOrStdout(), res)
		}
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <patient-id>",
	Short: "Wait for the next finished conversation, then triage it",
	Long: `watch polls the transcript source until a closed session appears whose id
differs from --after, and runs the triage pipeline on it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.pipeline.Watch(cmd.Context(), args[0], watchInterval, watchAfter)
		if res != nil {
			printResult(cmd.OutOrStdout(), res)
		}
		return err
	},
}

func printResult(w io.Writer, res *orchestrator.Result) {
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%+v\n", res)
		return
	}
	fmt.Fprintln(w, string(raw))
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "poll interval")
	watchCmd.Flags().StringVar(&watchAfter, "after", "", "ignore this session id (the last one already triaged)")
	rootCmd.AddCommand(runCmd, watchCmd)
}
