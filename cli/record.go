package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/nursecheck-triage/models"
)

var recordCmd = &cobra.Command{
	Use:   "record <patient-id>",
	Short: "Print a patient's record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStores()
		if err != nil {
			return err
		}
		defer a.close()

		rec, err := a.recs.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		raw, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <patient-id>",
	Short: "Render a patient's record to PDF under paths.records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStores()
		if err != nil {
			return err
		}
		defer a.close()

		rec, err := a.recs.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		patient, err := a.dir.Get(cmd.Context(), args[0])
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		path, err := a.renderer.Render(patient, rec)
		if err != nil {
			return fmt.Errorf("render %s: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := conf.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	},
}

func init() {
	rootCmd.AddCommand(recordCmd, renderCmd, configCmd)
}
