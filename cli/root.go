package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/nursecheck-triage/config"
	"github.com/maastricht-university/nursecheck-triage/logging"
)

var (
	cfgPath string

	conf *config.Root
	log  *logrus.Entry
)

var rootCmd = &cobra.Command{
	Use:   "nursecheck",
	Short: "Triage nurse-patient check-in conversations",
	Long: `nursecheck turns a captured nurse-patient conversation into an emotion
profile, an urgency verdict and an append-only patient record, and alerts the
assigned nurse when a visit is needed.

Configuration is read from --config, config/<CONFIG_ENV>/config.yaml or
config.yaml, with TRIAGE_* environment variables taking precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		conf = c
		log = logrus.NewEntry(logging.New(c.Pipeline.LogLvl, c.Pipeline.LogFormat)).
			WithField("app", c.Pipeline.Name)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", conf.Pipeline.Name, conf.Pipeline.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Long-running commands stop when ctx is done.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
