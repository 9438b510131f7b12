package cli

import (
	"github.com/spf13/cobra"

	"github.com/maastricht-university/nursecheck-triage/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the triage HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		addr := conf.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		h := api.NewHandler(a.pipeline, a.recs, a.dir, log)
		return api.Serve(cmd.Context(), addr, api.NewRouter(h), log)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
