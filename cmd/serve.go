package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moghouse/gearsweep/internal/output"
	"github.com/moghouse/gearsweep/internal/server"
	"github.com/moghouse/gearsweep/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gearsweep web interface",
	Long:  `Start a local web server to work through the checklist in a browser.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = viper.GetString("listen")
		}
		noBrowser, _ := cmd.Flags().GetBool("no-browser")
		user, _ := cmd.Flags().GetString("username")
		pass, _ := cmd.Flags().GetString("password")

		store, err := openStore()
		if err != nil {
			return err
		}
		hist := openHistory()
		defer hist.Close()

		if !noBrowser {
			url := "http://" + addr
			go func() {
				// Give the listener a moment to come up.
				time.Sleep(300 * time.Millisecond)
				if err := utils.OpenBrowser(url); err != nil {
					utils.Log.Debugf("Could not open browser: %s", err)
					output.PrintInfo("Open %s in your browser", url)
				}
			}()
		}

		srv := server.New(store, hist, analyzerConfig(), user, pass)
		return srv.Start(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "b", "", "Address to bind the server to (default 127.0.0.1:8050)")
	serveCmd.Flags().Bool("no-browser", false, "Do not open the browser automatically")
	serveCmd.Flags().StringP("username", "u", "", "Username for basic auth (optional)")
	serveCmd.Flags().StringP("password", "p", "", "Password for basic auth (optional)")
}
