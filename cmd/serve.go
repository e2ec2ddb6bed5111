package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davell/repopatch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Start the repopatch file server",
	Long: `Start the HTTP server that exposes directory listing, file content,
and patch application to repopatch clients.
By default it listens on port 3000 and resolves the default directory
listing against the working directory; pass a directory argument to
serve from there instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := os.Chdir(args[0]); err != nil {
				return fmt.Errorf("chdir: %w", err)
			}
		}
		port := viper.GetInt("serve.port")

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		srv := server.New(logger, port)

		addr := fmt.Sprintf(":%d", port)
		logger.Info("listening", "addr", addr)
		return http.ListenAndServe(addr, srv.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 3000, "port to listen on")
	_ = viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
}
