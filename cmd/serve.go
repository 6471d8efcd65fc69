package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/docserver"
	"github.com/Tiliavir/trivial-focus-tracker/internal/docstore"
	"github.com/Tiliavir/trivial-focus-tracker/internal/logging"
	"github.com/Tiliavir/trivial-focus-tracker/internal/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync document server",
	Long: `Serves the documents used by the http sync backend from a local
SQLite database. Tokens are configured under server.tokens.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	store, err := docstore.New(cfg.ServerDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := docserver.New(store, cfg.Server.Tokens,
		[]string{storage.TodoCollection, storage.EventCollection, storage.TimerCollection},
		logging.Component(logger, "docserver"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving documents on http://%s (Ctrl+C to stop)\n", addr)
	return srv.Run(ctx, addr)
}
