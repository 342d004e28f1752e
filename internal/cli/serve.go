package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"loopbuilder/internal/logging"
	"loopbuilder/internal/server"
)

var (
	serveAddr    string
	serveDataDir string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the build job HTTP API",
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&serveDataDir, "data-dir", "", "Directory for job workspaces and the job database (default: <root>/data)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	dataDir := serveDataDir
	if dataDir == "" {
		base := rootDir
		if base == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			base = cwd
		}
		dataDir = filepath.Join(base, "data")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(dataDir, "server.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open server log: %w", err)
	}
	defer logFile.Close()

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log := logging.NewWriter(level, console, logFile)

	store, err := server.OpenJobStore(filepath.Join(dataDir, "jobs.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	manager := server.NewManager(store, dataDir, log, nil)
	handler := server.NewHandler(manager, log)
	router := server.NewRouter(handler)

	log.Info().Str("addr", serveAddr).Str("data", dataDir).Msg("job server listening")
	return http.ListenAndServe(serveAddr, server.WrapCORS(router))
}
