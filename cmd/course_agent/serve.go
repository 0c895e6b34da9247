package main

import (
	"github.com/jonathan/course-ingest/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort     int
	serveDBURL    string
	serveInMemory bool
	serveOffline  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes upload, materialization and invite parsing endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 8080)")
	serveCmd.Flags().StringVar(&serveDBURL, "db-url", "", "Database URL (default DATABASE_URL)")
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "Keep records in memory instead of PostgreSQL")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "Extract with markdown heuristics instead of the LLM")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), appOptions{
		dbURL:     serveDBURL,
		requireDB: !serveInMemory,
		offline:   serveOffline,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}
	return server.New(server.Config{Port: port}, a.pipeline, a.log).Start()
}
