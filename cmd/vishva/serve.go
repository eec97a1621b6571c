package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vishva-ai/vishva/internal/config"
	"github.com/vishva-ai/vishva/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API server",
	Long: `Serve the orchestration engine over HTTP.

Endpoints:
  GET  /                              health check
  POST /api/process-query             plan a query into a task
  GET  /api/tasks/:task_id            fetch a planned task
  WS   /api/task-execution/:task_id   execute and stream status frames`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}

		srv := server.New(cfg.Server, eng.planner, eng.orchestrator)
		return srv.Run()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
}
