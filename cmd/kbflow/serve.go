package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mkravets/kbflow/internal/api"
	"github.com/mkravets/kbflow/internal/config"
	"github.com/mkravets/kbflow/internal/kb"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local workflow service (HTTP + MCP)",
	Long: `Run the local workflow service. HTTP endpoints are served on
localhost behind a bearer token; MCP tools are served on stdio.

The token is taken from --token, then KBFLOW_SERVER_TOKEN, then
generated for the lifetime of the process and printed on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServe(token, withMCP)
	},
}

func init() {
	serveCmd.Flags().String("token", "", "bearer token for the HTTP API")
	serveCmd.Flags().Bool("mcp", true, "serve MCP tools on stdio")
}

func runServe(token string, withMCP bool) error {
	fmt.Fprintf(os.Stderr, "kbflow version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if token == "" {
		token = os.Getenv("KBFLOW_SERVER_TOKEN")
	}
	if token == "" {
		token = uuid.NewString()
		printWarning("No API token configured, generated one for this run")
		printStatus("API token", "%s", token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open upload history.
	store, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: closing history: %v\n", err)
			}
		}()
	}

	// Build the knowledge base client and workflow.
	kbClient := kb.New(cfg.KnowledgeBase.APIKey, kb.WithBaseURL(cfg.KnowledgeBase.BaseURL))
	wf := newWorkflow(cfg, kbClient, recorderOrNil(store))

	deps := api.Deps{
		KB:       kbClient,
		Workflow: wf,
		Token:    token,
	}
	if store != nil {
		deps.History = store
	}
	handler := api.NewHandler(deps)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Build and start the MCP server (stdio transport in a goroutine).
	if withMCP {
		mcpDeps := api.MCPDeps{KB: kbClient, Workflow: wf}
		if store != nil {
			mcpDeps.History = store
		}
		stdioSrv := server.NewStdioServer(api.NewMCPServer(mcpDeps))
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("kbflow listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
