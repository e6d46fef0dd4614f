// go_stance: YouTube comment stance analysis over MCP and REST.
//
// Classifies each top-level comment of a video as agree, disagree or neutral with a
// remote LLM, falling back to a local heuristic while the LLM is rate limited.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_stance/internal/engine"
	"github.com/anatolykoptev/go_stance/internal/httpapi"
	"github.com/anatolykoptev/go_stance/internal/stanceserver"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "go_stance",
	Short: "YouTube comment stance analysis",
	Long: `go_stance fetches the comments of a YouTube video and classifies each one as
agree, disagree or neutral relative to the video. It serves an MCP tool and a REST API.`,
	PersistentPreRun: func(*cobra.Command, []string) { setupLogging() },
	RunE:             runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server and the REST API (default)",
	RunE:  runServe,
}

var analyzeTitle string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <video-url>",
	Short: "Analyze one video and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	_ = godotenv.Load()

	rootCmd.AddCommand(serveCmd, analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeTitle, "title", "t", "", "Video title used as classification context")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	slog.Info("starting go_stance",
		slog.String("mcp_port", cfg.MCPPort),
		slog.String("api_addr", cfg.APIAddr),
		slog.Bool("remote_classifier", cfg.Engine.LLMAPIKey != ""),
	)

	api := httpapi.New(httpapi.Config{
		Addr:           cfg.APIAddr,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimit:      cfg.APIRateLimit,
		RequestLogging: cfg.RequestLogging,
		Version:        version,
	}, app.service, app.sink)
	go func() {
		if err := api.Start(); err != nil {
			slog.Error("rest api failed", slog.Any("error", err))
		}
	}()
	go func() {
		<-ctx.Done()
		if err := api.Shutdown(); err != nil {
			slog.Warn("rest api shutdown", slog.Any("error", err))
		}
	}()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_stance",
		Version: version,
	}, nil)
	n := stanceserver.RegisterTools(server, stanceserver.Deps{
		Analyzer:   app.service,
		Classifier: app.classifier,
		History:    app.sink,
	})
	slog.Info("tools registered", slog.Int("count", n))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_stance",
		Version:      version,
		Port:         cfg.MCPPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		return err
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	app, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.service.Analyze(cmd.Context(), engine.AnalyzeInput{
		VideoURL:   args[0],
		VideoTitle: analyzeTitle,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
