package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/mkowalczyk/pantry-tracker/internal/audit"
	"github.com/mkowalczyk/pantry-tracker/internal/inventory"
	"github.com/mkowalczyk/pantry-tracker/internal/llm"
	"github.com/mkowalczyk/pantry-tracker/internal/ocr"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("pantry-tracker")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "pantry-tracker.db", "Inventory database file path")
		auditPath   = fs.StringLong("audit-db", "pantry-audit.db", "Audit log file path")
		storagePath = fs.StringLong("storage", "./receipts", "Storage directory for uploaded receipt files")
		backend     = fs.StringLong("llm", "local", "Line-item extraction backend: 'local' or 'gemini'")
		localURL    = fs.StringLong("local-url", "http://localhost:1234/v1", "Local OpenAI-compatible endpoint base URL")
		localModel  = fs.StringLong("local-model", "bielik-4.5b-v3.0-instruct", "Local model name")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set PANTRY_TRACKER_GEMINI_KEY)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.0-flash-lite", "Google Gemini model name")
		visionCreds = fs.StringLong("vision-credentials", "", "Google Cloud Vision credentials file (default: application default credentials)")
		ocrLangs    = fs.StringLong("ocr-langs", "pl", "Comma-separated OCR language hints")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PANTRY_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	slog.Info("Initializing database...", "path", *dbPath)
	db, err := inventory.NewGormDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing audit log...", "path", *auditPath)
	auditLog, err := audit.Open(*auditPath)
	if err != nil {
		slog.Error("Failed to initialize audit log", "error", err)
		os.Exit(1)
	}
	defer auditLog.Close()

	var extractor llm.Extractor
	switch *backend {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key or GEMINI_API_KEY")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini backend...", "model", *geminiModel)
		extractor, err = llm.NewGemini(apiKey, *geminiModel, auditLog)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "local":
		slog.Info("Initializing local backend...", "url", *localURL, "model", *localModel)
		extractor = llm.NewLocal(*localURL, *localModel, auditLog)
	default:
		slog.Error("Invalid extraction backend", "backend", *backend, "valid", "local or gemini")
		os.Exit(1)
	}
	defer extractor.Close()

	slog.Info("Initializing OCR engine...")
	engine, err := ocr.NewVisionEngine(context.Background(), *visionCreds, splitLangs(*ocrLangs))
	if err != nil {
		slog.Error("Failed to initialize OCR engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := inventory.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := inventory.NewService(db, ocr.NewExtractor(engine), extractor, store)

	basicAuth := inventory.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := inventory.NewServer(service, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

func splitLangs(s string) []string {
	langs := []string{}
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}
