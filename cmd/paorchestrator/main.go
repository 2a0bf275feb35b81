// Command paorchestrator runs the prior-authorization decision orchestrator:
// a task-registry-backed HTTP server by default, plus health/doctor/version
// subcommands for local operation.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Mindburn-Labs/pa-orchestrator/core/internal/config"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/audit"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/drugsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/evidence"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/guidelinesvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/llm"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/memory"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/metrics"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/orchestrator"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/patientsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/policysvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/synth"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/taskregistry"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/transport"
)

// ANSI colors for the startup banner.
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorBlue  = "\033[34m"
	colorGreen = "\033[32m"
	colorGray  = "\033[37m"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the CLI entrypoint, separated from main for testability.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		runServer(stdout)
		return 0
	}

	switch args[1] {
	case "server", "serve":
		runServer(stdout)
		return 0
	case "health":
		return runHealth(stdout, stderr)
	case "doctor":
		return runDoctor(stdout)
	case "version":
		fmt.Fprintln(stdout, "pa-orchestrator v0.1.0")
		return 0
	default:
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "%sUSAGE:%s paorchestrator <server|health|doctor|version>\n", colorBold, colorReset)
}

// openPersistence opens the Postgres connection pool used for durable
// patient-record snapshots and coverage-decision recording when
// DATABASE_URL is set. An unset DATABASE_URL is a supported configuration:
// both services simply run without cross-restart durability, the same
// degrade-gracefully posture as the document store's SQLite fallback.
func openPersistence(cfg *config.Config, logger *slog.Logger) (*patientsvc.PostgresPersister, *policysvc.PostgresSnapshotStore) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Warn("postgres connection failed, continuing without durable storage", "error", err)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	patients := patientsvc.NewPostgresPersister(db)
	if err := patients.EnsureSchema(ctx); err != nil {
		logger.Warn("postgres patient schema setup failed, continuing without durable storage", "error", err)
		return nil, nil
	}
	snapshots := policysvc.NewPostgresSnapshotStore(db)
	if err := snapshots.EnsureSchema(ctx); err != nil {
		logger.Warn("postgres coverage-decision schema setup failed", "error", err)
	}
	return patients, snapshots
}

func buildServices(cfg *config.Config, logger *slog.Logger) (*taskregistry.Registry, *memory.SQLiteStore, error) {
	clock := time.Now

	patientPersister, policySnapshots := openPersistence(cfg, logger)

	// patientPersister/policySnapshots are concrete *T; only wrap them as
	// their interface types when non-nil, or a nil *T boxed in an interface
	// would compare != nil and defeat the in-memory fallback checks below.
	var persister patientsvc.Persister
	if patientPersister != nil {
		persister = patientPersister
	}

	patientStore := patientsvc.NewStore(clock)
	patientSvc := patientsvc.NewService(patientStore, audit.NewAccessLog(clock), patientsvc.NewConsentStore(clock), persister, clock)

	drugSvc := drugsvc.NewService(drugsvc.BundledCatalog(), nil)
	policySvc := policysvc.NewService(policysvc.BundledCatalog(), clock)
	if policySnapshots != nil {
		policySvc = policySvc.WithSnapshotRecorder(policySnapshots)
	}
	guidelines := guidelinesvc.BundledCatalog()
	engine := evidence.NewEngine(clock)

	var primary llm.Client = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.PrimaryModel)
	var fallback llm.Client = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.FallbackModel)
	synthesizer := synth.NewSynthesizer(primary, fallback)

	mp := sdkmetric.NewMeterProvider()
	rec, err := metrics.New(mp.Meter("pa-orchestrator"))
	if err != nil {
		return nil, nil, fmt.Errorf("paorchestrator: metrics init failed: %w", err)
	}

	orch := orchestrator.New(patientSvc, drugSvc, policySvc, guidelines, engine, synthesizer, rec, clock)

	docStore, err := memory.OpenSQLiteStore(cfg.ChromaDBPath)
	if err != nil {
		logger.Warn("document store unavailable, continuing without persisted research memory", "error", err)
	}

	registry := taskregistry.Build(orchestrator.AgentID, taskregistry.Services{
		Orchestrator: orch,
		Patient:      patientSvc,
		Drug:         drugSvc,
		Policy:       policySvc,
	})
	return registry, docStore, nil
}

func runServer(stdout io.Writer) {
	fmt.Fprintf(stdout, "%spa-orchestrator starting...%s\n", colorBold+colorBlue, colorReset)
	logger := slog.Default()
	cfg := config.Load()

	registry, docStore, err := buildServices(cfg, logger)
	if err != nil {
		logger.Error("service wiring failed", "error", err)
		os.Exit(1)
	}
	if docStore != nil {
		defer docStore.Close()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tasks", taskHandler(registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	fmt.Fprintf(stdout, "%slistening on :%s%s\n", colorGreen, cfg.Port, colorReset)
	logger.Info("server starting", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func taskHandler(registry *taskregistry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transport.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, transport.Failed("pa-orchestrator", fmt.Sprintf("invalid request body: %v", err)))
			return
		}
		resp := registry.Dispatch(r.Context(), req)
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func runHealth(stdout, stderr io.Writer) int {
	cfg := config.Load()
	resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", cfg.Port))
	if err != nil {
		fmt.Fprintf(stderr, "health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "unhealthy: status %d\n", resp.StatusCode)
		return 1
	}
	fmt.Fprintln(stdout, "healthy")
	return 0
}

func runDoctor(stdout io.Writer) int {
	cfg := config.Load()
	fmt.Fprintf(stdout, "%sconfiguration:%s\n", colorBold, colorReset)
	fmt.Fprintf(stdout, "  port: %s\n", cfg.Port)
	fmt.Fprintf(stdout, "  log_level: %s\n", cfg.LogLevel)
	fmt.Fprintf(stdout, "  chroma_db_path: %s\n", cfg.ChromaDBPath)
	fmt.Fprintf(stdout, "  drugbank_token_set: %t\n", cfg.DrugBankToken != "")
	fmt.Fprintf(stdout, "  openai_api_key_set: %t\n", cfg.OpenAIAPIKey != "")
	fmt.Fprintf(stdout, "  database_url_set: %t\n", cfg.DatabaseURL != "")
	fmt.Fprintf(stdout, "%sdoctor checks complete%s\n", colorGray, colorReset)
	return 0
}
