// Command manufabctl is the thin CLI invoker over the service facade:
// a single binary dispatching by subcommand, calling the facade in-process
// instead of over HTTP, since HTTP routing glue is out of scope here.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/manufab-platform/kpi-core/internal/capacity"
	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/internal/eventbus"
	"github.com/manufab-platform/kpi-core/internal/facade"
	"github.com/manufab-platform/kpi-core/internal/forecast"
	"github.com/manufab-platform/kpi-core/internal/ingestion"
	"github.com/manufab-platform/kpi-core/internal/kpi"
	"github.com/manufab-platform/kpi-core/internal/repository"
	"github.com/manufab-platform/kpi-core/internal/repository/memory"
	"github.com/manufab-platform/kpi-core/internal/repository/postgres"
	"github.com/manufab-platform/kpi-core/internal/reporting"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/manufab-platform/kpi-core/internal/workflow"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/config"
	"github.com/manufab-platform/kpi-core/pkg/logger"
	"github.com/manufab-platform/kpi-core/pkg/middleware"
	"github.com/manufab-platform/kpi-core/pkg/version"
)

// Exit codes per the error-handling design: usage errors short of ever
// reaching the facade get 1; everything past that is keyed off the
// returned ServiceError's Kind.
const (
	exitOK             = 0
	exitUsage          = 1
	exitUnauthenticated = 2
	exitValidation     = 3
	exitConflict       = 4
	exitInfra          = 5
	exitInternal       = 10
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: manufabctl <command> [flags]")
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitInfra
	}
	f, scheduler, closeFn, err := wire(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wire: %v\n", err)
		return exitInfra
	}
	defer closeFn()

	ctx := context.Background()
	cmd, rest := args[0], args[1:]

	if cmd == "serve" {
		return cmdServe(ctx, scheduler, cfg)
	}

	var result any
	switch cmd {
	case "version", "--version":
		fmt.Println(version.FullVersion())
		return exitOK
	case "login":
		result, err = cmdLogin(ctx, f, rest)
	case "ingest":
		result, err = cmdIngest(ctx, f, rest)
	case "query-kpi":
		result, err = cmdQueryKPI(ctx, f, rest)
	case "transition":
		result, err = cmdTransition(ctx, f, rest)
	case "hold":
		result, err = cmdHold(ctx, f, rest)
	case "resume":
		result, err = cmdResume(ctx, f, rest)
	case "forecast":
		result, err = cmdForecast(ctx, f, rest)
	case "report":
		result, err = cmdReport(ctx, f, rest)
	case "capacity":
		result, err = cmdCapacity(ctx, f, rest)
	case "help", "-h", "--help":
		printHelp()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		return exitUsage
	}

	if err != nil {
		var usageErr *flagUsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, usageErr.Error())
			return exitUsage
		}
		return reportError(err)
	}

	if result != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	}
	return exitOK
}

func reportError(err error) int {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		fmt.Fprintf(os.Stderr, "error: %s\n", svcErr.Error())
		switch svcErr.Kind {
		case apperrors.KindUnauthenticated, apperrors.KindForbidden:
			return exitUnauthenticated
		case apperrors.KindValidation, apperrors.KindInvalidTransition, apperrors.KindNotFound:
			return exitValidation
		case apperrors.KindConflict, apperrors.KindStale, apperrors.KindDependentRows:
			return exitConflict
		case apperrors.KindInfra:
			return exitInfra
		default:
			return exitInternal
		}
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return exitInternal
}

type flagUsageError struct{ error }

func usageErrorf(format string, args ...any) error {
	return &flagUsageError{fmt.Errorf(format, args...)}
}

// wire constructs a Facade against either a Postgres backend (database DSN
// configured, with embedded migrations applied) or the dependency-free
// in-memory backend, mirroring cmd/appserver's dsn-present/absent branch.
// Every tunable below comes from cfg rather than ad hoc env lookups, so a
// deployment's config.yaml or env overrides reach every collaborator.
func wire(cfg *config.Config) (*facade.Facade, *reporting.Scheduler, func(), error) {
	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	var backend repository.Backend
	closeFn := func() {}
	if cfg.Database.DSN != "" {
		store, err := postgres.Open(context.Background(), cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.Database.MigrateOnStart {
			if err := store.Migrate(); err != nil {
				store.Close()
				return nil, nil, nil, err
			}
		}
		backend = store
		closeFn = func() { store.Close() }
	} else {
		backend = memory.New()
	}

	workerPoolSize := cfg.EventBus.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = 2 * runtime.NumCPU()
	}
	bus := eventbus.New(eventbus.Config{
		WorkerPoolSize:  workerPoolSize,
		QueueSize:       cfg.EventBus.QueueSize,
		CriticalWait:    time.Duration(cfg.EventBus.CriticalWaitMS) * time.Millisecond,
		HandlerDeadline: time.Duration(cfg.EventBus.HandlerDeadline) * time.Second,
	}, log.WithField("component", "eventbus"), eventbus.NewDeadLetterList(100))

	wf := workflow.New(workflow.Default(), log)
	kpiEngine := kpi.New(backend, kpi.NewCache(time.Minute), log, nil)
	forecastSvc := forecast.NewService(kpiEngine)
	capacityStore := capacity.NewStore(cfg.Capacity.HistoryLimit)
	reportOrch := reporting.NewOrchestrator(kpiEngine)
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = "development-only-secret"
	}
	tokenIssuer := tenant.NewTokenIssuer(secret, 8*time.Hour)
	rateLimit := middleware.NewRateLimiter(cfg.Auth.RateLimitAuthPerMin, time.Minute)

	f := facade.New(backend, bus, wf, kpiEngine, forecastSvc, capacityStore, reportOrch, tokenIssuer, rateLimit, log)

	scheduler := reporting.NewScheduler(reportOrch, nil, log.WithField("component", "reporting-scheduler"))
	now := time.Now()
	for _, jobCfg := range cfg.Reporting.Jobs {
		job := reporting.Job{
			ClientID:     jobCfg.ClientID,
			Schedule:     jobCfg.Schedule,
			Kind:         reporting.Kind(jobCfg.Kind),
			WindowLength: time.Duration(jobCfg.WindowHours) * time.Hour,
			Actor:        tenant.Actor{UserID: jobCfg.ActorUserID, Role: domain.RoleAdmin, AllowedClientIDs: []string{jobCfg.ClientID}},
		}
		if err := scheduler.AddJob(job, now); err != nil {
			log.WithField("client_id", jobCfg.ClientID).WithField("error", err).Error("skipping malformed report job config")
		}
	}

	return f, scheduler, closeFn, nil
}

func resolveContext(f *facade.Facade, token, clientID string) (tenant.Context, error) {
	actor, err := f.TokenIssuer.Validate(token)
	if err != nil {
		return tenant.Context{}, err
	}
	return tenant.Resolve(actor, clientID)
}

func parseWindow(fromStr, toStr string) (kpi.Window, error) {
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return kpi.Window{}, usageErrorf("invalid --from date %q: %v", fromStr, err)
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return kpi.Window{}, usageErrorf("invalid --to date %q: %v", toStr, err)
	}
	return kpi.Window{From: from, To: to}, nil
}

func cmdLogin(ctx context.Context, f *facade.Facade, args []string) (any, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "login username")
	password := fs.String("password", "", "login password")
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf("%v", err)
	}
	if *username == "" || *password == "" {
		return nil, usageErrorf("login requires --username and --password")
	}
	return f.Login(ctx, *username, *password, *username)
}

func cmdIngest(ctx context.Context, f *facade.Facade, args []string) (any, error) {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	token := fs.String("token", "", "bearer token from login")
	clientID := fs.String("client", "", "target client_id")
	kindFlag := fs.String("kind", "", "one of production|downtime|quality|attendance|hold")
	path := fs.String("file", "", "path to CSV file")
	commit := fs.Bool("commit", false, "commit the batch instead of a dry-run stage")
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf("%v", err)
	}
	if *token == "" || *kindFlag == "" || *path == "" {
		return nil, usageErrorf("ingest requires --token, --kind and --file")
	}
	tc, err := resolveContext(f, *token, *clientID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(*path)
	if err != nil {
		return nil, usageErrorf("read %s: %v", *path, err)
	}
	summary, batch, err := f.IngestStage(ctx, tc, ingestion.Kind(*kindFlag), data)
	if err != nil {
		return nil, err
	}
	if !*commit {
		return summary, nil
	}
	return f.IngestCommit(ctx, tc, batch)
}

func cmdQueryKPI(ctx context.Context, f *facade.Facade, args []string) (any, error) {
	fs := flag.NewFlagSet("query-kpi", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	token := fs.String("token", "", "bearer token from login")
	clientID := fs.String("client", "", "target client_id")
	kpiName := fs.String("kpi", "", "KPI name, e.g. OEE")
	from := fs.String("from", "", "window start, YYYY-MM-DD")
	to := fs.String("to", "", "window end, YYYY-MM-DD")
	shiftID := fs.String("shift", "", "optional shift_id filter")
	productID := fs.String("product", "", "optional product_id filter")
	workOrderID := fs.String("work-order", "", "optional work_order_id filter")
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf("%v", err)
	}
	if *token == "" || *clientID == "" || *kpiName == "" || *from == "" || *to == "" {
		return nil, usageErrorf("query-kpi requires --token, --client, --kpi, --from and --to")
	}
	tc, err := resolveContext(f, *token, *clientID)
	if err != nil {
		return nil, err
	}
	window, err := parseWindow(*from, *to)
	if err != nil {
		return nil, err
	}
	filter := kpi.Filter{ShiftID: *shiftID, ProductID: *productID, WorkOrderID: *workOrderID}
	return f.QueryKPI(ctx, tc, strings.ToUpper(*kpiName), window, filter)
}

func cmdTransition(ctx context.Context, f *facade.Facade, args []string) (any, error) {
	fs := flag.NewFlagSet("transition", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	token := fs.String("token", "", "bearer token from login")
	clientID := fs.String("client", "", "target client_id")
	ids := fs.String("work-orders", "", "comma-separated work_order_id list")
	to := fs.String("to", "", "target status")
	note := fs.String("note", "", "transition note")
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf("%v", err)
	}
	if *token == "" || *ids == "" || *to == "" {
		return nil, usageErrorf("transition requires --token, --work-orders and --to")
	}
	tc, err := resolveContext(f, *token, *clientID)
	if err != nil {
		return nil, err
	}
	idList := strings.Split(*ids, ",")
	status := domain.WorkOrderStatus(strings.ToUpper(*to))
	if len(idList) == 1 {
		return f.Transition(ctx, tc, idList[0], status, *note)
	}
	return f.TransitionBulk(ctx, tc, idList, status, *note)
}

func cmdHold(ctx context.Context, f *facade.Facade, args []string) (any, error) {
	fs := flag.NewFlagSet("hold", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	token := fs.String("token", "", "bearer token from login")
	clientID := fs.String("client", "", "target client_id")
	workOrderID := fs.String("work-order", "", "work_order_id to hold")
	reason := fs.String("reason", "", "hold reason code")
	severity := fs.String("severity", "MEDIUM", "CRITICAL|HIGH|MEDIUM|LOW")
	description := fs.String("description", "", "free-text description")
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf("%v", err)
	}
	if *token == "" || *workOrderID == "" || *reason == "" {
		return nil, usageErrorf("hold requires --token, --work-order and --reason")
	}
	tc, err := resolveContext(f, *token, *clientID)
	if err != nil {
		return nil, err
	}
	return f.Hold(ctx, tc, *workOrderID, *reason, domain.HoldSeverity(strings.ToUpper(*severity)), *description)
}

func cmdResume(ctx context.Context, f *facade.Facade, args []string) (any, error) {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	token := fs.String("token", "", "bearer token from login")
	clientID := fs.String("client", "", "target client_id")
	holdID := fs.String("hold", "", "hold_id to resume")
	disposition := fs.String("disposition", "", "RELEASE|REWORK|SCRAP|RTS|USE_AS_IS")
	releasedQty := fs.Int("released-qty", -1, "released quantity, omit for none")
	approvedBy := fs.String("approved-by", "", "approver user_id")
	notes := fs.String("notes", "", "resume notes")
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf("%v", err)
	}
	if *token == "" || *holdID == "" || *disposition == "" {
		return nil, usageErrorf("resume requires --token, --hold and --disposition")
	}
	tc, err := resolveContext(f, *token, *clientID)
	if err != nil {
		return nil, err
	}
	var qty *int
	if *releasedQty >= 0 {
		qty = releasedQty
	}
	return f.Resume(ctx, tc, *holdID, domain.HoldDisposition(strings.ToUpper(*disposition)), qty, *approvedBy, *notes)
}

func cmdForecast(ctx context.Context, f *facade.Facade, args []string) (any, error) {
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	token := fs.String("token", "", "bearer token from login")
	clientID := fs.String("client", "", "target client_id")
	kpiName := fs.String("kpi", "", "KPI name, e.g. OEE")
	historyDays := fs.Int("history-days", 30, "historical_days in [7,90]")
	forecastDays := fs.Int("forecast-days", 7, "forecast_days in [1,30]")
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf("%v", err)
	}
	if *token == "" || *clientID == "" || *kpiName == "" {
		return nil, usageErrorf("forecast requires --token, --client and --kpi")
	}
	tc, err := resolveContext(f, *token, *clientID)
	if err != nil {
		return nil, err
	}
	return f.ForecastKPI(ctx, tc, strings.ToUpper(*kpiName), time.Now(), *historyDays, *forecastDays, kpi.Filter{})
}

func cmdReport(ctx context.Context, f *facade.Facade, args []string) (any, error) {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	token := fs.String("token", "", "bearer token from login")
	clientID := fs.String("client", "", "target client_id")
	kind := fs.String("kind", "daily", "daily|weekly|monthly")
	from := fs.String("from", "", "window start, YYYY-MM-DD")
	to := fs.String("to", "", "window end, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf("%v", err)
	}
	if *token == "" || *clientID == "" || *from == "" || *to == "" {
		return nil, usageErrorf("report requires --token, --client, --from and --to")
	}
	tc, err := resolveContext(f, *token, *clientID)
	if err != nil {
		return nil, err
	}
	window, err := parseWindow(*from, *to)
	if err != nil {
		return nil, err
	}
	return f.Report(ctx, tc, window, reporting.Kind(*kind), kpi.Filter{}, time.Now())
}

func cmdCapacity(ctx context.Context, f *facade.Facade, args []string) (any, error) {
	if len(args) == 0 {
		return nil, usageErrorf("capacity requires a subcommand: component-check|analysis|scenario|undo|redo")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("capacity "+sub, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	clientID := fs.String("client", "", "target client_id")
	scenarioType := fs.String("scenario-type", "", "what-if scenario type")
	params := fs.String("params", "{}", "JSON-encoded scenario params")
	if err := fs.Parse(rest); err != nil {
		return nil, usageErrorf("%v", err)
	}
	if *clientID == "" {
		return nil, usageErrorf("capacity %s requires --client", sub)
	}
	switch sub {
	case "component-check":
		return f.RunComponentCheck(*clientID), nil
	case "analysis":
		return f.RunCapacityAnalysis(*clientID), nil
	case "scenario":
		if *scenarioType == "" {
			return nil, usageErrorf("capacity scenario requires --scenario-type")
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(*params), &decoded); err != nil {
			return nil, usageErrorf("invalid --params JSON: %v", err)
		}
		_, delta, err := f.RunScenario(*clientID, capacity.WhatIfScenario{
			Type:   capacity.ScenarioType(*scenarioType),
			Params: decoded,
		})
		return delta, err
	case "undo":
		return f.UndoCapacityWorkbook(*clientID)
	case "redo":
		return f.RedoCapacityWorkbook(*clientID)
	default:
		return nil, usageErrorf("unknown capacity subcommand %q", sub)
	}
}

// cmdServe runs the reporting scheduler's tick loop until SIGINT/SIGTERM,
// firing each tenant's due periodic report job at most once per interval.
func cmdServe(ctx context.Context, scheduler *reporting.Scheduler, cfg *config.Config) int {
	interval := time.Duration(cfg.Reporting.TickIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("reporting scheduler ticking every %s\n", interval)
	for {
		select {
		case <-sigCh:
			fmt.Println("shutting down reporting scheduler")
			return exitOK
		case now := <-ticker.C:
			if err := scheduler.Tick(ctx, now); err != nil {
				fmt.Fprintf(os.Stderr, "report tick: %v\n", err)
			}
		}
	}
}

func printHelp() {
	fmt.Println(`manufabctl <command> [flags]

Commands:
  version      print build version
  login        --username --password
  ingest       --token --client --kind --file [--commit]
  query-kpi    --token --client --kpi --from --to [--shift --product --work-order]
  transition   --token --client --work-orders --to [--note]
  hold         --token --client --work-order --reason [--severity --description]
  resume       --token --client --hold --disposition [--released-qty --approved-by --notes]
  forecast     --token --client --kpi [--history-days --forecast-days]
  report       --token --client --kind --from --to
  capacity     component-check|analysis|scenario|undo|redo --client [--scenario-type --params]
  serve        run the reporting scheduler's tick loop until SIGINT/SIGTERM`)
}
