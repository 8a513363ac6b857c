package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otellogrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdk_trace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/jiaming2012/options-escrow/src/data"
	"github.com/jiaming2012/options-escrow/src/dbutils"
	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	escrow_router "github.com/jiaming2012/options-escrow/src/escrow-api/router"
	"github.com/jiaming2012/options-escrow/src/escrow-api/services"
	"github.com/jiaming2012/options-escrow/src/eventconsumers"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventproducers"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
	"github.com/jiaming2012/options-escrow/src/sheets"
	"github.com/jiaming2012/options-escrow/src/utils"
)

func main() {
	run()
}

// setupOTelSDK bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func setupOTelSDK(ctx context.Context) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	// shutdown calls cleanup functions registered via shutdownFuncs.
	// The errors from the calls are joined.
	// Each registered cleanup will be invoked once.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	// handleErr calls shutdown for cleanup and makes sure that all errors are returned.
	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)

	traceExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient())
	if err != nil {
		return nil, err
	}

	res, _ := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", "options-escrow")))

	tracerProvider := sdk_trace.NewTracerProvider(
		sdk_trace.WithBatcher(traceExporter),
		sdk_trace.WithResource(res),
	)

	if err != nil {
		handleErr(err)
		return
	}
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, err
	}

	meterProvider := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(metricExporter)))
	if err != nil {
		handleErr(err)
		return
	}
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	err = runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		log.Fatalf("runtime.Start: %v", err)
	}

	return
}

var db *gorm.DB

func run() {
	projectsDir, err := utils.GetEnv("PROJECTS_DIR")
	if err != nil {
		log.Fatalf("PROJECTS_DIR not set: %v", err)
	}

	goEnv, err := utils.GetEnv("GO_ENV")
	if goEnv == "" {
		log.Fatalf("GO_ENV not set: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	if err := utils.InitEnvironmentVariables(projectsDir, goEnv); err != nil {
		log.Panic(err)
	}

	eventpubsub.Init()

	log.SetOutput(os.Stdout)

	log.Infof("Log level set to %v", log.GetLevel())

	log.Infof("Main: you da boss...")

	eventStoreDbURL, err := utils.GetEnv("EVENTSTOREDB_URL")
	if err != nil {
		log.Fatalf("$EVENTSTOREDB_URL not set: %v", err)
	}

	slackWebhookURL, err := utils.GetEnv("SLACK_ESCROW_ALERTS_WEBHOOK_URL")
	if err != nil {
		log.Fatalf("$SLACK_ESCROW_ALERTS_WEBHOOK_URL not set: %v", err)
	}

	escrowConfigFile, err := utils.GetEnv("ESCROW_CONFIG_FILE")
	if err != nil {
		log.Fatalf("$ESCROW_CONFIG_FILE not set: %v", err)
	}

	postgresHost, err := utils.GetEnv("POSTGRES_HOST")
	if err != nil {
		log.Fatalf("$POSTGRES_HOST not set: %v", err)
	}

	postgresPort, err := utils.GetEnv("POSTGRES_PORT")
	if err != nil {
		log.Fatalf("$POSTGRES_PORT not set: %v", err)
	}

	postgresUser, err := utils.GetEnv("POSTGRES_USER")
	if err != nil {
		log.Fatalf("$POSTGRES_USER not set: %v", err)
	}

	postgresPassword, err := utils.GetEnv("POSTGRES_PASSWORD")
	if err != nil {
		log.Fatalf("$POSTGRES_PASSWORD not set: %v", err)
	}

	postgresDb, err := utils.GetEnv("POSTGRES_DB")
	if err != nil {
		log.Fatalf("$POSTGRES_DB not set: %v", err)
	}

	port, err := utils.GetEnv("PORT")
	if err != nil {
		log.Fatalf("$PORT not set: %v", err)
	}

	// Set up Telemetry
	log.AddHook(otellogrus.NewHook(otellogrus.WithLevels(
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
	)))

	// Set up OpenTelemetry.
	otelShutdown, err := setupOTelSDK(ctx)
	if err != nil {
		log.Fatalf("failed to setup otel sdk: %v", err)
	}

	// Handle shutdown properly so nothing leaks.
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			log.Errorf("failed to shutdown otel sdk: %v", err)
		}
	}()

	// Setup postgres
	if db, err = dbutils.InitPostgres(postgresHost, postgresPort, postgresUser, postgresPassword, postgresDb); err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	// Load config
	escrowConfigInDir := path.Join(projectsDir, "options-escrow", "src", escrowConfigFile)
	configPayload, err := os.ReadFile(escrowConfigInDir)
	if err != nil {
		log.Fatalf("failed to read escrow config: %v", err)
	}

	var escrowConfig eventmodels.EscrowConfigYAML
	if err := yaml.Unmarshal(configPayload, &escrowConfig); err != nil {
		log.Fatalf("failed to unmarshal escrow config: %v", err)
	}

	bootstrapGovernance, err := escrowConfig.GovernanceConfig()
	if err != nil {
		log.Fatalf("invalid governance config: %v", err)
	}

	// Setup database service
	dbService := data.NewDatabaseService(db)

	// A stored governance record wins over the yaml bootstrap; the
	// governance stream replay below wins over both.
	governanceStore, err := dbutils.CreateGovernanceStore(dbService, &bootstrapGovernance)
	if err != nil {
		log.Fatalf("failed to create governance store: %v", err)
	}

	vault := models.NewInMemoryVault()
	for account, balances := range escrowConfig.Vault.Balances {
		for asset, amount := range balances {
			if err := vault.Credit(eventmodels.AccountID(account), eventmodels.AssetSymbol(asset), amount); err != nil {
				log.Fatalf("failed to credit vault balance for %s: %v", account, err)
			}
		}
	}

	registry, err := models.NewEscrowRegistry(vault, governanceStore)
	if err != nil {
		log.Fatalf("failed to create escrow registry: %v", err)
	}

	// Setup ESDB producer
	esdbProducer := eventproducers.NewESDBProducer(&wg, eventStoreDbURL)
	esdbProducer.Start(ctx)

	apiService := services.NewEscrowApiService(registry, dbService, esdbProducer)
	governanceService := services.NewGovernanceService(governanceStore, dbService, esdbProducer)

	// Rebuild state from the journal before serving traffic. Governance
	// replays first so restored escrows settle against current fees.
	governanceClient := eventconsumers.NewESDBConsumerStream(&wg, eventStoreDbURL, &eventmodels.GovernanceUpdatedEvent{})
	eventconsumers.NewGovernanceConsumer(governanceClient, governanceService).Replay(ctx)

	eventconsumers.NewEscrowConsumer(&wg, eventStoreDbURL, apiService).Replay(ctx)

	// Setup router
	router := mux.NewRouter()
	escrow_router.SetupHandler(router.PathPrefix("/escrows").Subrouter(), apiService, governanceService)
	escrow_router.SetupGovernanceHandler(router.PathPrefix("/governance").Subrouter(), governanceService)

	// Register pprof handlers
	pprofRouter := router.PathPrefix("/debug/pprof").Subrouter()
	pprofRouter.HandleFunc("/", http.HandlerFunc(pprof.Index))
	pprofRouter.HandleFunc("/cmdline", http.HandlerFunc(pprof.Cmdline))
	pprofRouter.HandleFunc("/profile", http.HandlerFunc(pprof.Profile))
	pprofRouter.HandleFunc("/symbol", http.HandlerFunc(pprof.Symbol))
	pprofRouter.HandleFunc("/trace", http.HandlerFunc(pprof.Trace))
	pprofRouter.Handle("/allocs", pprof.Handler("allocs"))
	pprofRouter.Handle("/block", pprof.Handler("block"))
	pprofRouter.Handle("/goroutine", pprof.Handler("goroutine"))
	pprofRouter.Handle("/heap", pprof.Handler("heap"))
	pprofRouter.Handle("/mutex", pprof.Handler("mutex"))
	pprofRouter.Handle("/threadcreate", pprof.Handler("threadcreate"))

	// Start event clients
	eventconsumers.NewSlackNotifierClient(&wg, slackWebhookURL).Start(ctx)
	eventconsumers.NewDisbursementMonitoringWorker(&wg, apiService).Start(ctx)

	// The sheets mirror is optional: back office installs set a
	// spreadsheet id, everyone else skips it.
	if spreadsheetID := os.Getenv("SETTLEMENTS_SPREADSHEET_ID"); spreadsheetID != "" {
		sheetsService, _, err := sheets.NewClientFromEnv(ctx)
		if err != nil {
			log.Fatalf("failed to create google sheets client: %v", err)
		}

		eventconsumers.NewGoogleSheetsClient(ctx, &wg, sheetsService, spreadsheetID).Start()
	} else {
		log.Info("SETTLEMENTS_SPREADSHEET_ID not set: skipping google sheets mirror")
	}

	// Setup web server
	srv := &http.Server{
		Handler: otelhttp.NewHandler(router, "escrow-api"),
		Addr:    fmt.Sprintf(":%s", port),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start web server
	go func() {
		log.Infof("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil {
			if err.Error() != "http: Server closed" {
				log.Fatalf("failed to start server: %v", err)
			}
		}
	}()

	// Create channel for shutdown signals.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	log.Info("Main: init complete")

	// Block here until program is shut down
	<-stop

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shutdown server: %v", err)
	}

	// Wait for event clients to shut down
	wg.Wait()

	log.Info("Main: gracefully stopped!")
}
