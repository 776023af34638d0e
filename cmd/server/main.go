package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"loopclaim.app/internal/config"
	"loopclaim.app/internal/protocol"
	"loopclaim.app/internal/sim/tuning"
	"loopclaim.app/internal/sim/world"
	"loopclaim.app/internal/transport/ws"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	envCfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	var (
		addr           = flag.String("addr", envCfg.ListenAddr(), "http listen address (env LOOPCLAIM_ADDR or PORT)")
		dataDir        = flag.String("data", envCfg.DataDir, "runtime data directory")
		tuningPath     = flag.String("tuning", envCfg.TuningPath, "path to tuning.yaml")
		disableJournal = flag.Bool("disable_journal", envCfg.DisableJournal, "disable the zstd event journal")
		disableIndex   = flag.Bool("disable_index", envCfg.DisableIndex, "disable the sqlite history index")
		natsURL        = flag.String("nats_url", envCfg.NATSURL, "publish journal entries to this NATS server (empty to disable)")
		natsSubject    = flag.String("nats_subject", envCfg.NATSSubject, "NATS subject prefix")
		enableAdmin    = flag.Bool("admin_http", envCfg.EnableAdminHTTP, "enable loopback-only /admin/v1 endpoints")
	)
	flag.Parse()

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	runID := uuid.NewString()
	sinks, err := openSinks(sinkConfig{
		RunID:          runID,
		DataDir:        *dataDir,
		DisableJournal: *disableJournal,
		DisableIndex:   *disableIndex,
		NATSURL:        *natsURL,
		NATSSubject:    *natsSubject,
	}, tune, logger)
	if err != nil {
		logger.Fatalf("open sinks: %v", err)
	}
	defer sinks.Close()

	validator, err := protocol.NewValidator()
	if err != nil {
		logger.Fatalf("schemas: %v", err)
	}

	w := world.New(world.Config{Tuning: tune, Logger: logger})
	w.SetJournal(sinks.Journal())

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	wsSrv := ws.NewServer(w, tune, validator, logger)
	mux := newMux(httpDeps{
		World:       w,
		WS:          wsSrv,
		Sinks:       sinks,
		EnableAdmin: *enableAdmin,
	}, logger)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s run=%s protocol=%s", *addr, runID, protocol.Version)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-worldDone
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
