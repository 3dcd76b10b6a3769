package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	cataloghandler "biblio/internal/catalog/handler"
	catalogservice "biblio/internal/catalog/service"
	catalogstore "biblio/internal/catalog/store"
	circulationhandler "biblio/internal/circulation/handler"
	circulationservice "biblio/internal/circulation/service"
	circulationstore "biblio/internal/circulation/store"
	patronhandler "biblio/internal/patron/handler"
	patronservice "biblio/internal/patron/service"
	patronstore "biblio/internal/patron/store"
	"biblio/internal/platform/config"
	"biblio/internal/platform/httpserver"
	"biblio/internal/platform/logger"
	"biblio/internal/platform/metrics"
	"biblio/internal/storage/snapshot"
	httptransport "biblio/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogFormat)
	m := metrics.New()

	var (
		itemStore   circulationservice.ItemStore
		patronStore circulationservice.PatronStore
		loanStore   circulationservice.LoanStore
		catStore    catalogservice.ItemStore
		patStore    patronservice.PatronStore
		txRunner    circulationstore.Tx
		onShutdown  func(ctx context.Context)
	)

	if cfg.PostgresURL != "" {
		db, err := sqlx.Connect("pgx", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		items := catalogstore.NewPostgres(db)
		patrons := patronstore.NewPostgres(db)
		loans := circulationstore.NewPostgres(db)
		itemStore, catStore = items, items
		patronStore, patStore = patrons, patrons
		loanStore = loans
		txRunner = circulationstore.NewSQLTx(db)
		onShutdown = func(_ context.Context) { _ = db.Close() }
		log.Info("using postgres stores")
	} else {
		items := catalogstore.NewInMemory()
		patrons := patronstore.NewInMemory()
		loans := circulationstore.NewInMemory()

		snap := snapshot.New(cfg.DataDir)
		if err := seedFromSnapshot(snap, items, patrons, loans); err != nil {
			// A corrupted snapshot must not be silently replaced by an
			// empty catalog; refuse to start instead.
			log.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
		itemStore, catStore = items, items
		patronStore, patStore = patrons, patrons
		loanStore = loans
		txRunner = circulationstore.NewShardedTx()
		onShutdown = func(ctx context.Context) {
			if err := snap.SaveAll(ctx, items.Dump(), patrons.Dump(), loans.Dump()); err != nil {
				log.Error("failed to save snapshot", "error", err)
				return
			}
			log.Info("snapshot saved", "dir", cfg.DataDir)
		}
		log.Info("using in-memory stores with snapshot persistence", "dir", cfg.DataDir)
	}

	circulationSvc := circulationservice.New(itemStore, patronStore, loanStore, txRunner,
		circulationservice.WithLogger(log),
		circulationservice.WithMetrics(m),
		circulationservice.WithLoanPeriod(cfg.LoanPeriodDays),
		circulationservice.WithFineRate(cfg.DailyFineRate),
	)
	catalogSvc := catalogservice.New(catStore, catalogservice.WithLogger(log))
	patronSvc := patronservice.New(patStore, patronservice.WithLogger(log))

	router := httptransport.NewRouter(log, m,
		circulationhandler.New(circulationSvc, log),
		cataloghandler.New(catalogSvc, log),
		patronhandler.New(patronSvc, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting biblio", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	onShutdown(ctx)
}

// seedFromSnapshot loads the three collections and seeds the memory stores.
// Absent files seed empty stores; malformed files are errors.
func seedFromSnapshot(snap *snapshot.Store,
	items *catalogstore.InMemory,
	patrons *patronstore.InMemory,
	loans *circulationstore.InMemory,
) error {
	loadedItems, err := snap.LoadItems()
	if err != nil {
		return err
	}
	loadedPatrons, err := snap.LoadPatrons()
	if err != nil {
		return err
	}
	loadedLoans, err := snap.LoadLoans()
	if err != nil {
		return err
	}
	items.Seed(loadedItems)
	patrons.Seed(loadedPatrons)
	loans.Seed(loadedLoans)
	return nil
}
