package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"movemate/internal/booking"
	"movemate/internal/catalog"
	"movemate/internal/config"
	"movemate/internal/console"
	"movemate/internal/db"
	"movemate/internal/inventory"
	"movemate/internal/ledger"
	"movemate/internal/metrics"
	"movemate/internal/payment"
	"movemate/internal/prompt"
	"movemate/internal/publisher"
	"movemate/internal/transit"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	routes := catalog.Seed(catalog.SeedOptions{
		BaseID:    cfg.RouteBaseID,
		Capacity:  cfg.Capacity,
		FarePerKm: cfg.FarePerKm,
	})
	store := inventory.New(routes)
	stateFile := inventory.StateFile{Path: cfg.StateFile}
	entries, err := stateFile.Load()
	if err != nil {
		log.Printf("state file %s: %v (continuing with loaded entries)", cfg.StateFile, err)
	}
	rep := store.Restore(entries)
	for _, e := range rep.Invalid {
		log.Printf("state file: ignoring occupancy %d for route %d (out of range)", e.Occupancy, e.RouteID)
	}
	for _, e := range rep.Unknown {
		log.Printf("state file: ignoring unknown route %d", e.RouteID)
	}

	savers := inventory.Savers{stateFile}
	appenders := ledger.Tee{ledger.File{Path: cfg.BookingsFile}}

	// Optional Postgres mirror of counters and bookings
	if cfg.DatabaseURL != "" {
		sqlDB, err := openMirrorDB(ctx, cfg)
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer sqlDB.Close()
		mirror := db.NewMirror(sqlDB)
		reportDrift(ctx, mirror, store.Snapshot())
		savers = append(savers, mirror)
		appenders = append(appenders, mirror)
	}

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.FarePerKm)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			// Shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Booking events
	var events booking.Events
	switch cfg.EventsBackend {
	case config.EventsNATS:
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		events = pub
	case config.EventsAMQP:
		pub, err := publisher.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("rabbitmq error: %v", err)
		}
		defer pub.Close()
		events = pub
	}

	p := prompt.New(os.Stdin, os.Stdout)
	deps := booking.Deps{
		Catalog:   routes,
		Inventory: store,
		State:     savers,
		Ledger:    appenders,
		Payments:  payment.NewMenu(p, cfg.PayeeID),
		Events:    events,
	}
	if mcol != nil {
		deps.Metrics = mcol
	}
	engine := booking.NewEngine(deps)
	engine.PublishOccupancy()

	// The console blocks on stdin, so it runs aside and a signal can still
	// trigger the final snapshot.
	done := make(chan error, 1)
	go func() {
		done <- console.New(p, routes, store, engine).Run(ctx)
	}()

	select {
	case err := <-done:
		var ice *booking.InternalConsistencyError
		if errors.As(err, &ice) {
			log.Fatalf("aborting: %v", err)
		}
		if err != nil {
			log.Printf("console error: %v", err)
		}
	case <-ctx.Done():
		log.Printf("interrupted, saving state")
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := engine.SaveState(saveCtx); err != nil {
			log.Printf("%v", err)
		}
		cancel()
	}

	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
	log.Println("shutdown complete")
}

func openMirrorDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	dsn := cfg.DatabaseURL
	if cfg.DatabaseName != "" {
		var err error
		dsn, err = db.WithDBName(dsn, cfg.DatabaseName)
		if err != nil {
			return nil, err
		}
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.EnsureSchema(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// reportDrift logs routes whose mirrored occupancy differs from the state
// file. The state file wins.
func reportDrift(ctx context.Context, m *db.Mirror, local []transit.Entry) {
	remote, err := m.LoadOccupancy(ctx)
	if err != nil {
		log.Printf("mirror occupancy read error: %v", err)
		return
	}
	mirrored := make(map[int]int, len(remote))
	for _, e := range remote {
		mirrored[e.RouteID] = e.Occupancy
	}
	for _, e := range local {
		if occ, ok := mirrored[e.RouteID]; ok && occ != e.Occupancy {
			log.Printf("mirror drift: route %d has %d in state file, %d in database", e.RouteID, e.Occupancy, occ)
		}
	}
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) EventPublishedInc()             { p.c.EventsPublished.Inc() }
func (p *pubMetrics) EventPublishErrInc()            { p.c.EventPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) SetConnected(b bool) {
	if b {
		p.c.EventsConnected.Set(1)
	} else {
		p.c.EventsConnected.Set(0)
	}
}
