package metrics

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	BookingsCommitted prometheus.Counter
	BookingsCancelled prometheus.Counter
	PaymentsFailed    prometheus.Counter
	QuoteRejections   *prometheus.CounterVec // reason label: route_not_found|route_full|invalid_count
	SeatsReserved     prometheus.Counter
	Revenue           prometheus.Counter

	PersistenceWarnings *prometheus.CounterVec // sink label: state|ledger|events

	RouteOccupancy *prometheus.GaugeVec // route label
	RouteCapacity  *prometheus.GaugeVec // route label

	CommitDuration prometheus.Histogram

	EventsPublished  prometheus.Counter
	EventPublishErrs prometheus.Counter
	EventsConnected  prometheus.Gauge
	PublishDuration  prometheus.Histogram

	FarePerKm prometheus.Gauge
}

func NewCollector(farePerKm float64) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		BookingsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movemate_bookings_committed_total",
			Help: "Total bookings committed.",
		}),
		BookingsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movemate_bookings_cancelled_total",
			Help: "Total bookings cancelled before payment.",
		}),
		PaymentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movemate_payments_failed_total",
			Help: "Total bookings whose payment was not authorized.",
		}),
		QuoteRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "movemate_quote_rejections_total",
			Help: "Quotes rejected, by reason.",
		}, []string{"reason"}),
		SeatsReserved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movemate_seats_reserved_total",
			Help: "Total seats reserved by committed bookings.",
		}),
		Revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movemate_revenue_total",
			Help: "Sum of total fares of committed bookings.",
		}),
		PersistenceWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "movemate_persistence_warnings_total",
			Help: "Failed durable writes after a commit, by sink.",
		}, []string{"sink"}),
		RouteOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "movemate_route_occupancy_seats",
			Help: "Seats booked per route.",
		}, []string{"route"}),
		RouteCapacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "movemate_route_capacity_seats",
			Help: "Seat capacity per route.",
		}, []string{"route"}),
		CommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "movemate_commit_duration_seconds",
			Help:    "Duration of the commit step (reserve, snapshot, ledger, event).",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movemate_events_published_total",
			Help: "Total booking events published.",
		}),
		EventPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movemate_event_publish_errors_total",
			Help: "Total booking event publish errors.",
		}),
		EventsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "movemate_events_connected",
			Help: "1 if the event broker connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "movemate_publish_duration_seconds",
			Help:    "Duration to marshal and publish a booking event.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		FarePerKm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "movemate_fare_per_km",
			Help: "Configured fare per kilometre.",
		}),
	}

	reg.MustRegister(
		c.BookingsCommitted, c.BookingsCancelled, c.PaymentsFailed,
		c.QuoteRejections, c.SeatsReserved, c.Revenue,
		c.PersistenceWarnings, c.RouteOccupancy, c.RouteCapacity,
		c.CommitDuration, c.EventsPublished, c.EventPublishErrs,
		c.EventsConnected, c.PublishDuration, c.FarePerKm,
	)

	c.FarePerKm.Set(farePerKm)

	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// The methods below satisfy booking.Metrics.

func (c *Collector) QuoteRejected(reason string) { c.QuoteRejections.WithLabelValues(reason).Inc() }
func (c *Collector) BookingCancelled()           { c.BookingsCancelled.Inc() }
func (c *Collector) PaymentFailed()              { c.PaymentsFailed.Inc() }

func (c *Collector) BookingCommitted(_ int, seats int, fare float64, took time.Duration) {
	c.BookingsCommitted.Inc()
	c.SeatsReserved.Add(float64(seats))
	c.Revenue.Add(fare)
	c.CommitDuration.Observe(took.Seconds())
}

func (c *Collector) PersistenceWarning(sink string) { c.PersistenceWarnings.WithLabelValues(sink).Inc() }

func (c *Collector) SetOccupancy(routeID, occupancy, capacity int) {
	label := strconv.Itoa(routeID)
	c.RouteOccupancy.WithLabelValues(label).Set(float64(occupancy))
	c.RouteCapacity.WithLabelValues(label).Set(float64(capacity))
}
