package booking

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"movemate/internal/catalog"
	"movemate/internal/inventory"
	"movemate/internal/ledger"
	"movemate/internal/payment"
	"movemate/internal/publisher"
	"movemate/internal/transit"
)

// Events receives committed bookings. Publishing is best effort.
type Events interface {
	PublishBooking(msg publisher.BookingMessage) error
}

type Metrics interface {
	QuoteRejected(reason string)
	BookingCancelled()
	PaymentFailed()
	BookingCommitted(routeID, seats int, fare float64, took time.Duration)
	PersistenceWarning(sink string)
	SetOccupancy(routeID, occupancy, capacity int)
}

type Deps struct {
	Catalog   *catalog.Catalog
	Inventory *inventory.Store
	State     inventory.Saver
	Ledger    ledger.Appender
	Payments  payment.Confirmer
	Events    Events  // optional
	Metrics   Metrics // optional
	Now       func() time.Time
}

// Engine runs booking transactions: quote, confirm, pay, commit. It assumes
// one transaction at a time; the inventory re-checks availability when
// seats are finally reserved.
type Engine struct {
	catalog   *catalog.Catalog
	inventory *inventory.Store
	state     inventory.Saver
	ledger    ledger.Appender
	payments  payment.Confirmer
	events    Events
	metrics   Metrics
	now       func() time.Time
}

func NewEngine(d Deps) *Engine {
	e := &Engine{
		catalog:   d.Catalog,
		inventory: d.Inventory,
		state:     d.State,
		ledger:    d.Ledger,
		payments:  d.Payments,
		events:    d.Events,
		metrics:   d.Metrics,
		now:       d.Now,
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Receipt describes a committed booking.
type Receipt struct {
	Route      transit.Route
	Passengers []transit.Passenger
	TotalFare  float64
	Payment    payment.Result
	SeatsLeft  int
	BookedAt   time.Time
	Warnings   []*PersistenceWarning
}

// Quote validates a request for n seats and opens a transaction. Nothing is
// reserved yet.
func (e *Engine) Quote(routeID, n int) (*Transaction, error) {
	r, err := e.catalog.Find(routeID)
	if err != nil {
		e.rejected("route_not_found")
		return nil, err
	}
	left, err := e.inventory.Available(routeID)
	if err != nil {
		return nil, err
	}
	if left <= 0 {
		e.rejected("route_full")
		return nil, fmt.Errorf("route %d: %w", routeID, ErrRouteFull)
	}
	if n <= 0 || n > left {
		e.rejected("invalid_count")
		return nil, fmt.Errorf("%d passengers requested, %d seats left: %w", n, left, ErrInvalidPassengerCount)
	}
	return &Transaction{
		Route:        r,
		Count:        n,
		Passengers:   make([]transit.Passenger, 0, n),
		TotalFare:    r.Fare * float64(n),
		SeatsAtQuote: left,
		state:        Quoted,
	}, nil
}

// Affirmative reports whether answer is a yes (starts with y or Y).
func Affirmative(answer string) bool {
	answer = strings.TrimSpace(answer)
	return answer != "" && (answer[0] == 'y' || answer[0] == 'Y')
}

// Confirm records the customer's decision to go ahead with payment. Anything
// but a yes cancels the transaction.
func (e *Engine) Confirm(tx *Transaction, answer string) error {
	if tx.state != Quoted {
		return fmt.Errorf("confirm in state %s: %w", tx.state, ErrInvalidState)
	}
	if !Affirmative(answer) {
		return e.Cancel(tx)
	}
	if !tx.Complete() {
		return fmt.Errorf("%d of %d passengers: %w", len(tx.Passengers), tx.Count, ErrPassengersIncomplete)
	}
	tx.state = AwaitingPayment
	return nil
}

// Cancel abandons a quoted transaction. It always returns ErrUserCancelled
// on success so callers can report it uniformly.
func (e *Engine) Cancel(tx *Transaction) error {
	if tx.state != Quoted {
		return fmt.Errorf("cancel in state %s: %w", tx.state, ErrInvalidState)
	}
	tx.state = Cancelled
	if e.metrics != nil {
		e.metrics.BookingCancelled()
	}
	log.Printf("booking cancelled: route=%d seats=%d", tx.Route.ID, tx.Count)
	return ErrUserCancelled
}

// Pay asks the payment boundary to authorize the total fare and commits the
// booking when it does.
func (e *Engine) Pay(ctx context.Context, tx *Transaction) (*Receipt, error) {
	if tx.state != AwaitingPayment {
		return nil, fmt.Errorf("pay in state %s: %w", tx.state, ErrInvalidState)
	}
	res, err := e.payments.ConfirmPayment(ctx, tx.TotalFare)
	tx.Payment = res
	if err != nil || !res.Authorized {
		tx.state = PaymentFailed
		if e.metrics != nil {
			e.metrics.PaymentFailed()
		}
		log.Printf("payment failed: route=%d amount=%.2f method=%s", tx.Route.ID, tx.TotalFare, res.Method)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPaymentNotAuthorized, err)
		}
		return nil, ErrPaymentNotAuthorized
	}
	return e.commit(ctx, tx)
}

func (e *Engine) commit(ctx context.Context, tx *Transaction) (*Receipt, error) {
	start := time.Now()
	r := tx.Route
	if err := e.inventory.Reserve(r.ID, tx.Count); err != nil {
		return nil, &InternalConsistencyError{RouteID: r.ID, Seats: tx.Count, Err: err}
	}
	tx.state = Committed

	occ, _ := e.inventory.Occupancy(r.ID)
	rcpt := &Receipt{
		Route:      r,
		Passengers: tx.Passengers,
		TotalFare:  tx.TotalFare,
		Payment:    tx.Payment,
		SeatsLeft:  r.Capacity - occ,
		BookedAt:   e.now(),
	}

	if e.state != nil {
		if err := e.state.Save(ctx, e.inventory.Snapshot()); err != nil {
			e.warn(rcpt, "state", err)
		}
	}
	if e.ledger != nil {
		rec := ledger.Record{
			RouteID:      r.ID,
			RouteSummary: r.Summary(),
			Passengers:   tx.Passengers,
			TotalFare:    tx.TotalFare,
			Method:       tx.Payment.Method,
			Reference:    tx.Payment.Reference,
			BookedAt:     rcpt.BookedAt,
		}
		if err := e.ledger.Append(ctx, rec); err != nil {
			e.warn(rcpt, "ledger", err)
		}
	}
	if e.events != nil {
		if err := e.events.PublishBooking(bookingMessage(rcpt)); err != nil {
			e.warn(rcpt, "events", err)
		}
	}

	if e.metrics != nil {
		e.metrics.BookingCommitted(r.ID, tx.Count, tx.TotalFare, time.Since(start))
		e.metrics.SetOccupancy(r.ID, occ, r.Capacity)
	}
	log.Printf("booking committed: route=%d seats=%d fare=%.2f payment=%s ref=%s seats_left=%d",
		r.ID, tx.Count, tx.TotalFare, tx.Payment.Method, tx.Payment.Reference, rcpt.SeatsLeft)
	return rcpt, nil
}

func (e *Engine) warn(rcpt *Receipt, sink string, err error) {
	w := &PersistenceWarning{Sink: sink, Err: err}
	rcpt.Warnings = append(rcpt.Warnings, w)
	if e.metrics != nil {
		e.metrics.PersistenceWarning(sink)
	}
	log.Printf("warning: %v", w)
}

// SaveState writes the current occupancy snapshot.
func (e *Engine) SaveState(ctx context.Context) error {
	if e.state == nil {
		return nil
	}
	if err := e.state.Save(ctx, e.inventory.Snapshot()); err != nil {
		if e.metrics != nil {
			e.metrics.PersistenceWarning("state")
		}
		return &PersistenceWarning{Sink: "state", Err: err}
	}
	return nil
}

// PublishOccupancy pushes every route's occupancy to metrics.
func (e *Engine) PublishOccupancy() {
	if e.metrics == nil {
		return
	}
	for _, r := range e.catalog.All() {
		occ, err := e.inventory.Occupancy(r.ID)
		if err != nil {
			continue
		}
		e.metrics.SetOccupancy(r.ID, occ, r.Capacity)
	}
}

func (e *Engine) rejected(reason string) {
	if e.metrics != nil {
		e.metrics.QuoteRejected(reason)
	}
}

func bookingMessage(rcpt *Receipt) publisher.BookingMessage {
	ps := make([]publisher.PassengerMessage, 0, len(rcpt.Passengers))
	for _, p := range rcpt.Passengers {
		ps = append(ps, publisher.PassengerMessage{Name: p.Name, Age: p.Age, Gender: p.Gender})
	}
	return publisher.BookingMessage{
		RouteID:          rcpt.Route.ID,
		Route:            rcpt.Route.Summary(),
		DepartureTime:    rcpt.Route.DepartureTime,
		Passengers:       ps,
		TotalFare:        rcpt.TotalFare,
		PaymentMethod:    rcpt.Payment.Method.String(),
		PaymentReference: rcpt.Payment.Reference,
		SeatsLeft:        rcpt.SeatsLeft,
		Timestamp:        rcpt.BookedAt.UTC(),
	}
}
