package booking_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movemate/internal/booking"
	"movemate/internal/catalog"
	"movemate/internal/inventory"
	"movemate/internal/ledger"
	"movemate/internal/payment"
	"movemate/internal/publisher"
	"movemate/internal/timetable"
	"movemate/internal/transit"
)

type recordingLedger struct {
	records []ledger.Record
	err     error
}

func (l *recordingLedger) Append(_ context.Context, rec ledger.Record) error {
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, rec)
	return nil
}

type recordingSaver struct {
	saves [][]transit.Entry
	err   error
}

func (s *recordingSaver) Save(_ context.Context, entries []transit.Entry) error {
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, entries)
	return nil
}

type recordingEvents struct {
	msgs []publisher.BookingMessage
	err  error
}

func (e *recordingEvents) PublishBooking(msg publisher.BookingMessage) error {
	e.msgs = append(e.msgs, msg)
	return e.err
}

type fakeMetrics struct {
	rejected  []string
	cancelled int
	failed    int
	committed int
	warnings  []string
	occupancy map[int]int
}

func (m *fakeMetrics) QuoteRejected(reason string) { m.rejected = append(m.rejected, reason) }
func (m *fakeMetrics) BookingCancelled()           { m.cancelled++ }
func (m *fakeMetrics) PaymentFailed()              { m.failed++ }
func (m *fakeMetrics) BookingCommitted(int, int, float64, time.Duration) {
	m.committed++
}
func (m *fakeMetrics) PersistenceWarning(sink string) { m.warnings = append(m.warnings, sink) }
func (m *fakeMetrics) SetOccupancy(routeID, occ, _ int) {
	if m.occupancy == nil {
		m.occupancy = map[int]int{}
	}
	m.occupancy[routeID] = occ
}

func authorize(ref string) payment.Confirmer {
	return payment.Func(func(context.Context, float64) (payment.Result, error) {
		return payment.Result{Authorized: true, Method: payment.CardDigits, Reference: ref}, nil
	})
}

type fixture struct {
	engine  *booking.Engine
	store   *inventory.Store
	ledger  *recordingLedger
	saver   *recordingSaver
	events  *recordingEvents
	metrics *fakeMetrics
}

func newFixture(t *testing.T, capacity int, pay payment.Confirmer) *fixture {
	t.Helper()
	c, err := catalog.New(transit.Route{
		ID:            101,
		DepartureCity: "New Delhi",
		ArrivalCity:   "Agra",
		ViaStop:       "Mathura",
		DepartureTime: "06:00",
		ArrivalTime:   "10:00",
		Capacity:      capacity,
		DistanceKm:    230,
		Fare:          timetable.Fare(230, 2.0),
		BreakMinutes:  timetable.BreakMinutes(230),
	})
	require.NoError(t, err)
	f := &fixture{
		store:   inventory.New(c),
		ledger:  &recordingLedger{},
		saver:   &recordingSaver{},
		events:  &recordingEvents{},
		metrics: &fakeMetrics{},
	}
	f.engine = booking.NewEngine(booking.Deps{
		Catalog:   c,
		Inventory: f.store,
		State:     f.saver,
		Ledger:    f.ledger,
		Payments:  pay,
		Events:    f.events,
		Metrics:   f.metrics,
		Now:       func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) },
	})
	return f
}

func (f *fixture) occupancy(t *testing.T) int {
	t.Helper()
	occ, err := f.store.Occupancy(101)
	require.NoError(t, err)
	return occ
}

func fill(t *testing.T, tx *booking.Transaction) {
	t.Helper()
	for i := 0; i < tx.Count; i++ {
		require.NoError(t, tx.AddPassenger(transit.NewPassenger("P", "20", "F")))
	}
}

func TestEndToEnd_TwoPassengers(t *testing.T) {
	f := newFixture(t, 30, authorize("CARD:4242"))

	tx, err := f.engine.Quote(101, 2)
	require.NoError(t, err)
	assert.Equal(t, booking.Quoted, tx.State())
	assert.InDelta(t, 920.0, tx.TotalFare, 1e-9)
	assert.Equal(t, 20, tx.Route.BreakMinutes)
	assert.Equal(t, 30, tx.SeatsAtQuote)

	require.NoError(t, tx.AddPassenger(transit.NewPassenger("Asha", "30", "F")))
	require.NoError(t, tx.AddPassenger(transit.NewPassenger("Ravi", "34", "M")))
	require.NoError(t, f.engine.Confirm(tx, "Y"))
	assert.Equal(t, booking.AwaitingPayment, tx.State())

	rcpt, err := f.engine.Pay(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, booking.Committed, tx.State())
	assert.Empty(t, rcpt.Warnings)
	assert.InDelta(t, 920.0, rcpt.TotalFare, 1e-9)
	assert.Equal(t, 28, rcpt.SeatsLeft)
	assert.Equal(t, 2, f.occupancy(t))

	require.Len(t, f.ledger.records, 1)
	rec := f.ledger.records[0]
	assert.Equal(t, "New Delhi -> Agra (Bus 101)", rec.RouteSummary)
	assert.Len(t, rec.Passengers, 2)
	assert.Equal(t, payment.CardDigits, rec.Method)
	assert.Equal(t, "CARD:4242", rec.Reference)

	require.Len(t, f.saver.saves, 1)
	assert.Equal(t, []transit.Entry{{RouteID: 101, Occupancy: 2}}, f.saver.saves[0])

	require.Len(t, f.events.msgs, 1)
	assert.Equal(t, "CARD", f.events.msgs[0].PaymentMethod)
	assert.Equal(t, 28, f.events.msgs[0].SeatsLeft)

	assert.Equal(t, 1, f.metrics.committed)
	assert.Equal(t, 2, f.metrics.occupancy[101])
}

func TestQuote_Rejections(t *testing.T) {
	f := newFixture(t, 3, authorize("x"))

	_, err := f.engine.Quote(999, 1)
	assert.ErrorIs(t, err, booking.ErrRouteNotFound)

	_, err = f.engine.Quote(101, 0)
	assert.ErrorIs(t, err, booking.ErrInvalidPassengerCount)

	_, err = f.engine.Quote(101, 4)
	assert.ErrorIs(t, err, booking.ErrInvalidPassengerCount)

	require.NoError(t, f.store.Reserve(101, 3))
	_, err = f.engine.Quote(101, 1)
	assert.ErrorIs(t, err, booking.ErrRouteFull)

	assert.Equal(t, []string{"route_not_found", "invalid_count", "invalid_count", "route_full"}, f.metrics.rejected)
	assert.Empty(t, f.ledger.records)
	assert.Empty(t, f.saver.saves)
	assert.Equal(t, 3, f.occupancy(t))
}

func TestConfirm_DeclineCancels(t *testing.T) {
	for _, answer := range []string{"n", "", "  ", "no", "okay"} {
		f := newFixture(t, 30, authorize("x"))
		tx, err := f.engine.Quote(101, 1)
		require.NoError(t, err)
		fill(t, tx)

		err = f.engine.Confirm(tx, answer)
		assert.ErrorIs(t, err, booking.ErrUserCancelled, "answer %q", answer)
		assert.Equal(t, booking.Cancelled, tx.State())
		assert.Equal(t, 0, f.occupancy(t))
		assert.Empty(t, f.ledger.records)
		assert.Empty(t, f.saver.saves)
		assert.Equal(t, 1, f.metrics.cancelled)

		_, err = f.engine.Pay(context.Background(), tx)
		assert.ErrorIs(t, err, booking.ErrInvalidState)
	}
}

func TestConfirm_IncompletePassengers(t *testing.T) {
	f := newFixture(t, 30, authorize("x"))
	tx, err := f.engine.Quote(101, 2)
	require.NoError(t, err)
	require.NoError(t, tx.AddPassenger(transit.NewPassenger("A", "1", "F")))

	err = f.engine.Confirm(tx, "yes")
	assert.ErrorIs(t, err, booking.ErrPassengersIncomplete)
	assert.Equal(t, booking.Quoted, tx.State())
}

func TestAddPassenger_Limit(t *testing.T) {
	f := newFixture(t, 30, authorize("x"))
	tx, err := f.engine.Quote(101, 1)
	require.NoError(t, err)
	fill(t, tx)
	assert.ErrorIs(t, tx.AddPassenger(transit.Passenger{}), booking.ErrPassengerLimit)
}

func TestPay_NotAuthorized(t *testing.T) {
	decline := payment.Func(func(context.Context, float64) (payment.Result, error) {
		return payment.Result{Method: payment.ManualAttestation, Reference: "UPI:x"}, nil
	})
	f := newFixture(t, 30, decline)
	tx, err := f.engine.Quote(101, 2)
	require.NoError(t, err)
	fill(t, tx)
	require.NoError(t, f.engine.Confirm(tx, "y"))

	_, err = f.engine.Pay(context.Background(), tx)
	assert.ErrorIs(t, err, booking.ErrPaymentNotAuthorized)
	assert.Equal(t, booking.PaymentFailed, tx.State())
	assert.Equal(t, 0, f.occupancy(t))
	assert.Empty(t, f.ledger.records)
	assert.Empty(t, f.events.msgs)
	assert.Equal(t, 1, f.metrics.failed)
}

func TestPay_BoundaryError(t *testing.T) {
	ioErr := errors.New("terminal gone")
	f := newFixture(t, 30, payment.Func(func(context.Context, float64) (payment.Result, error) {
		return payment.Result{}, ioErr
	}))
	tx, err := f.engine.Quote(101, 1)
	require.NoError(t, err)
	fill(t, tx)
	require.NoError(t, f.engine.Confirm(tx, "y"))

	_, err = f.engine.Pay(context.Background(), tx)
	assert.ErrorIs(t, err, booking.ErrPaymentNotAuthorized)
	assert.ErrorIs(t, err, ioErr)
	assert.Equal(t, 0, f.occupancy(t))
}

func TestPay_ReceivesTotalFare(t *testing.T) {
	var charged float64
	f := newFixture(t, 30, payment.Func(func(_ context.Context, amount float64) (payment.Result, error) {
		charged = amount
		return payment.Result{Authorized: true, Method: payment.ManualAttestation, Reference: "UPI:x"}, nil
	}))
	tx, err := f.engine.Quote(101, 3)
	require.NoError(t, err)
	fill(t, tx)
	require.NoError(t, f.engine.Confirm(tx, "yes"))
	_, err = f.engine.Pay(context.Background(), tx)
	require.NoError(t, err)
	assert.InDelta(t, 1380.0, charged, 1e-9)
}

func TestCommit_PersistenceFailuresAreWarnings(t *testing.T) {
	f := newFixture(t, 30, authorize("CARD:1"))
	f.saver.err = errors.New("disk full")
	f.ledger.err = errors.New("read-only")
	f.events.err = errors.New("no broker")

	tx, err := f.engine.Quote(101, 1)
	require.NoError(t, err)
	fill(t, tx)
	require.NoError(t, f.engine.Confirm(tx, "y"))

	rcpt, err := f.engine.Pay(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, booking.Committed, tx.State())
	assert.Equal(t, 1, f.occupancy(t))

	require.Len(t, rcpt.Warnings, 3)
	assert.Equal(t, "state", rcpt.Warnings[0].Sink)
	assert.Equal(t, "ledger", rcpt.Warnings[1].Sink)
	assert.Equal(t, "events", rcpt.Warnings[2].Sink)
	assert.Equal(t, []string{"state", "ledger", "events"}, f.metrics.warnings)
}

func TestCommit_InternalConsistency(t *testing.T) {
	f := newFixture(t, 2, authorize("x"))
	tx, err := f.engine.Quote(101, 2)
	require.NoError(t, err)
	fill(t, tx)
	require.NoError(t, f.engine.Confirm(tx, "y"))

	// seats taken behind the engine's back
	require.NoError(t, f.store.Reserve(101, 1))

	_, err = f.engine.Pay(context.Background(), tx)
	var ice *booking.InternalConsistencyError
	require.ErrorAs(t, err, &ice)
	assert.ErrorIs(t, err, inventory.ErrInsufficientSeats)
	assert.NotEqual(t, booking.Committed, tx.State())
	assert.Equal(t, 1, f.occupancy(t))
	assert.Empty(t, f.ledger.records)
}

func TestCommit_WritesLedgerFile(t *testing.T) {
	dir := t.TempDir()
	c := catalog.Seed(catalog.DefaultSeedOptions())
	store := inventory.New(c)
	state := inventory.StateFile{Path: filepath.Join(dir, "state.txt")}
	book := ledger.File{Path: filepath.Join(dir, "bookings.txt")}
	e := booking.NewEngine(booking.Deps{
		Catalog:   c,
		Inventory: store,
		State:     state,
		Ledger:    book,
		Payments:  authorize("CARD:9999"),
	})

	tx, err := e.Quote(101, 2)
	require.NoError(t, err)
	fill(t, tx)
	require.NoError(t, e.Confirm(tx, "y"))
	_, err = e.Pay(context.Background(), tx)
	require.NoError(t, err)

	raw, err := os.ReadFile(book.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "----- Booking -----"))
	assert.Equal(t, 2, strings.Count(string(raw), "Name: P | Age: 20 | Gender: F"))
	assert.Contains(t, string(raw), "Total Fare: ₹920.00")

	entries, err := state.Load()
	require.NoError(t, err)
	restored := inventory.New(c)
	restored.Restore(entries)
	assert.Equal(t, store.Snapshot(), restored.Snapshot())
}

func TestSaveState(t *testing.T) {
	f := newFixture(t, 30, authorize("x"))
	require.NoError(t, f.engine.SaveState(context.Background()))
	require.Len(t, f.saver.saves, 1)

	f.saver.err = errors.New("nope")
	err := f.engine.SaveState(context.Background())
	var w *booking.PersistenceWarning
	assert.ErrorAs(t, err, &w)
}

func TestPublishOccupancy(t *testing.T) {
	f := newFixture(t, 30, authorize("x"))
	require.NoError(t, f.store.Reserve(101, 5))
	f.engine.PublishOccupancy()
	assert.Equal(t, 5, f.metrics.occupancy[101])
}

func TestAffirmative(t *testing.T) {
	assert.True(t, booking.Affirmative("Y"))
	assert.True(t, booking.Affirmative(" yes"))
	assert.False(t, booking.Affirmative("N"))
	assert.False(t, booking.Affirmative(""))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_payment", booking.AwaitingPayment.String())
	assert.True(t, booking.Committed.Terminal())
	assert.False(t, booking.Quoted.Terminal())
}
