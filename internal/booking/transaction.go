package booking

import (
	"fmt"

	"movemate/internal/payment"
	"movemate/internal/transit"
)

type State int

const (
	Quoted State = iota
	AwaitingPayment
	PaymentFailed
	Cancelled
	Committed
)

func (s State) String() string {
	switch s {
	case Quoted:
		return "quoted"
	case AwaitingPayment:
		return "awaiting_payment"
	case PaymentFailed:
		return "payment_failed"
	case Cancelled:
		return "cancelled"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == PaymentFailed || s == Cancelled || s == Committed
}

// Transaction is one booking attempt. It is never persisted; only the
// effects of a commit are.
type Transaction struct {
	Route      transit.Route
	Count      int
	Passengers []transit.Passenger
	TotalFare  float64
	// SeatsAtQuote is the availability seen when the quote was issued.
	SeatsAtQuote int
	Payment      payment.Result

	state State
}

func (t *Transaction) State() State { return t.state }

// AddPassenger fills the next passenger slot.
func (t *Transaction) AddPassenger(p transit.Passenger) error {
	if t.state != Quoted {
		return fmt.Errorf("add passenger in state %s: %w", t.state, ErrInvalidState)
	}
	if len(t.Passengers) >= t.Count {
		return fmt.Errorf("add passenger %d of %d: %w", len(t.Passengers)+1, t.Count, ErrPassengerLimit)
	}
	t.Passengers = append(t.Passengers, p)
	return nil
}

// Complete reports whether every passenger slot is filled.
func (t *Transaction) Complete() bool { return len(t.Passengers) == t.Count }
