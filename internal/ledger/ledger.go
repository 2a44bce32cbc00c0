package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"movemate/internal/payment"
	"movemate/internal/transit"
)

// Record is a committed booking.
type Record struct {
	RouteID      int
	RouteSummary string
	Passengers   []transit.Passenger
	TotalFare    float64
	Method       payment.Method
	Reference    string
	BookedAt     time.Time
}

type Appender interface {
	Append(ctx context.Context, rec Record) error
}

// File is an append-only, human-readable booking log.
type File struct {
	Path string
}

func (f File) Append(_ context.Context, rec Record) error {
	fh, err := os.OpenFile(f.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	// one write per block keeps entries contiguous
	if _, err := fh.Write(Format(rec)); err != nil {
		fh.Close()
		return fmt.Errorf("append ledger: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// Format renders a record as one ledger block.
func Format(rec Record) []byte {
	method, ref := rec.Method.String(), rec.Reference
	if ref == "" {
		method, ref = payment.MethodUnknown.String(), "N/A"
	}
	var b bytes.Buffer
	b.WriteString("----- Booking -----\n")
	fmt.Fprintf(&b, "Route: %s\n", rec.RouteSummary)
	fmt.Fprintf(&b, "Passengers: %d\n", len(rec.Passengers))
	for i, p := range rec.Passengers {
		fmt.Fprintf(&b, "  %d) Name: %s | Age: %d | Gender: %s\n", i+1, p.Name, p.Age, p.Gender)
	}
	fmt.Fprintf(&b, "Total Fare: ₹%.2f\n", rec.TotalFare)
	fmt.Fprintf(&b, "Payment: %s (%s)\n", method, ref)
	b.WriteString("-------------------\n\n")
	return b.Bytes()
}

// Tee appends to every sink, even after a failure, and joins the errors.
type Tee []Appender

func (t Tee) Append(ctx context.Context, rec Record) error {
	var errs []error
	for _, a := range t {
		if a == nil {
			continue
		}
		if err := a.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
