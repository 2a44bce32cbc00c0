// Package console is the interactive menu around the booking engine.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"movemate/internal/booking"
	"movemate/internal/catalog"
	"movemate/internal/inventory"
	"movemate/internal/prompt"
	"movemate/internal/timetable"
	"movemate/internal/transit"
)

type Console struct {
	prompt    *prompt.Prompt
	catalog   *catalog.Catalog
	inventory *inventory.Store
	engine    *booking.Engine
}

func New(p *prompt.Prompt, c *catalog.Catalog, inv *inventory.Store, e *booking.Engine) *Console {
	return &Console{prompt: p, catalog: c, inventory: inv, engine: e}
}

// Run shows the main menu until the user exits or input ends, then saves
// the seat state. Only an internal consistency failure is returned.
func (c *Console) Run(ctx context.Context) error {
	p := c.prompt
	p.Printf("Welcome to MoveMate - Intelligent Transport Booking (Console Demo)\n")
	for ctx.Err() == nil {
		p.Printf("\nMain Menu\n")
		p.Printf("1) View All Routes\n")
		p.Printf("2) View Schedule of a Route (with breaks & via stops)\n")
		p.Printf("3) Book Seats (multiple passengers supported)\n")
		p.Printf("4) Exit\n")
		choice, err := p.Int("Enter choice: ")
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.Printf("Invalid input. Try again.\n")
			continue
		}
		switch choice {
		case 1:
			c.showAllRoutes()
		case 2:
			if err := c.showSchedule(); errors.Is(err, io.EOF) {
				return c.exit(ctx)
			}
		case 3:
			if err := c.book(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					return c.exit(ctx)
				}
				return err
			}
		case 4:
			return c.exit(ctx)
		default:
			p.Printf("Invalid option. Choose 1-4.\n")
		}
	}
	return c.exit(ctx)
}

func (c *Console) exit(ctx context.Context) error {
	c.prompt.Printf("Saving state and exiting. Goodbye!\n")
	if err := c.engine.SaveState(ctx); err != nil {
		c.prompt.Printf("Warning: %v\n", err)
	}
	return nil
}

func (c *Console) seatsLeft(r transit.Route) int {
	left, err := c.inventory.Available(r.ID)
	if err != nil {
		return 0
	}
	return left
}

func (c *Console) showAllRoutes() {
	c.prompt.Printf("\nAvailable Routes from %s:\n", catalog.Origin)
	tw := tabwriter.NewWriter(c.prompt.Out(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDestination\tDep\tArr\tDist(km)\tFare(₹)\tSeats Left\tVia Stop")
	for _, r := range c.catalog.All() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%.2f\t%d\t%s\n",
			r.ID, r.ArrivalCity, r.DepartureTime, r.ArrivalTime, r.DistanceKm, r.Fare, c.seatsLeft(r), r.ViaStop)
	}
	tw.Flush()
}

func (c *Console) showSchedule() error {
	p := c.prompt
	dest, err := p.Line(fmt.Sprintf("\nEnter Destination City (%s): ", strings.Join(c.catalog.Destinations(catalog.Origin), "/")))
	if err != nil {
		return err
	}
	p.Printf("\nBUS SCHEDULE: %s -> %s\n", catalog.Origin, dest)
	routes := c.catalog.Between(catalog.Origin, dest)
	if len(routes) == 0 {
		p.Printf("No routes found for %s to %s.\n", catalog.Origin, dest)
		return nil
	}
	tw := tabwriter.NewWriter(p.Out(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDep\tArr\tDuration\tSeats Left\tDistance\tBreak\tFare(₹)\tVia Stop")
	for _, r := range routes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%dkm\t%dmin\t%.2f\t%s\n",
			r.ID, r.DepartureTime, r.ArrivalTime, timetable.FormatDuration(r.DurationMinutes()),
			c.seatsLeft(r), r.DistanceKm, r.BreakMinutes, r.Fare, r.ViaStop)
	}
	tw.Flush()
	return nil
}

func (c *Console) showStops(r transit.Route) {
	c.prompt.Printf("\nRoute stops for Bus %d:\n", r.ID)
	c.prompt.Printf("1) %s (Departure)\n", r.DepartureCity)
	c.prompt.Printf("2) %s (Via stop)\n", r.ViaStop)
	c.prompt.Printf("3) %s (Destination)\n", r.ArrivalCity)
}

func (c *Console) book(ctx context.Context) error {
	p := c.prompt
	c.showAllRoutes()
	id, err := p.Int("\nEnter Bus ID to book: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		p.Printf("Invalid input.\n")
		return nil
	}
	r, err := c.catalog.Find(id)
	if err != nil {
		p.Printf("Bus not found.\n")
		return nil
	}
	left := c.seatsLeft(r)
	if left <= 0 {
		p.Printf("Sorry, this bus is full.\n")
		return nil
	}
	c.showStops(r)

	n, err := p.Int(fmt.Sprintf("\nHow many passengers do you want to book (max %d)? ", left))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		p.Printf("Invalid number.\n")
		return nil
	}
	tx, err := c.engine.Quote(id, n)
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrRouteFull):
		p.Printf("Sorry, this bus is full.\n")
		return nil
	case errors.Is(err, booking.ErrInvalidPassengerCount) && n <= 0:
		p.Printf("Must be at least 1 passenger.\n")
		return nil
	case errors.Is(err, booking.ErrInvalidPassengerCount):
		p.Printf("Only %d seats left. Reduce passenger count.\n", left)
		return nil
	default:
		p.Printf("Cannot quote booking: %v\n", err)
		return nil
	}

	for i := 0; i < n; i++ {
		pass, err := c.readPassenger(i + 1)
		if err != nil {
			_ = c.engine.Cancel(tx)
			p.Printf("Booking cancelled by user.\n")
			return err
		}
		if err := tx.AddPassenger(pass); err != nil {
			return err
		}
	}

	c.printSummary(tx)
	answer, err := p.Line("\nDo you want to proceed to payment and confirm booking? (Y/N): ")
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if err := c.engine.Confirm(tx, answer); err != nil {
		if errors.Is(err, booking.ErrUserCancelled) {
			p.Printf("Booking cancelled by user.\n")
			return nil
		}
		return err
	}

	rcpt, err := c.engine.Pay(ctx, tx)
	if err != nil {
		var ice *booking.InternalConsistencyError
		if errors.As(err, &ice) {
			return err
		}
		p.Printf("Payment failed or not confirmed. Booking not completed.\n")
		return nil
	}
	c.printReceipt(rcpt)
	return nil
}

// readPassenger collects one passenger; missing fields fall back to
// defaults. It fails only when input has ended.
func (c *Console) readPassenger(i int) (transit.Passenger, error) {
	p := c.prompt
	p.Printf("\nPassenger %d details:\n", i)
	name, err := p.Line("Name: ")
	if err != nil {
		return transit.Passenger{}, err
	}
	age, err := p.Line("Age: ")
	if err != nil {
		return transit.Passenger{}, err
	}
	gender, err := p.Line("Gender (M/F/O): ")
	if err != nil {
		return transit.Passenger{}, err
	}
	return transit.NewPassenger(name, age, gender), nil
}

func (c *Console) printSummary(tx *booking.Transaction) {
	p, r := c.prompt, tx.Route
	p.Printf("\nBooking Summary:\n")
	p.Printf("Route: %s -> %s (via %s)\n", r.DepartureCity, r.ArrivalCity, r.ViaStop)
	p.Printf("Departure: %s | Arrival: %s | Distance: %dkm | Break: %d min\n", r.DepartureTime, r.ArrivalTime, r.DistanceKm, r.BreakMinutes)
	p.Printf("Passengers: %d | Total Fare: ₹%.2f\n", tx.Count, tx.TotalFare)
	p.Printf("Seats available before booking: %d\n", tx.SeatsAtQuote)
}

func (c *Console) printReceipt(rcpt *booking.Receipt) {
	p, r := c.prompt, rcpt.Route
	p.Printf("\n\n==== Booking Confirmed ====\n")
	p.Printf("Bus ID: %d | Route: %s -> %s (via %s)\n", r.ID, r.DepartureCity, r.ArrivalCity, r.ViaStop)
	p.Printf("Departure: %s | Arrival: %s\n", r.DepartureTime, r.ArrivalTime)
	p.Printf("Break Time: %d min | Distance: %dkm\n", r.BreakMinutes, r.DistanceKm)
	p.Printf("Passengers (%d):\n", len(rcpt.Passengers))
	for i, ps := range rcpt.Passengers {
		p.Printf("  %d) %s, Age: %d, Gender: %s\n", i+1, ps.Name, ps.Age, ps.Gender)
	}
	ref := rcpt.Payment.Reference
	if ref == "" {
		ref = "N/A"
	}
	p.Printf("Total Paid: ₹%.2f via %s\n", rcpt.TotalFare, ref)
	p.Printf("Seats left after booking: %d\n", rcpt.SeatsLeft)
	p.Printf("===========================\n")
	for _, w := range rcpt.Warnings {
		p.Printf("Warning: %v\n", w)
	}
}
