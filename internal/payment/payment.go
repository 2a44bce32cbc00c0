// Package payment simulates payment confirmation. No money moves: a
// Confirmer only reports whether the customer attested payment and which
// reference to record.
package payment

import (
	"context"
	"errors"
	"io"
	"strings"

	"movemate/internal/prompt"
)

type Method int

const (
	MethodUnknown Method = iota
	ManualAttestation
	CardDigits
)

// String returns the tag written to the booking ledger.
func (m Method) String() string {
	switch m {
	case ManualAttestation:
		return "UPI"
	case CardDigits:
		return "CARD"
	default:
		return "UNKNOWN"
	}
}

type Result struct {
	Authorized bool
	Method     Method
	Reference  string
}

type Confirmer interface {
	ConfirmPayment(ctx context.Context, amount float64) (Result, error)
}

// Func adapts a function to Confirmer.
type Func func(ctx context.Context, amount float64) (Result, error)

func (f Func) ConfirmPayment(ctx context.Context, amount float64) (Result, error) {
	return f(ctx, amount)
}

// DefaultPayeeID is shown to customers paying by manual transfer.
const DefaultPayeeID = "movemate@upi"

// Manual asks the customer to transfer the amount and type "yes" once done.
type Manual struct {
	Prompt  *prompt.Prompt
	PayeeID string
}

func (m Manual) payee() string {
	if m.PayeeID == "" {
		return DefaultPayeeID
	}
	return m.PayeeID
}

func (m Manual) ConfirmPayment(ctx context.Context, amount float64) (Result, error) {
	res := Result{Method: ManualAttestation, Reference: "UPI:" + m.payee()}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	m.Prompt.Printf("Please send ₹%.2f to UPI ID: %s\n", amount, m.payee())
	answer, err := m.Prompt.Line("After payment, type 'yes' to confirm: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			m.Prompt.Printf("Payment not confirmed.\n")
			return res, nil
		}
		return res, err
	}
	if !strings.EqualFold(strings.TrimSpace(answer), "yes") {
		m.Prompt.Printf("Payment not confirmed.\n")
		return res, nil
	}
	m.Prompt.Printf("Payment verified.\n")
	res.Authorized = true
	return res, nil
}

// Card captures the last digits of a card and always authorizes.
type Card struct {
	Prompt *prompt.Prompt
}

func (c Card) ConfirmPayment(ctx context.Context, _ float64) (Result, error) {
	res := Result{Method: CardDigits}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	digits, err := c.Prompt.Line("Enter last 4 digits of your card: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, err
	}
	digits = strings.TrimSpace(digits)
	c.Prompt.Printf("Processing card ending with %s ...\n", digits)
	c.Prompt.Printf("Payment successful.\n")
	res.Authorized = true
	res.Reference = "CARD:" + digits
	return res, nil
}

// Menu lets the customer pick a payment method and delegates to it.
type Menu struct {
	Prompt *prompt.Prompt
	Manual Confirmer
	Card   Confirmer
}

func NewMenu(p *prompt.Prompt, payeeID string) Menu {
	return Menu{
		Prompt: p,
		Manual: Manual{Prompt: p, PayeeID: payeeID},
		Card:   Card{Prompt: p},
	}
}

func (m Menu) ConfirmPayment(ctx context.Context, amount float64) (Result, error) {
	m.Prompt.Printf("\n--- Payment ---\n")
	m.Prompt.Printf("Total amount to pay: ₹%.2f\n", amount)
	m.Prompt.Printf("1. UPI (manual transfer)\n")
	m.Prompt.Printf("2. Credit/Debit Card (enter last 4 digits)\n")
	opt, err := m.Prompt.Int("Choose payment method (1 or 2): ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, nil
		}
		m.Prompt.Printf("Invalid input.\n")
		return Result{}, nil
	}
	switch opt {
	case 1:
		return m.Manual.ConfirmPayment(ctx, amount)
	case 2:
		return m.Card.ConfirmPayment(ctx, amount)
	default:
		m.Prompt.Printf("Invalid payment option.\n")
		return Result{}, nil
	}
}
