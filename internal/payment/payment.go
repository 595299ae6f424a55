package payment

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
)

// Processor abstracts the external payment gateway. The booking flow only
// ever charges the guest total at confirmation and refunds a computed amount
// at cancellation; settlement, payouts and disputes live with the gateway.
type Processor interface {
	// Charge captures the guest total for a booking. The reference must be
	// stable per booking so the gateway can deduplicate retries.
	Charge(ctx context.Context, reference string, amount float64, currencyCode string) error
	// Refund returns part or all of a previously captured charge.
	Refund(ctx context.Context, reference string, amount float64, currencyCode string) error
}

// LogProcessor implements Processor by recording operations to the standard
// logger. Used in development and as the default until a real gateway is
// configured.
type LogProcessor struct{}

// NewLogProcessor creates a new LogProcessor.
func NewLogProcessor() Processor {
	return &LogProcessor{}
}

func (p *LogProcessor) Charge(ctx context.Context, reference string, amount float64, currencyCode string) error {
	if amount <= 0 {
		return fmt.Errorf("charge amount must be positive, got %.2f for reference %s", amount, reference)
	}
	log.Printf("PAYMENT: charge %.2f %s (ref %s)", amount, strings.ToUpper(currencyCode), reference)
	return nil
}

func (p *LogProcessor) Refund(ctx context.Context, reference string, amount float64, currencyCode string) error {
	if amount < 0 {
		return fmt.Errorf("refund amount cannot be negative, got %.2f for reference %s", amount, reference)
	}
	if amount == 0 {
		// Nothing to return; still a successful outcome for the caller.
		return nil
	}
	log.Printf("PAYMENT: refund %.2f %s (ref %s)", amount, strings.ToUpper(currencyCode), reference)
	return nil
}

// Record is one captured Charge or Refund call on the fake processor.
type Record struct {
	Op           string
	Reference    string
	Amount       float64
	CurrencyCode string
}

// FakeProcessor implements Processor in memory for tests. FailCharge makes
// the next Charge call fail, which is how rollback paths are exercised.
type FakeProcessor struct {
	mu         sync.Mutex
	Records    []Record
	FailCharge bool
	FailRefund bool
}

func NewFakeProcessor() *FakeProcessor {
	return &FakeProcessor{}
}

func (p *FakeProcessor) Charge(ctx context.Context, reference string, amount float64, currencyCode string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailCharge {
		return fmt.Errorf("simulated charge failure for reference %s", reference)
	}
	p.Records = append(p.Records, Record{Op: "charge", Reference: reference, Amount: amount, CurrencyCode: currencyCode})
	return nil
}

func (p *FakeProcessor) Refund(ctx context.Context, reference string, amount float64, currencyCode string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailRefund {
		return fmt.Errorf("simulated refund failure for reference %s", reference)
	}
	p.Records = append(p.Records, Record{Op: "refund", Reference: reference, Amount: amount, CurrencyCode: currencyCode})
	return nil
}
