// Package payment annotates operator payment attestations with whatever the
// card processor can tell about the reference.
package payment

import (
	"context"
	"log"
	"strings"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
)

const (
	ProofUnverified = "unverified"
	ProofNotFound   = "stripe:not_found"
	ProofLookupFail = "stripe:lookup_failed"
)

// FetchFunc retrieves a payment intent by id.
type FetchFunc func(id string) (*stripe.PaymentIntent, error)

type stripeInspector struct {
	enabled bool
	fetch   FetchFunc
}

// NewStripeInspector returns an inspector for "pi_" references. With an
// empty key every reference is reported as unverified.
func NewStripeInspector(secretKey string, fetch FetchFunc) ProofInspector {
	if secretKey != "" {
		stripe.Key = secretKey
	}
	if fetch == nil {
		fetch = func(id string) (*stripe.PaymentIntent, error) {
			return paymentintent.Get(id, nil)
		}
	}
	return &stripeInspector{
		enabled: secretKey != "",
		fetch:   fetch,
	}
}

func (s *stripeInspector) Inspect(ctx context.Context, reference string) string {
	reference = strings.TrimSpace(reference)
	if !s.enabled || !strings.HasPrefix(reference, "pi_") {
		return ProofUnverified
	}

	intent, err := s.fetch(reference)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.HTTPStatusCode == 404 {
			return ProofNotFound
		}
		log.Printf("stripe lookup for %s failed: %v", reference, err)
		return ProofLookupFail
	}
	if intent == nil {
		return ProofNotFound
	}
	return "stripe:" + string(intent.Status)
}

// NoopInspector never looks anything up.
type NoopInspector struct{}

func (NoopInspector) Inspect(ctx context.Context, reference string) string {
	return ProofUnverified
}
