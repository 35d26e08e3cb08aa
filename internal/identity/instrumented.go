package identity

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type instrumented struct {
	next    Verifier
	results *prometheus.CounterVec
}

// Instrument counts verification outcomes on results, labelled by "result".
func Instrument(next Verifier, results *prometheus.CounterVec) Verifier {
	if results == nil {
		return next
	}
	return instrumented{next: next, results: results}
}

func (v instrumented) Verify(ctx context.Context, token string) (Identity, error) {
	id, err := v.next.Verify(ctx, token)
	switch {
	case err == nil:
		v.results.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrInvalidToken):
		v.results.WithLabelValues("invalid").Inc()
	case errors.Is(err, ErrProviderUnavailable):
		v.results.WithLabelValues("unavailable").Inc()
	default:
		v.results.WithLabelValues("error").Inc()
	}
	return id, err
}
