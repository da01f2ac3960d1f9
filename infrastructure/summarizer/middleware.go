package summarizer

// wrapper is implemented by every middleware so callers can reach the
// provider behind the chain.
type wrapper interface {
	Unwrap() Backend
}

// Unwrap walks the middleware chain and returns the bare provider backend.
func Unwrap(b Backend) Backend {
	for {
		w, ok := b.(wrapper)
		if !ok {
			return b
		}
		b = w.Unwrap()
	}
}

// AsModelLister reports whether the provider behind b can list models.
func AsModelLister(b Backend) (ModelLister, bool) {
	l, ok := Unwrap(b).(ModelLister)
	return l, ok
}

// CircuitState reports the state of the first circuit breaker in b's
// chain. The boolean is false when the chain has no breaker.
func CircuitState(b Backend) (CircuitBreakerState, bool) {
	for b != nil {
		if c, ok := b.(*circuitBreakerBackend); ok {
			return c.Breaker().State(), true
		}
		w, ok := b.(wrapper)
		if !ok {
			break
		}
		b = w.Unwrap()
	}
	return StateClosed, false
}
