package waveform

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a configuration cannot be simulated.
type ErrorKind int

const (
	// InvalidComponentValues marks non-positive or non-finite physical inputs.
	InvalidComponentValues ErrorKind = iota + 1
	// OscillatoryCircuit marks an under-damped network with complex roots.
	OscillatoryCircuit
	// InvalidWaveformShape marks degenerate root ordering or a peak factor that is not finite.
	InvalidWaveformShape
)

// String returns the kind name used in logs, metrics and API responses.
func (k ErrorKind) String() string {
	switch k {
	case InvalidComponentValues:
		return "InvalidComponentValues"
	case OscillatoryCircuit:
		return "OscillatoryCircuit"
	case InvalidWaveformShape:
		return "InvalidWaveformShape"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for errors.Is checks against a *SimulationError.
var (
	ErrInvalidComponentValues = &SimulationError{Kind: InvalidComponentValues}
	ErrOscillatoryCircuit     = &SimulationError{Kind: OscillatoryCircuit}
	ErrInvalidWaveformShape   = &SimulationError{Kind: InvalidWaveformShape}
)

// SimulationError is returned by Simulate when no waveform can be produced.
type SimulationError struct {
	Kind ErrorKind
	Msg  string
}

func (e *SimulationError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is matches any SimulationError of the same kind.
func (e *SimulationError) Is(target error) bool {
	t, ok := target.(*SimulationError)
	return ok && t.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...any) error {
	return &SimulationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, if it wraps a SimulationError.
func KindOf(err error) (ErrorKind, bool) {
	var se *SimulationError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}
