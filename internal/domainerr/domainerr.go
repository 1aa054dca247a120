// Package domainerr defines the error taxonomy shared by services, repositories
// and the HTTP layer. Every business failure carries a Kind so handlers can map
// it to a status code without string matching.
package domainerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindTransicionInvalida Kind = "transicion_invalida"
	KindInvariante         Kind = "invariante"
	KindNoEncontrado       Kind = "no_encontrado"
	KindConflicto          Kind = "conflicto"
	KindNoAutorizado       Kind = "no_autorizado"
	KindValidacion         Kind = "validacion"
)

// Sentinels usable with errors.Is; any *Error of the same Kind matches.
var (
	ErrTransicionInvalida = &Error{Kind: KindTransicionInvalida, Msg: "transicion invalida"}
	ErrInvariante         = &Error{Kind: KindInvariante, Msg: "invariante violada"}
	ErrNoEncontrado       = &Error{Kind: KindNoEncontrado, Msg: "no encontrado"}
	ErrConflicto          = &Error{Kind: KindConflicto, Msg: "conflicto"}
	ErrNoAutorizado       = &Error{Kind: KindNoAutorizado, Msg: "no autorizado"}
	ErrValidacion         = &Error{Kind: KindValidacion, Msg: "datos invalidos"}
)

// Error is a classified domain failure.
type Error struct {
	Kind Kind
	Msg  string
	// Actual and Permitidos are set for KindTransicionInvalida.
	Actual     string
	Permitidos []string
	// Involucrados lists the identities that broke an invariant.
	Involucrados []string
	Err          error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Actual != "" {
		fmt.Fprintf(&b, " (estado actual: %s", e.Actual)
		if len(e.Permitidos) > 0 {
			fmt.Fprintf(&b, "; permitidos: %s", strings.Join(e.Permitidos, ", "))
		}
		b.WriteString(")")
	}
	if len(e.Involucrados) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Involucrados, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NoEncontrado(format string, args ...any) *Error {
	return &Error{Kind: KindNoEncontrado, Msg: fmt.Sprintf(format, args...)}
}

func Conflicto(format string, args ...any) *Error {
	return &Error{Kind: KindConflicto, Msg: fmt.Sprintf(format, args...)}
}

func NoAutorizado(format string, args ...any) *Error {
	return &Error{Kind: KindNoAutorizado, Msg: fmt.Sprintf(format, args...)}
}

func Validacion(format string, args ...any) *Error {
	return &Error{Kind: KindValidacion, Msg: fmt.Sprintf(format, args...)}
}

// TransicionInvalida reports an operation attempted from a state that does not
// allow it. permitidos lists the states (or operations) reachable from actual.
func TransicionInvalida(op, actual string, permitidos []string) *Error {
	return &Error{
		Kind:       KindTransicionInvalida,
		Msg:        fmt.Sprintf("no se puede %s", op),
		Actual:     actual,
		Permitidos: permitidos,
	}
}

// Invariante reports a rule of the model that the command would break.
func Invariante(msg string, involucrados ...string) *Error {
	return &Error{Kind: KindInvariante, Msg: msg, Involucrados: involucrados}
}

// KindOf returns the Kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
