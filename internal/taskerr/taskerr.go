// Package taskerr defines the failure shapes a harness task can report.
//
// The set is closed: a Kind is either a Simple failure carrying a message, or
// a Combined failure carrying the ordered causes of a unit of work that forked
// into several sub-operations. Kind values are domain data. They travel inside
// a failed result.Result and are never raised, inspected, or rewritten by the
// harness itself.
//
// Callers that need to handle every shape use Visit rather than a type switch:
//
//	taskerr.Visit(k,
//	    func(s taskerr.Simple) { ... },
//	    func(c *taskerr.Combined) { ... },
//	)
package taskerr

import "strings"

// Kind is a failure reported by a harness task.
//
// The unexported marker method restricts implementers to this package.
type Kind interface {
	error
	kindMarker()
}

// Simple is a single descriptive failure.
//
// Simple is comparable, so two Simple values are equal when their messages
// are equal. errors.Is(err, taskerr.Fail("x")) matches any Simple "x" in a
// cause tree.
type Simple struct {
	Message string
}

// Fail creates a Simple failure with the given message.
func Fail(message string) Simple {
	return Simple{Message: message}
}

// Error implements the error interface.
func (s Simple) Error() string {
	return s.Message
}

func (Simple) kindMarker() {}

// Combined is a failure composed from several sub-failures.
//
// Causes are kept exactly as supplied: insertion order, no deduplication,
// nested Combined values left nested.
type Combined struct {
	causes []error
}

// Combine creates a Combined failure from the given causes.
//
// Nil causes are kept. An empty cause list is legal and means an
// unspecified aggregate failure (see IsUnspecified).
func Combine(causes ...error) *Combined {
	c := make([]error, len(causes))
	copy(c, causes)
	return &Combined{causes: c}
}

// Causes returns a copy of the causes in insertion order.
func (c *Combined) Causes() []error {
	out := make([]error, len(c.causes))
	copy(out, c.causes)
	return out
}

// Len returns the number of direct causes.
func (c *Combined) Len() int {
	return len(c.causes)
}

// IsUnspecified reports whether the combining operation produced no causes.
func (c *Combined) IsUnspecified() bool {
	return len(c.causes) == 0
}

// Error implements the error interface.
//
// Format: "combined failure: a; b; c". An empty Combined reads
// "combined failure: unspecified".
func (c *Combined) Error() string {
	if c.IsUnspecified() {
		return "combined failure: unspecified"
	}
	parts := make([]string, len(c.causes))
	for i, cause := range c.causes {
		if cause == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = cause.Error()
	}
	return "combined failure: " + strings.Join(parts, "; ")
}

// Unwrap exposes the causes to errors.Is and errors.As.
func (c *Combined) Unwrap() []error {
	return c.causes
}

func (*Combined) kindMarker() {}

// Visit calls exactly one of the handlers depending on the shape of k.
// A nil k calls neither.
func Visit(k Kind, onSimple func(Simple), onCombined func(*Combined)) {
	switch v := k.(type) {
	case Simple:
		onSimple(v)
	case *Combined:
		onCombined(v)
	}
}

// Messages flattens k into its leaf messages, depth-first, in cause order.
//
// Nested Combined causes are expanded in place. Causes that are plain Go
// errors contribute their Error() text. An unspecified Combined contributes
// nothing.
func Messages(k Kind) []string {
	var out []string
	var walk func(err error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if kind, ok := err.(Kind); ok {
			Visit(kind,
				func(s Simple) { out = append(out, s.Message) },
				func(c *Combined) {
					for _, cause := range c.causes {
						walk(cause)
					}
				},
			)
			return
		}
		out = append(out, err.Error())
	}
	walk(k)
	return out
}
