// Package builderror turns whatever a failing node produced into a structured
// BuildError that names the node, keeps the original error and stack, and
// carries the source location of the fault when the error knows it.
package builderror

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Marker precedes an instantiation stack in diagnostic messages.
const Marker = "-~- created here: -~-"

// Subject identifies the node a failure is attributed to.
type Subject struct {
	ID                 int
	Label              string
	Name               string
	Annotation         string
	InstantiationStack string
}

// Target is anything a failure can be attributed to.
type Target interface {
	ErrorSubject() Subject
}

// Payload is the diagnostic record attached to every BuildError.
type Payload struct {
	OriginalError      error
	NodeID             int
	NodeLabel          string
	NodeName           string
	NodeAnnotation     string
	InstantiationStack string
	// Location is nil unless the original error carried one.
	Location *Location
}

// MarshalJSON renders the original error by its message.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OriginalError      string    `json:"originalError"`
		NodeID             int       `json:"nodeId"`
		NodeLabel          string    `json:"nodeLabel"`
		NodeName           string    `json:"nodeName"`
		NodeAnnotation     string    `json:"nodeAnnotation"`
		InstantiationStack string    `json:"instantiationStack"`
		Location           *Location `json:"location,omitempty"`
	}{
		OriginalError:      p.OriginalError.Error(),
		NodeID:             p.NodeID,
		NodeLabel:          p.NodeLabel,
		NodeName:           p.NodeName,
		NodeAnnotation:     p.NodeAnnotation,
		InstantiationStack: p.InstantiationStack,
		Location:           p.Location,
	})
}

// BuildError reports a node whose build failed.
type BuildError struct {
	msg     string
	stack   errors.StackTrace
	Payload Payload
}

func (e *BuildError) Error() string { return e.msg }

// Unwrap returns the original error.
func (e *BuildError) Unwrap() error { return e.Payload.OriginalError }

// StackTrace returns the stack of the original error when it recorded one,
// and otherwise the stack at the point the error was enriched.
func (e *BuildError) StackTrace() errors.StackTrace { return e.stack }

// Format supports %+v, which prints the message followed by the stack.
func (e *BuildError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, e.msg)
			e.stack.Format(s, verb)
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, e.msg)
	case 'q':
		fmt.Fprintf(s, "%q", e.msg)
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Enrich converts v, the failure of the node t, into a BuildError. v may be
// an error, a string, nil, or any value recovered from a panic. An error that
// already wraps a BuildError is not wrapped again; the inner one is returned.
func Enrich(v any, t Target) *BuildError {
	original := normalize(v)

	var already *BuildError
	if errors.As(original, &already) {
		return already
	}

	subject := t.ErrorSubject()
	loc := locationOf(original)

	var b strings.Builder
	if loc != nil && loc.File != "" {
		b.WriteString(loc.File)
		if loc.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", loc.Line, loc.Column+1)
		}
		b.WriteString(": ")
	}
	b.WriteString(original.Error())
	if loc != nil && loc.TreeDir != "" {
		b.WriteString("\n  in ")
		b.WriteString(loc.TreeDir)
	}
	b.WriteString("\n  at ")
	b.WriteString(subject.Label)
	if loc == nil || loc.File == "" {
		b.WriteString("\n" + Marker + "\n")
		b.WriteString(subject.InstantiationStack)
	}

	var st errors.StackTrace
	var tracer stackTracer
	if errors.As(original, &tracer) {
		st = tracer.StackTrace()
	} else {
		st = errors.New("").(stackTracer).StackTrace()[1:]
	}

	return &BuildError{
		msg:   b.String(),
		stack: st,
		Payload: Payload{
			OriginalError:      original,
			NodeID:             subject.ID,
			NodeLabel:          subject.Label,
			NodeName:           subject.Name,
			NodeAnnotation:     subject.Annotation,
			InstantiationStack: subject.InstantiationStack,
			Location:           loc,
		},
	}
}

// normalize returns v as an error. Non-error values become errors whose
// message is their textual form.
func normalize(v any) error {
	switch t := v.(type) {
	case nil:
		return errors.New("nil")
	case error:
		if isNilError(t) {
			return errors.Errorf("nil (%T)", t)
		}
		return t
	case string:
		return errors.New(t)
	default:
		return errors.Errorf("%v", t)
	}
}

// isNilError reports whether err is a typed nil, such as a nil *os.PathError
// returned through the error interface. Its methods may not be callable.
func isNilError(err error) bool {
	rv := reflect.ValueOf(err)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
