package builderror

import "github.com/pkg/errors"

// Location points at the fault inside a tree, e.g. a syntax error in one
// of the input files of a compiler plugin.
type Location struct {
	File    string `json:"file"`
	TreeDir string `json:"treeDir"`
	// Line is 1-based; zero means unknown.
	Line int `json:"line"`
	// Column is 0-based and only meaningful when Line is set.
	Column int `json:"column"`
}

// Located is implemented by errors that know where the fault is.
type Located interface {
	ErrorLocation() *Location
}

// LocationError attaches a Location to an error.
type LocationError struct {
	Err      error
	Location Location
}

// WithLocation returns err annotated with loc.
func WithLocation(err error, loc Location) error {
	return &LocationError{Err: err, Location: loc}
}

func (e *LocationError) Error() string { return e.Err.Error() }

func (e *LocationError) Unwrap() error { return e.Err }

// ErrorLocation implements Located.
func (e *LocationError) ErrorLocation() *Location { return &e.Location }

// locationOf returns a copy of the first location found in err's chain.
func locationOf(err error) *Location {
	var located Located
	if !errors.As(err, &located) {
		return nil
	}
	l := located.ErrorLocation()
	if l == nil {
		return nil
	}
	cp := *l
	return &cp
}
