package scene

import (
	"fmt"
	"math"

	"github.com/chazu/cityview/pkg/kernel"
)

// Severity indicates whether a finding rejects the record or is advisory.
type Severity int

const (
	SeverityError   Severity = iota // record is skipped
	SeverityWarning                 // record is kept
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single finding on one record.
type ValidationError struct {
	RecordID string
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] record %s: %s", e.Severity, e.RecordID, e.Message)
}

// HasErrors reports whether any finding is blocking.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePolygon checks a footprint record. An empty result means it is
// usable.
func ValidatePolygon(p Polygon) []ValidationError {
	var errs []ValidationError
	fail := func(sev Severity, format string, args ...any) {
		errs = append(errs, ValidationError{
			RecordID: p.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: sev,
		})
	}

	n := len(p.Ring)
	if n > 1 && p.Ring[0] == p.Ring[n-1] {
		n--
	}
	if n < 3 {
		fail(SeverityError, "ring has %d distinct points, need at least 3", n)
	}
	for i, pt := range p.Ring {
		if !finite(pt[0]) || !finite(pt[1]) {
			fail(SeverityError, "ring point %d is not finite", i)
			break
		}
	}
	if p.Height != nil {
		switch {
		case !finite(*p.Height):
			fail(SeverityError, "height is not finite")
		case *p.Height < 0:
			fail(SeverityError, "height %g is negative", *p.Height)
		case *p.Height == 0:
			fail(SeverityWarning, "height is zero")
		}
	}
	return errs
}

// ValidateNode checks a scene-node record.
func ValidateNode(n Node) []ValidationError {
	var errs []ValidationError
	fail := func(sev Severity, format string, args ...any) {
		errs = append(errs, ValidationError{
			RecordID: n.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: sev,
		})
	}

	if len(n.Vertices) == 0 || len(n.Indices) == 0 {
		fail(SeverityWarning, "node has no geometry")
		return errs
	}
	if len(n.Indices)%3 != 0 {
		fail(SeverityError, "index count %d is not a multiple of 3", len(n.Indices))
	}
	for i, idx := range n.Indices {
		if int(idx) >= len(n.Vertices) {
			fail(SeverityError, "index %d at position %d out of range (%d vertices)", idx, i, len(n.Vertices))
			break
		}
	}
	for i, v := range n.Vertices {
		if !kernel.IsFinite(v) {
			fail(SeverityError, "vertex %d is not finite", i)
			break
		}
	}
	if len(n.Normals) > 0 && len(n.Normals) != len(n.Vertices) {
		fail(SeverityError, "%d normals for %d vertices", len(n.Normals), len(n.Vertices))
	}
	return errs
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate runs the record checks over a whole load and returns every
// finding. It never mutates its input.
func Validate(polys []Polygon, nodes []Node) []ValidationError {
	var errs []ValidationError
	for _, p := range polys {
		errs = append(errs, ValidatePolygon(p)...)
	}
	for _, n := range nodes {
		errs = append(errs, ValidateNode(n)...)
	}
	return errs
}
