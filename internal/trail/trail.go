// Package trail validates custom trails built in the trail designer before
// they are published.
package trail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geo"
)

// DefaultMinSpacingMeters keeps placed markers far enough apart that two
// never trigger from the same spot.
const DefaultMinSpacingMeters = 200.0

var (
	ErrValidation = errors.New("invalid trail")
	ErrTooClose   = errors.New("marker too close to another marker")
)

type Marker struct {
	Lat      float64 `json:"lat" yaml:"lat"`
	Lng      float64 `json:"lng" yaml:"lng"`
	Label    string  `json:"label,omitempty" yaml:"label,omitempty"`
	Question string  `json:"question,omitempty" yaml:"question,omitempty"`
	Answer   string  `json:"answer,omitempty" yaml:"answer,omitempty"`
}

func (m Marker) Point() geo.Point {
	return geo.Point{Lat: m.Lat, Lng: m.Lng}
}

type Draft struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Markers     []Marker `json:"markers" yaml:"markers"`
}

// TooCloseError names the existing marker a placement conflicts with.
type TooCloseError struct {
	Index          int
	DistanceMeters float64
	MinMeters      float64
}

func (e *TooCloseError) Error() string {
	return fmt.Sprintf("%.0f m from marker %d, minimum is %.0f m", e.DistanceMeters, e.Index+1, e.MinMeters)
}

func (e *TooCloseError) Unwrap() error { return ErrTooClose }

// CanPlace checks a candidate position against the markers already placed.
func CanPlace(markers []Marker, candidate geo.Point, minMeters float64) error {
	for i, m := range markers {
		d := geo.HaversineMeters(m.Point(), candidate)
		if d < minMeters {
			return &TooCloseError{Index: i, DistanceMeters: d, MinMeters: minMeters}
		}
	}
	return nil
}

// Problem is one thing wrong with a draft.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Field + ": " + p.Message
	}
	return "invalid trail: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate checks a whole draft: a name, at least one marker, questions
// paired with answers, and minimum spacing between every pair of markers.
func Validate(d Draft, minMeters float64) error {
	var problems []Problem

	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, Problem{Field: "name", Message: "name is required"})
	}
	if len(d.Markers) == 0 {
		problems = append(problems, Problem{Field: "markers", Message: "at least one marker is required"})
	}

	for i, m := range d.Markers {
		field := fmt.Sprintf("markers[%d]", i)
		q, a := strings.TrimSpace(m.Question), strings.TrimSpace(m.Answer)
		if q != "" && a == "" {
			problems = append(problems, Problem{Field: field, Message: "question needs an answer"})
		}
		if a != "" && q == "" {
			problems = append(problems, Problem{Field: field, Message: "answer has no question"})
		}
		var tc *TooCloseError
		if err := CanPlace(d.Markers[:i], m.Point(), minMeters); errors.As(err, &tc) {
			problems = append(problems, Problem{Field: field, Message: tc.Error()})
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
