// Package geolocation turns a platform position stream into a single
// latest-known fix with classified errors and stale-watch recovery.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geo"
)

// Position is one normalized fix. Accuracy is in meters and absent for
// synthetic positions.
type Position struct {
	Lat      float64  `json:"lat" yaml:"lat"`
	Lng      float64  `json:"lng" yaml:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
}

func (p Position) Point() geo.Point {
	return geo.Point{Lat: p.Lat, Lng: p.Lng}
}

// Options mirrors the knobs a platform location API accepts.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Update is one item of a watch stream: either a position or an error.
type Update struct {
	Position Position
	Err      error
}

// Provider is a platform location subscription.
type Provider interface {
	// CurrentPosition returns a single fix or fails when ctx is done.
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
	// Watch streams updates until ctx is cancelled, then closes the channel.
	Watch(ctx context.Context, opts Options) (<-chan Update, error)
}

type ErrorCode string

const (
	CodePermissionDenied    ErrorCode = "permission_denied"
	CodePositionUnavailable ErrorCode = "position_unavailable"
	CodeTimeout             ErrorCode = "timeout"
	CodeUnknown             ErrorCode = "unknown"
)

// UserMessage is the text shown to the player for the code.
func (c ErrorCode) UserMessage() string {
	switch c {
	case CodePermissionDenied:
		return "Location access was denied. Allow location access to play."
	case CodePositionUnavailable:
		return "Your location is unavailable right now. Try moving to an open area."
	case CodeTimeout:
		return "Finding your location is taking longer than usual. Still trying."
	default:
		return "Something went wrong while finding your location."
	}
}

// ParseErrorCode maps a wire code to an ErrorCode; anything unrecognized is
// CodeUnknown.
func ParseErrorCode(s string) ErrorCode {
	switch c := ErrorCode(s); c {
	case CodePermissionDenied, CodePositionUnavailable, CodeTimeout:
		return c
	default:
		return CodeUnknown
	}
}

type PositionError struct {
	Code    ErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Classify reduces any provider error to a PositionError.
func Classify(err error) *PositionError {
	var pe *PositionError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pe):
		return pe
	case errors.Is(err, context.DeadlineExceeded):
		return &PositionError{Code: CodeTimeout, Message: err.Error()}
	default:
		return &PositionError{Code: CodeUnknown, Message: err.Error()}
	}
}
