// Command trailcheck validates custom trail drafts before they are
// uploaded: structure, required fields, and marker spacing.
//
//	trailcheck [-min 200] [-json] draft.yaml...
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/trail"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type report struct {
	File     string          `json:"file"`
	Valid    bool            `json:"valid"`
	Markers  int             `json:"markers,omitempty"`
	Problems []trail.Problem `json:"problems,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// run returns the process exit code: 0 when every draft is valid, 1 when
// any is not, 2 on usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trailcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	minMeters := fs.Float64("min", trail.DefaultMinSpacingMeters, "minimum distance between markers, in meters")
	asJSON := fs.Bool("json", false, "print one JSON report per line")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: trailcheck [-min meters] [-json] draft.yaml...")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))

	code := 0
	for _, path := range fs.Args() {
		rep := check(path, *minMeters)
		if !rep.Valid {
			code = 1
		}
		if *asJSON {
			data, _ := json.Marshal(rep)
			fmt.Fprintln(stdout, string(data))
			continue
		}
		if rep.Valid {
			logger.Info("trail ok", "file", rep.File, "markers", rep.Markers)
			continue
		}
		if rep.Error != "" {
			logger.Error("trail unreadable", "file", rep.File, "error", rep.Error)
		}
		for _, p := range rep.Problems {
			logger.Error("trail invalid", "file", rep.File, "field", p.Field, "problem", p.Message)
		}
	}
	return code
}

func check(path string, minMeters float64) report {
	rep := report{File: path}

	d, err := trail.LoadDraft(path)
	if err == nil {
		rep.Markers = len(d.Markers)
		err = trail.Validate(d, minMeters)
	}

	var verr *trail.ValidationError
	switch {
	case err == nil:
		rep.Valid = true
	case errors.As(err, &verr):
		rep.Problems = verr.Problems
	default:
		rep.Error = err.Error()
	}
	return rep
}
