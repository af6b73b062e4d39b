// Package game wires the shared proximity core to a game mode: Easter Event,
// Dino Hunt, Custom Trail, Universal Egg Hunt, or Map task.
package game

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/backend"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/session"
)

// Mode is everything that differs between game variants. The runner,
// poller, and state machine are shared.
type Mode struct {
	Name   string
	Title  string
	Routes backend.Routes
	// QuestionKinds are task kinds presented as a question even when the
	// task carries no question text (e.g. multiple choice on the map).
	QuestionKinds []string
}

// Classify maps an arrival payload to the event it fires: no task means the
// server already collected the pin, a question opens the quiz dialog, and
// anything else waits for the player to collect.
func (m Mode) Classify(task *backend.Task) session.Event {
	switch {
	case task == nil:
		return session.EventCollected
	case strings.TrimSpace(task.Question) != "", slices.Contains(m.QuestionKinds, task.Kind):
		return session.EventArrivedQuestion
	default:
		return session.EventArrivedCollect
	}
}

var modes = map[string]Mode{
	"easter": {
		Name:          "easter",
		Title:         "Easter Event",
		Routes:        backend.RoutesFor("/easter"),
		QuestionKinds: []string{"riddle"},
	},
	"dino": {
		Name:   "dino",
		Title:  "Dino Hunt",
		Routes: backend.RoutesFor("/dino"),
	},
	"trail": {
		Name:          "trail",
		Title:         "Custom Trail",
		Routes:        backend.RoutesFor("/trail"),
		QuestionKinds: []string{"question"},
	},
	"egghunt": {
		Name:   "egghunt",
		Title:  "Universal Egg Hunt",
		Routes: backend.RoutesFor("/egghunt"),
	},
	"map": {
		Name:          "map",
		Title:         "Map Task",
		Routes:        backend.RoutesFor("/map"),
		QuestionKinds: []string{"question", "quiz", "multiple_choice"},
	},
}

func ModeByName(name string) (Mode, error) {
	m, ok := modes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Mode{}, fmt.Errorf("unknown game mode %q (have %s)", name, strings.Join(ModeNames(), ", "))
	}
	return m, nil
}

func ModeNames() []string {
	names := make([]string, 0, len(modes))
	for n := range modes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
