package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/backend"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geo"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geolocation"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/poller"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/session"
)

var (
	ErrWrongState = errors.New("action not allowed in current state")
	ErrNoFix      = errors.New("no location fix yet")
	ErrValidation = errors.New("invalid input")
	ErrNotRunning = errors.New("session runner is not running")
	ErrRejected   = errors.New("rejected by game server")
)

// Backend is the remote game service.
type Backend interface {
	Play(ctx context.Context, routes backend.Routes, req backend.LocationRequest) (backend.PlayResponse, error)
	AWTY(ctx context.Context, routes backend.Routes, req backend.LocationRequest) (backend.AWTYResponse, error)
	Next(ctx context.Context, routes backend.Routes, req backend.NextRequest) (backend.NextResponse, error)
	Game(ctx context.Context, routes backend.Routes, id string) (backend.GameInfo, error)
}

type Identity interface {
	GetOrCreateUserID(ctx context.Context) (string, error)
}

// Positions is the read side of the geolocation tracker.
type Positions interface {
	Latest() (geolocation.Position, bool)
	LastError() *geolocation.PositionError
}

type Config struct {
	GameRef string
	Poll    poller.Config
}

// Indicator points from the player to the current target, for the
// off-screen arrow.
type Indicator struct {
	DistanceMeters float64 `json:"distanceMeters"`
	BearingDegrees float64 `json:"bearingDegrees"`
	// InRange is set when the target has a radius and the player is inside it.
	InRange bool `json:"inRange"`
}

// Snapshot is the read-only view the UI renders.
type Snapshot struct {
	Mode        string            `json:"mode"`
	State       session.State     `json:"state"`
	Game        *backend.GameInfo `json:"game,omitempty"`
	Score       int               `json:"score"`
	Collected   int               `json:"collected"`
	Total       int               `json:"total"`
	TargetIndex int               `json:"targetIndex"`
	Target      *backend.Target   `json:"target,omitempty"`
	Task        *backend.Task     `json:"task,omitempty"`
	Hint        string            `json:"hint,omitempty"`
	Message     string            `json:"message,omitempty"`
	Error       string            `json:"error,omitempty"`
	Indicator   *Indicator        `json:"indicator,omitempty"`
}

// Runner drives one play session: it owns the state machine, starts the
// poller on entering playing, and stops it on leaving.
type Runner struct {
	mode      Mode
	cfg       Config
	backend   Backend
	ids       Identity
	positions Positions
	logger    *slog.Logger

	// actionMu serializes player actions across their backend calls.
	actionMu sync.Mutex

	mu         sync.Mutex
	runCtx     context.Context
	machine    *session.Machine
	userID     string
	game       *backend.GameInfo
	progress   backend.Session
	task       *backend.Task
	hint       string
	message    string
	errMsg     string
	pollCancel context.CancelFunc
	pollGen    int
	onChange   func(Snapshot)

	polls sync.WaitGroup
}

func NewRunner(mode Mode, cfg Config, be Backend, ids Identity, positions Positions, logger *slog.Logger) *Runner {
	return &Runner{
		mode:      mode,
		cfg:       cfg,
		backend:   be,
		ids:       ids,
		positions: positions,
		logger:    logger.With("mode", mode.Name, "game_ref", cfg.GameRef),
		machine:   session.NewMachine(),
	}
}

// OnChange registers fn to receive a snapshot after every change. fn runs
// with the runner locked; it must not block or call back into the runner.
func (r *Runner) OnChange(fn func(Snapshot)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Runner) Mode() Mode { return r.mode }

// Run loads the game and keeps the session alive until ctx is cancelled.
// On return the poller has stopped and no further callbacks fire.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.runCtx = ctx
	r.mu.Unlock()

	r.load(ctx)

	<-ctx.Done()

	r.mu.Lock()
	r.stopPollingLocked()
	r.runCtx = nil
	r.mu.Unlock()
	r.polls.Wait()
	return nil
}

func (r *Runner) load(ctx context.Context) {
	userID, err := r.ids.GetOrCreateUserID(ctx)
	if err != nil {
		r.failWith("Could not create a player id.", err)
		return
	}
	info, err := r.backend.Game(ctx, r.mode.Routes, r.cfg.GameRef)
	if err != nil {
		r.failWith("This game could not be found.", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = userID
	r.game = &info
	r.progress.Total = info.TargetsTotal
	r.fireLocked(session.EventLoaded)
}

// Start begins (or resumes) the session at the player's current position.
func (r *Runner) Start(ctx context.Context) error {
	r.actionMu.Lock()
	defer r.actionMu.Unlock()

	r.mu.Lock()
	if r.runCtx == nil {
		r.mu.Unlock()
		return ErrNotRunning
	}
	if err := r.requireLocked(session.StatePreview); err != nil {
		r.mu.Unlock()
		return err
	}
	pos, ok := r.positions.Latest()
	if !ok {
		if pe := r.positions.LastError(); pe != nil && pe.Code == geolocation.CodePermissionDenied {
			r.errMsg = pe.Code.UserMessage()
			r.fireLocked(session.EventFail)
			r.mu.Unlock()
			return pe
		}
		r.mu.Unlock()
		return ErrNoFix
	}
	userID := r.userID
	r.mu.Unlock()

	resp, err := r.backend.Play(ctx, r.mode.Routes, backend.LocationRequest{
		UserID:  userID,
		GameRef: r.cfg.GameRef,
		Lat:     pos.Lat,
		Lng:     pos.Lng,
	})
	if err == nil && !resp.OK {
		err = fmt.Errorf("play rejected: %s", resp.Message)
	}
	if err != nil {
		r.failWith("The game could not be started.", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireLocked(session.StatePreview); err != nil {
		return err
	}
	r.applySessionLocked(resp.Session)
	r.fireLocked(session.EventStart)
	if r.progress.Completed {
		r.fireLocked(session.EventComplete)
	}
	return nil
}

// SubmitAnswer sends the player's answer to the open question. A wrong
// answer keeps the question open with an inline error.
func (r *Runner) SubmitAnswer(ctx context.Context, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fmt.Errorf("%w: answer is required", ErrValidation)
	}

	r.actionMu.Lock()
	defer r.actionMu.Unlock()

	r.mu.Lock()
	if err := r.requireLocked(session.StateQuestion); err != nil {
		r.mu.Unlock()
		return err
	}
	req := r.nextRequestLocked(backend.ActionAnswer)
	req.Answer = answer
	r.mu.Unlock()

	resp, err := r.backend.Next(ctx, r.mode.Routes, req)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireLocked(session.StateQuestion); err != nil {
		return err
	}
	if !resp.OK && resp.Outcome == nil {
		return r.rejectLocked("Your answer could not be sent.")
	}
	r.applySessionLocked(resp.Session)
	r.followUpLocked(resp.Task)

	if resp.Outcome != nil && resp.Outcome.Correct {
		if resp.Session == nil {
			r.progress.Collected++
		}
		r.message = orDefault(resp.Outcome.Message, "Correct!")
		r.errMsg = ""
		r.fireLocked(session.EventAnswerCorrect)
		return nil
	}

	msg := "That's not right. Try again."
	if resp.Outcome != nil {
		msg = orDefault(resp.Outcome.Message, msg)
	}
	r.errMsg = msg
	r.fireLocked(session.EventAnswerWrong)
	return nil
}

// Collect picks up the item waiting at the current target.
func (r *Runner) Collect(ctx context.Context) error {
	r.actionMu.Lock()
	defer r.actionMu.Unlock()

	r.mu.Lock()
	if err := r.requireLocked(session.StateArrived); err != nil {
		r.mu.Unlock()
		return err
	}
	req := r.nextRequestLocked(backend.ActionCollect)
	r.mu.Unlock()

	resp, err := r.backend.Next(ctx, r.mode.Routes, req)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireLocked(session.StateArrived); err != nil {
		return err
	}
	if !resp.OK {
		msg := "This item could not be collected."
		if resp.Outcome != nil {
			msg = orDefault(resp.Outcome.Message, msg)
		}
		return r.rejectLocked(msg)
	}
	r.followUpLocked(resp.Task)
	if resp.Session != nil {
		r.applySessionLocked(resp.Session)
	} else {
		r.progress.Collected++
	}
	msg := "Collected!"
	if resp.Outcome != nil {
		msg = orDefault(resp.Outcome.Message, msg)
	}
	r.message = msg
	r.errMsg = ""
	r.fireLocked(session.EventCollect)
	return nil
}

// Restart asks the server to reset the player's progress and returns the
// session to preview, from where Start begins it again.
func (r *Runner) Restart(ctx context.Context) error {
	r.actionMu.Lock()
	defer r.actionMu.Unlock()

	r.mu.Lock()
	if err := r.requireRestartableLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	req := r.nextRequestLocked(backend.ActionRestart)
	r.mu.Unlock()

	resp, err := r.backend.Next(ctx, r.mode.Routes, req)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRestartableLocked(); err != nil {
		return err
	}
	if !resp.OK {
		msg := "The game could not be restarted."
		if resp.Outcome != nil {
			msg = orDefault(resp.Outcome.Message, msg)
		}
		return r.rejectLocked(msg)
	}
	r.progress = backend.Session{Total: r.progress.Total}
	r.applySessionLocked(resp.Session)
	r.task = nil
	r.hint = ""
	r.message = ""
	r.errMsg = ""
	r.fireLocked(session.EventRestart)
	return nil
}

func (r *Runner) requireRestartableLocked() error {
	if _, ok := session.Next(r.machine.State(), session.EventRestart); !ok {
		return fmt.Errorf("%w: cannot restart in %s", ErrWrongState, r.machine.State())
	}
	return nil
}

// Continue closes the success dialog and heads for the next target, or
// finishes the session when nothing is left.
func (r *Runner) Continue() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireLocked(session.StateSuccess); err != nil {
		return err
	}
	r.task = nil
	r.message = ""
	r.errMsg = ""
	if r.finishedLocked() {
		r.fireLocked(session.EventComplete)
		return nil
	}
	r.fireLocked(session.EventContinue)
	return nil
}

// Dismiss closes an arrival or question dialog without acting on it.
func (r *Runner) Dismiss() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.machine.State()
	if st != session.StateArrived && st != session.StateQuestion {
		return fmt.Errorf("%w: cannot dismiss in %s", ErrWrongState, st)
	}
	r.errMsg = ""
	r.fireLocked(session.EventDismiss)
	return nil
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Runner) snapshotLocked() Snapshot {
	s := Snapshot{
		Mode:        r.mode.Name,
		State:       r.machine.State(),
		Game:        r.game,
		Score:       r.progress.Score,
		Collected:   r.progress.Collected,
		Total:       r.progress.Total,
		TargetIndex: r.progress.TargetIndex,
		Target:      r.progress.Target,
		Task:        r.task,
		Hint:        r.hint,
		Message:     r.message,
		Error:       r.errMsg,
	}
	if s.Target != nil {
		if pos, ok := r.positions.Latest(); ok {
			target := geo.Point{Lat: s.Target.Lat, Lng: s.Target.Lng}
			s.Indicator = &Indicator{
				DistanceMeters: geo.HaversineMeters(pos.Point(), target),
				BearingDegrees: geo.BearingDegrees(pos.Point(), target),
			}
			if rad := s.Target.RadiusMeters; rad != nil {
				s.Indicator.InRange = geo.Within(pos.Point(), target, *rad)
			}
		}
	}
	return s
}

// Notify publishes the current snapshot, e.g. after the player moved.
func (r *Runner) Notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishLocked()
}

func (r *Runner) check(ctx context.Context, pos geolocation.Position) (backend.AWTYResponse, error) {
	r.mu.Lock()
	req := backend.LocationRequest{
		UserID:  r.userID,
		GameRef: r.cfg.GameRef,
		Lat:     pos.Lat,
		Lng:     pos.Lng,
	}
	r.mu.Unlock()
	return r.backend.AWTY(ctx, r.mode.Routes, req)
}

func (r *Runner) handlePoll(gen int, res backend.AWTYResponse) poller.Directive {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.pollGen || r.machine.State() != session.StatePlaying {
		return poller.Stop
	}
	r.applySessionLocked(res.Session)

	switch {
	case res.Completed || r.progress.Completed:
		r.fireLocked(session.EventComplete)
		return poller.Stop
	case res.Arrived:
		ev := r.mode.Classify(res.Task)
		r.task = res.Task
		r.hint = ""
		if ev == session.EventCollected {
			if res.Session == nil {
				r.progress.Collected++
			}
			r.message = "Collected!"
		}
		r.fireLocked(ev)
		return poller.Stop
	default:
		r.hint = res.Hint
		r.publishLocked()
		return poller.Continue
	}
}

func (r *Runner) fireLocked(e session.Event) {
	from := r.machine.State()
	to, err := r.machine.Fire(e)
	if err != nil {
		r.logger.Debug("transition ignored", "event", e, "state", from)
		return
	}
	r.logger.Info("session transition", "from", from, "event", e, "to", to)

	switch {
	case to == session.StatePlaying && r.pollCancel == nil:
		r.startPollingLocked()
	case to != session.StatePlaying:
		r.stopPollingLocked()
	}
	r.publishLocked()
}

func (r *Runner) startPollingLocked() {
	if r.runCtx == nil {
		return
	}
	ctx, cancel := context.WithCancel(r.runCtx)
	r.pollGen++
	gen := r.pollGen
	r.pollCancel = cancel

	p := poller.New(r.cfg.Poll, r.positions, r.check, func(res backend.AWTYResponse) poller.Directive {
		return r.handlePoll(gen, res)
	}, r.logger)

	r.polls.Add(1)
	go func() {
		defer r.polls.Done()
		p.Run(ctx)
	}()
}

func (r *Runner) stopPollingLocked() {
	if r.pollCancel == nil {
		return
	}
	r.pollCancel()
	r.pollCancel = nil
	r.pollGen++
}

func (r *Runner) publishLocked() {
	if r.onChange != nil {
		r.onChange(r.snapshotLocked())
	}
}

func (r *Runner) failWith(msg string, err error) {
	r.logger.Error("session failed", "error", err)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errMsg = msg
	r.fireLocked(session.EventFail)
}

// rejectLocked surfaces a server refusal as the inline error and leaves the
// state untouched.
func (r *Runner) rejectLocked(msg string) error {
	r.errMsg = msg
	r.publishLocked()
	return fmt.Errorf("%w: %s", ErrRejected, msg)
}

// followUpLocked keeps a task the server handed back with a /next result.
func (r *Runner) followUpLocked(t *backend.Task) {
	if t != nil {
		r.task = t
	}
}

func (r *Runner) requireLocked(want session.State) error {
	if st := r.machine.State(); st != want {
		return fmt.Errorf("%w: in %s, need %s", ErrWrongState, st, want)
	}
	return nil
}

func (r *Runner) nextRequestLocked(action backend.Action) backend.NextRequest {
	req := backend.NextRequest{
		UserID:  r.userID,
		GameRef: r.cfg.GameRef,
		Action:  action,
	}
	if r.task != nil {
		req.TaskID = r.task.ID
	}
	return req
}

func (r *Runner) applySessionLocked(s *backend.Session) {
	if s == nil {
		return
	}
	total := r.progress.Total
	r.progress = *s
	if r.progress.Total == 0 {
		r.progress.Total = total
	}
}

func (r *Runner) finishedLocked() bool {
	p := r.progress
	return p.Completed || (p.Total > 0 && p.Collected >= p.Total)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
