package backend

// LocationRequest is the body of /play and /awty.
type LocationRequest struct {
	UserID  string  `json:"user_id"`
	GameRef string  `json:"game_ref"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Action string

const (
	ActionAnswer  Action = "answer"
	ActionCollect Action = "collect"
	ActionRestart Action = "restart"
)

// NextRequest is the body of /next.
type NextRequest struct {
	UserID  string `json:"user_id"`
	GameRef string `json:"game_ref"`
	Action  Action `json:"action"`
	TaskID  string `json:"task_id,omitempty"`
	Answer  string `json:"answer,omitempty"`
}

// Target is the coordinate the player is currently walking to.
type Target struct {
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	RadiusMeters *float64 `json:"radius_meters,omitempty"`
	Label        string   `json:"label,omitempty"`
}

// Session is the server's view of the player's progress.
type Session struct {
	ID          string  `json:"id"`
	Score       int     `json:"score"`
	Collected   int     `json:"collected"`
	Total       int     `json:"total"`
	TargetIndex int     `json:"target_index"`
	Target      *Target `json:"target,omitempty"`
	Completed   bool    `json:"completed"`
}

// Task is what the player is asked to do on arrival. A task without a
// question is a pure collect or reveal.
type Task struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind,omitempty"`
	Title    string   `json:"title,omitempty"`
	Question string   `json:"question,omitempty"`
	Options  []string `json:"options,omitempty"`
	Item     string   `json:"item,omitempty"`
	Content  string   `json:"content,omitempty"`
}

// Outcome reports the result of a /next action.
type Outcome struct {
	Correct bool   `json:"correct"`
	Message string `json:"message,omitempty"`
}

type PlayResponse struct {
	OK      bool     `json:"ok"`
	Session *Session `json:"session,omitempty"`
	Message string   `json:"message,omitempty"`
}

type AWTYResponse struct {
	OK        bool     `json:"ok"`
	Arrived   bool     `json:"arrived"`
	Hint      string   `json:"hint,omitempty"`
	Task      *Task    `json:"task,omitempty"`
	Completed bool     `json:"completed,omitempty"`
	Session   *Session `json:"session,omitempty"`
}

type NextResponse struct {
	OK      bool     `json:"ok"`
	Task    *Task    `json:"task,omitempty"`
	Outcome *Outcome `json:"outcome,omitempty"`
	Session *Session `json:"session,omitempty"`
}

// GameInfo is the static metadata of a trail or game.
type GameInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	TargetsTotal int    `json:"targets_total,omitempty"`
}
