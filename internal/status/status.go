// ABOUTME: Process-wide backend status tracker shared by sessions and the CLI
// ABOUTME: Holds the last reported status level plus the authenticated user's plan

package status

import "sync"

// Level classifies the backend's health as last reported.
type Level string

const (
	LevelNormal  Level = "normal"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Snapshot is one observed status.
type Snapshot struct {
	Level   Level
	Busy    bool
	Message string
}

// Tracker records backend status updates and the user's billing plan. It is
// constructed once and injected; sessions publish quota warnings into it and
// read the plan to decide whether a quota fallback applies.
type Tracker struct {
	mu       sync.Mutex
	current  Snapshot
	plan     string
	watchers []func(Snapshot)
}

func NewTracker() *Tracker {
	return &Tracker{current: Snapshot{Level: LevelNormal}}
}

// UpdateBackendStatus records a new status and notifies watchers.
func (t *Tracker) UpdateBackendStatus(level Level, busy bool, message string) {
	t.mu.Lock()
	t.current = Snapshot{Level: level, Busy: busy, Message: message}
	watchers := append(([]func(Snapshot))(nil), t.watchers...)
	snap := t.current
	t.mu.Unlock()

	for _, w := range watchers {
		w(snap)
	}
}

// BackendStatus returns the last recorded status.
func (t *Tracker) BackendStatus() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// SetPlan records the user's plan as reported at sign-in ("free",
// "individual", "business", ...).
func (t *Tracker) SetPlan(plan string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.plan = plan
}

// Plan returns the recorded plan, empty when unknown.
func (t *Tracker) Plan() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.plan
}

// EligibleForFallback reports whether a quota error may trigger an automatic
// model fallback. Unknown and free plans never fall back.
func (t *Tracker) EligibleForFallback() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.plan != "" && t.plan != "free"
}

// Watch registers a callback invoked on every status update.
func (t *Tracker) Watch(fn func(Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.watchers = append(t.watchers, fn)
}
