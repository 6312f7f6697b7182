// Package reminder maps the time left before a dispute deadline to a
// countdown level. It never touches state; callers act on the Decision.
package reminder

import (
	"time"

	"rental-order-backend/internal/clock"
)

type Action int

const (
	ActionNone Action = iota
	ActionRemind
	ActionEscalate
)

func (a Action) String() string {
	switch a {
	case ActionRemind:
		return "remind"
	case ActionEscalate:
		return "escalate"
	}
	return "none"
}

// Step is one rung of the reminder ladder: a dispute whose deadline is at
// most Within away is due for Level.
type Step struct {
	Within time.Duration
	Level  int
}

// ladder runs from the tightest window outwards
var ladder = []Step{
	{time.Hour, 3},
	{6 * time.Hour, 2},
	{24 * time.Hour, 1},
}

// Ladder returns the reminder steps from the tightest window outwards
func Ladder() []Step {
	out := make([]Step, len(ladder))
	copy(out, ladder)
	return out
}

type Decision struct {
	Action    Action
	Level     int
	Remaining time.Duration
}

// HoursLeft rounds the remaining time up to whole hours
func (d Decision) HoursLeft() int {
	if d.Remaining <= 0 {
		return 0
	}
	h := int(d.Remaining / time.Hour)
	if d.Remaining%time.Hour != 0 {
		h++
	}
	return h
}

// LevelFor returns the reminder level for the remaining time, 0 when the
// deadline is more than 24h out.
func LevelFor(remaining time.Duration) int {
	for _, st := range ladder {
		if remaining <= st.Within {
			return st.Level
		}
	}
	return 0
}

// Decide returns Escalate once the deadline has passed, Remind when the
// remaining time has crossed a level above currentLevel, None otherwise.
func Decide(deadlineAt, now time.Time, currentLevel int) Decision {
	remaining := clock.Remaining(deadlineAt, now)
	if clock.Breached(deadlineAt, now) {
		return Decision{Action: ActionEscalate, Remaining: remaining}
	}
	level := LevelFor(remaining)
	if level == 0 || level <= currentLevel {
		return Decision{Action: ActionNone, Level: level, Remaining: remaining}
	}
	return Decision{Action: ActionRemind, Level: level, Remaining: remaining}
}
