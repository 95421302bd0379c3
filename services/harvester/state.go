package harvester

import (
	"time"

	"github.com/mazen160/go-random"
)

type State int

const (
	Idle State = iota
	Navigating
	Waiting
	Extracting
	Rotating
	Checkpointing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Navigating:
		return "navigating"
	case Waiting:
		return "waiting"
	case Extracting:
		return "extracting"
	case Rotating:
		return "rotating"
	case Checkpointing:
		return "checkpointing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Session is the state of one harvest, it is created fresh by every call to
// Harvest and passed to each step.
type Session struct {
	ID        string
	StartDate time.Time
	State     State

	// Iteration is the number of reveal iterations started so far.
	Iteration int
	// LastRotation is the iteration the identity was last rotated at.
	LastRotation int
	// Retrying is set while the reveal that follows a failure-triggered
	// rotation is running, a failure then is fatal.
	Retrying bool

	Rotations   int
	Checkpoints int
	// Exhausted is set when the listing had nothing more to reveal.
	Exhausted bool

	links []string
	seen  map[string]struct{}
}

func newSession(startDate time.Time) (*Session, error) {
	id, err := random.String(8)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        id,
		StartDate: startDate,
		State:     Idle,
		seen:      map[string]struct{}{},
	}, nil
}

// merge adds links not known yet, in order, and returns how many were added.
func (s *Session) merge(links []string) int {
	added := 0
	for _, link := range links {
		if _, ok := s.seen[link]; ok {
			continue
		}
		s.seen[link] = struct{}{}
		s.links = append(s.links, link)
		added++
	}
	return added
}

// Links returns the links known to the session in the order they were
// first extracted.
func (s *Session) Links() []string {
	out := make([]string, len(s.links))
	copy(out, s.links)
	return out
}
