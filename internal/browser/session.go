package browser

import (
	"time"

	"github.com/google/uuid"

	"kioskd/internal/proc"
)

// Session is one running kiosk browser window
type Session struct {
	id    uuid.UUID
	url   string
	group *proc.Group
	grace time.Duration
}

func newSession(url string, group *proc.Group, grace time.Duration) *Session {
	return &Session{
		id:    uuid.New(),
		url:   url,
		group: group,
		grace: grace,
	}
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id.String() }

// URL returns the page the session was launched on
func (s *Session) URL() string { return s.url }

// Alive reports whether the browser process group is still running
func (s *Session) Alive() bool {
	return s != nil && s.group.Alive()
}

// Terminate tears the browser down, escalating to SIGKILL after the grace
// period. Safe to call on a nil session or more than once.
func (s *Session) Terminate() {
	if s == nil {
		return
	}
	s.group.Stop(s.grace)
}
