// Package notify holds the single transient banner shown to the operator.
package notify

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultTTL is how long a banner stays visible when no TTL is configured.
const DefaultTTL = 5 * time.Second

// Kind selects the banner's styling.
type Kind int

const (
	Info Kind = iota
	Success
	Error
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notification is one visible banner.
type Notification struct {
	Text string
	Kind Kind
	Gen  uint64
	At   time.Time
}

// ExpiredMsg is delivered when the timer for generation Gen fires.
type ExpiredMsg struct {
	Gen uint64
}

// Channel keeps at most one notification. A new one supersedes the previous
// banner and its pending timer; stale timers are ignored by generation.
type Channel struct {
	ttl     time.Duration
	gen     uint64
	current *Notification
	now     func() time.Time
}

// New returns a Channel whose banners expire after ttl.
func New(ttl time.Duration) Channel {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Channel{ttl: ttl, now: time.Now}
}

// TTL reports the expiry duration.
func (c Channel) TTL() time.Duration {
	if c.ttl <= 0 {
		return DefaultTTL
	}
	return c.ttl
}

// Notify replaces the visible banner and returns the timer command that
// clears it.
func (c *Channel) Notify(text string, kind Kind) tea.Cmd {
	c.gen++
	gen := c.gen
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	c.current = &Notification{Text: text, Kind: kind, Gen: gen, At: now()}
	return tea.Tick(c.TTL(), func(time.Time) tea.Msg {
		return ExpiredMsg{Gen: gen}
	})
}

// Expire clears the banner if msg belongs to it. It reports whether anything
// was cleared.
func (c *Channel) Expire(msg ExpiredMsg) bool {
	if c.current == nil || c.current.Gen != msg.Gen {
		return false
	}
	c.current = nil
	return true
}

// Clear drops the banner. Clearing an empty channel is a no-op.
func (c *Channel) Clear() {
	c.current = nil
}

// Current returns the visible banner, if any.
func (c Channel) Current() (Notification, bool) {
	if c.current == nil {
		return Notification{}, false
	}
	return *c.current, true
}
