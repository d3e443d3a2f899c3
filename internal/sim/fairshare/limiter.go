// Package fairshare arbitrates generation requests among concurrently
// active explorers so that, under contention, cumulative cell
// consumption trends toward equality, while a lone explorer is never
// throttled.
package fairshare

import "time"

type Mode string

const (
	// ModeUnrestricted grants every request that has energy behind it.
	ModeUnrestricted Mode = "UNRESTRICTED"
	// ModeFairShare runs the usage-score admission check.
	ModeFairShare Mode = "FAIR_SHARE"
)

type Config struct {
	// ContentionWindow bounds how recently an explorer must have
	// requested to count as active.
	ContentionWindow time.Duration
	// DecayPerSecond is how fast an idle explorer's score drains.
	DecayPerSecond float64
	// AllowedBurst widens the tolerance band, split across the
	// currently active explorers.
	AllowedBurst float64
	// RequestCost is charged per attempt, granted or not.
	RequestCost float64
}

func (c *Config) applyDefaults() {
	if c.ContentionWindow <= 0 {
		c.ContentionWindow = 3 * time.Second
	}
	if c.DecayPerSecond <= 0 {
		c.DecayPerSecond = 0.5
	}
	if c.AllowedBurst <= 0 {
		c.AllowedBurst = 3.0
	}
	if c.RequestCost <= 0 {
		c.RequestCost = 1.0
	}
}

// Decision is the verdict on one generation attempt, with the numbers
// behind it for the journal and observer feed.
type Decision struct {
	Allowed    bool
	ExplorerID string
	Score      float64
	AvgScore   float64
	Tolerance  float64
	Active     int
}

type usageRecord struct {
	score       float64
	lastRequest time.Time
}

// Limiter tracks one usage record per explorer that has ever asked for
// a resource. Records are never evicted: an explorer that left keeps
// dragging the average down until the process exits. That matches the
// long-observed behavior of this planet variant; evicting would change
// the average's denominator, so growth stays unbounded on purpose.
//
// Not safe for concurrent use; the planet's handler goroutine owns it.
type Limiter struct {
	mode  Mode
	cfg   Config
	usage map[string]*usageRecord
	now   func() time.Time
}

func New(mode Mode, cfg Config) *Limiter {
	cfg.applyDefaults()
	return &Limiter{
		mode:  mode,
		cfg:   cfg,
		usage: map[string]*usageRecord{},
		now:   time.Now,
	}
}

func (l *Limiter) Mode() Mode { return l.mode }

// SetClock swaps the time source. Tests use it to drive decay.
func (l *Limiter) SetClock(now func() time.Time) { l.now = now }

// Tracked reports how many explorers have a usage record.
func (l *Limiter) Tracked() int { return len(l.usage) }

// Admit runs the admission check for one generation attempt. In
// unrestricted mode there is no accounting at all and every attempt
// passes; energy availability is the caller's concern either way.
func (l *Limiter) Admit(explorerID string) Decision {
	if l.mode != ModeFairShare {
		return Decision{Allowed: true, ExplorerID: explorerID}
	}

	now := l.now()

	// Touch the requester first: its own idle time this round is ~0,
	// so the decay pass below leaves its score intact.
	rec, ok := l.usage[explorerID]
	if !ok {
		rec = &usageRecord{}
		l.usage[explorerID] = rec
	}
	rec.lastRequest = now

	for _, r := range l.usage {
		idle := l.idleSince(now, r.lastRequest)
		r.score -= l.cfg.DecayPerSecond * idle.Seconds()
		if r.score < 0 {
			r.score = 0
		}
	}

	// The attempt costs whether or not it is granted.
	rec.score += l.cfg.RequestCost

	active := 0
	var total float64
	for _, r := range l.usage {
		if l.idleSince(now, r.lastRequest) < l.cfg.ContentionWindow {
			active++
		}
		total += r.score
	}
	// Stale records stay in the average on purpose (see type comment).
	avg := total / float64(len(l.usage))
	tolerance := 1 + l.cfg.AllowedBurst/float64(active)

	allowed := active == 1 || rec.score <= avg*tolerance
	return Decision{
		Allowed:    allowed,
		ExplorerID: explorerID,
		Score:      rec.score,
		AvgScore:   avg,
		Tolerance:  tolerance,
		Active:     active,
	}
}

// idleSince measures elapsed time since an explorer's last request. An
// interval the clock cannot measure (it went backwards) is treated as
// exactly one contention window: the explorer decays a full window and
// drops out of the active set.
func (l *Limiter) idleSince(now, last time.Time) time.Duration {
	d := now.Sub(last)
	if d < 0 {
		return l.cfg.ContentionWindow
	}
	return d
}
