package period

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Kind describes the normalized kind of a schedule string.
type Kind int

const (
	KindCron Kind = iota
	KindInterval
	KindAfter
	KindList
	KindAt
)

func (k Kind) String() string {
	switch k {
	case KindCron:
		return "cron"
	case KindInterval:
		return "interval"
	case KindAfter:
		return "after"
	case KindList:
		return "list"
	case KindAt:
		return "at"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Spec is a parsed, not yet anchored, schedule string.
//
// Supported forms:
//   - Cron: "*/5 * * * *", "0 30 * * * *", "@hourly", "@every 55m"
//   - Interval duration: "55m", "2h30m"
//   - Interval HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//
// Prefixes:
//   - "cron:" forces cron parsing
//   - "interval:" or "every:" forces interval parsing
//   - "after:" or "once:" is a single delay
//   - "list:3s,5s,7s" are delays resolved against one "now"
//   - "at:<RFC3339>[,<RFC3339>...]" are absolute instants
type Spec struct {
	Kind     Kind
	Cron     string
	Every    time.Duration
	Delays   []time.Duration
	Instants []time.Time
	Source   string // "cron" | "duration" | "hhmm" | "list" | "rfc3339"
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseSpec parses a schedule string without anchoring it.
func ParseSpec(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, fmt.Errorf("schedule required")
	}

	low := strings.ToLower(s)
	if v, ok := cutPrefix(s, low, "cron:"); ok {
		if v == "" {
			return Spec{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		if _, err := cronParser.Parse(v); err != nil {
			return Spec{}, fmt.Errorf("invalid cron %q: %w", v, err)
		}
		return Spec{Kind: KindCron, Cron: v, Source: "cron"}, nil
	}
	for _, p := range []string{"interval:", "every:"} {
		if v, ok := cutPrefix(s, low, p); ok {
			d, src, err := parseInterval(v)
			if err != nil {
				return Spec{}, err
			}
			return Spec{Kind: KindInterval, Every: d, Source: src}, nil
		}
	}
	for _, p := range []string{"after:", "once:"} {
		if v, ok := cutPrefix(s, low, p); ok {
			d, err := parseDelay(v)
			if err != nil {
				return Spec{}, err
			}
			return Spec{Kind: KindAfter, Delays: []time.Duration{d}, Source: "duration"}, nil
		}
	}
	if v, ok := cutPrefix(s, low, "list:"); ok {
		var ds []time.Duration
		for _, part := range strings.Split(v, ",") {
			d, err := parseDelay(part)
			if err != nil {
				return Spec{}, err
			}
			ds = append(ds, d)
		}
		return Spec{Kind: KindList, Delays: ds, Source: "list"}, nil
	}
	if v, ok := cutPrefix(s, low, "at:"); ok {
		var ts []time.Time
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			t, err := time.Parse(time.RFC3339, part)
			if err != nil {
				return Spec{}, fmt.Errorf("invalid instant %q (use RFC3339 like '2026-01-02T15:04:05Z')", part)
			}
			ts = append(ts, t)
		}
		return Spec{Kind: KindAt, Instants: ts, Source: "rfc3339"}, nil
	}

	// Heuristics:
	// - any whitespace or leading '@' => cron
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		if _, err := cronParser.Parse(s); err != nil {
			return Spec{}, fmt.Errorf("invalid cron %q: %w", s, err)
		}
		return Spec{Kind: KindCron, Cron: s, Source: "cron"}, nil
	}

	// - HH:MM => interval duration
	if reHHMM.MatchString(s) {
		d, err := parseHHMMDuration(s)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Kind: KindInterval, Every: d, Source: "hhmm"}, nil
	}

	// - Go duration => interval duration
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return Spec{}, fmt.Errorf("interval must be > 0")
		}
		return Spec{Kind: KindInterval, Every: d, Source: "duration"}, nil
	}

	return Spec{}, fmt.Errorf(
		"invalid schedule %q (use cron like '*/5 * * * *', HH:MM like '02:30', duration like '55m', or after:/list:/at:)",
		raw,
	)
}

// Schedule anchors sp at the factory's current time.
func (f Factory) Schedule(sp Spec) (Schedule, error) {
	switch sp.Kind {
	case KindCron:
		c, err := f.Cron(sp.Cron)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindInterval:
		if sp.Every <= 0 {
			return nil, fmt.Errorf("interval must be > 0")
		}
		return f.Every(sp.Every), nil
	case KindAfter, KindList:
		return f.List(sp.Delays...), nil
	case KindAt:
		return At(sp.Instants...), nil
	default:
		return nil, fmt.Errorf("unsupported schedule kind %v", sp.Kind)
	}
}

// Parse parses raw and anchors it at the factory's current time.
func (f Factory) Parse(raw string) (Schedule, error) {
	sp, err := ParseSpec(raw)
	if err != nil {
		return nil, err
	}
	return f.Schedule(sp)
}

// Parse is Factory.Parse on the wall clock.
func Parse(raw string) (Schedule, error) { return wall.Parse(raw) }

// Preview returns up to n upcoming instants of raw, anchored at the factory's
// current time. Used for human-friendly validation output.
func (f Factory) Preview(raw string, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, fmt.Errorf("preview count must be > 0, got %d", n)
	}
	s, err := f.Parse(raw)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

func cutPrefix(s, low, prefix string) (string, bool) {
	if !strings.HasPrefix(low, prefix) {
		return "", false
	}
	return strings.TrimSpace(s[len(prefix):]), true
}

func parseInterval(v string) (time.Duration, string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, "", fmt.Errorf("interval required")
	}
	if reHHMM.MatchString(v) {
		d, err := parseHHMMDuration(v)
		return d, "hhmm", err
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, "", fmt.Errorf("invalid interval %q (use HH:MM or Go duration like '55m'/'2h30m')", v)
	}
	if d <= 0 {
		return 0, "", fmt.Errorf("interval must be > 0")
	}
	return d, "duration", nil
}

func parseDelay(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("delay required")
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q (use Go duration like '10s')", v)
	}
	if d < 0 {
		return 0, fmt.Errorf("delay must be >= 0")
	}
	return d, nil
}

func parseHHMMDuration(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	// hours up to 999, minutes 0..59
	var hh int
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}
