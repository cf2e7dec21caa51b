// Package humantime parses the human-friendly timeout strings allowed in a
// pipeline config file ("5m", "90s", "in 2 hours") using the same
// natural-language time parser the teacher's CLI uses for chat-style date
// expressions, repurposed here for config ergonomics.
package humantime

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Parser wraps a configured when.Parser. Build one per process; it is safe
// for concurrent use.
type Parser struct {
	w *when.Parser
}

// New builds a Parser with the English common + duration rule sets.
func New() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// ParseDuration accepts either a plain number of seconds ("300"), a Go
// duration string ("5m30s"), or a natural-language relative expression
// ("in 5 minutes") and returns the equivalent time.Duration measured from
// now. Plain numbers and Go duration strings are tried first since they are
// unambiguous and don't need "now" as a reference point.
func (p *Parser) ParseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	now := time.Now()
	res, err := p.w.Parse(s, now)
	if err != nil {
		return 0, fmt.Errorf("parse timeout %q: %w", s, err)
	}
	if res == nil {
		return 0, fmt.Errorf("parse timeout %q: not a recognizable duration or time expression", s)
	}
	d := res.Time.Sub(now)
	if d < 0 {
		return 0, fmt.Errorf("parse timeout %q: resolved to a time in the past", s)
	}
	return d, nil
}
