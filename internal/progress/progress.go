// Package progress renders a spinner for the venue iteration loop. Output
// goes to stderr and is skipped entirely when not attached to a terminal, so
// wrapping the loop never alters control flow.
package progress

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Indicator tracks progress across a known number of venues.
type Indicator struct {
	mu      sync.Mutex
	label   string
	total   int
	current int
	enabled bool
	stop    chan struct{}
	done    sync.WaitGroup
}

// New creates an indicator for total venues. When enabled is false every
// method is a no-op.
func New(label string, total int, enabled bool) *Indicator {
	p := &Indicator{
		label:   label,
		total:   total,
		enabled: enabled,
		stop:    make(chan struct{}),
	}
	if enabled {
		p.done.Add(1)
		go p.spin()
	}
	return p
}

// Step records advancing to the named venue.
func (p *Indicator) Step(venue string) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	p.current++
	p.label = venue
	p.mu.Unlock()
}

// Stop halts the spinner and clears the line.
func (p *Indicator) Stop() {
	if !p.enabled {
		return
	}
	close(p.stop)
	p.done.Wait()
	fmt.Fprint(os.Stderr, "\r\033[K")
}

func (p *Indicator) spin() {
	defer p.done.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	frame := 0
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			label, current, total := p.label, p.current, p.total
			p.mu.Unlock()
			fmt.Fprintf(os.Stderr, "\r\033[K%s %s [%d/%d]",
				spinnerChars[frame%len(spinnerChars)], label, current, total)
			frame++
		}
	}
}
