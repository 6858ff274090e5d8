package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type progressPrinter struct {
	total    int
	name     string
	out      io.Writer
	mu       sync.Mutex
	ok       int
	fail     int
	duration float64
	updates  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// newProgressPrinter writes a single updating status line to out
// (stderr when nil) so it never mixes with the report on stdout.
func newProgressPrinter(total int, name string, out io.Writer) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	if out == nil {
		out = os.Stderr
	}
	return &progressPrinter{
		total:   total,
		name:    name,
		out:     out,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	go p.loop()
}

func (p *progressPrinter) Increment(success bool, duration float64) {
	p.mu.Lock()
	if success {
		p.ok++
	} else {
		p.fail++
	}
	p.duration += duration
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.mu.Lock()
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
	p.mu.Unlock()
	p.print()
	p.mu.Lock()
	fmt.Fprintln(p.out)
	p.mu.Unlock()
}

func (p *progressPrinter) loop() {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	defer p.mu.Unlock()

	completed := p.ok + p.fail
	if completed > p.total {
		p.total = completed
	}

	percent := (float64(completed) / float64(p.total)) * 100
	avg := 0.0
	if completed > 0 {
		avg = p.duration / float64(completed)
	}

	line := fmt.Sprintf("\r[%s] Progress: %d/%d (%.1f%%) OK:%d Fail:%d Avg:%.2fs",
		p.name, completed, p.total, percent, p.ok, p.fail, avg)
	fmt.Fprintf(p.out, "%s", line)
}
