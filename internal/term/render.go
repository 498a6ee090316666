// Package term maintains a bounded plain-text transcript of PTY output.
//
// Render is not a terminal emulator: it models only line commits (newline),
// overwrite-from-column-zero (carriage return) and backspace. Cursor
// addressing and attributes are intentionally out of scope.
package term

import (
	"strings"
	"sync"
)

const (
	// MaxLines bounds the number of committed scrollback lines.
	MaxLines = 10000
	// MaxLineLength bounds a single line; longer lines are split early.
	MaxLineLength = 4096
)

// Render accumulates decoded output into committed lines plus one
// in-progress line. It is safe for one writer and concurrent readers.
type Render struct {
	mu      sync.Mutex
	lines   []string
	current strings.Builder
}

// NewRender returns an empty transcript.
func NewRender() *Render {
	return &Render{}
}

// Write consumes a decoded text chunk character by character.
func (r *Render) Write(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range text {
		switch {
		case ch == '\n':
			r.commitLine()
		case ch == '\r':
			// Overwrite from column zero; no real cursor tracking.
			r.current.Reset()
		case ch == '\x08' || ch == '\x7f':
			r.dropLastChar()
		case ch < 0x20:
			// Other control characters are dropped.
		default:
			r.current.WriteRune(ch)
			if r.current.Len() >= MaxLineLength {
				r.commitLine()
			}
		}
	}
}

// commitLine appends the current line to the scrollback, evicting the
// oldest line when over MaxLines. Caller holds r.mu.
func (r *Render) commitLine() {
	if len(r.lines) >= MaxLines {
		r.lines = r.lines[1:]
	}
	r.lines = append(r.lines, r.current.String())
	r.current.Reset()
}

// dropLastChar removes the final rune of the in-progress line, if any.
// Caller holds r.mu.
func (r *Render) dropLastChar() {
	s := r.current.String()
	if s == "" {
		return
	}
	runes := []rune(s)
	r.current.Reset()
	r.current.WriteString(string(runes[:len(runes)-1]))
}

// Render returns the committed lines joined by newlines, followed by the
// in-progress line when non-empty.
func (r *Render) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sb strings.Builder
	for _, line := range r.lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if r.current.Len() > 0 {
		sb.WriteString(r.current.String())
	}
	return sb.String()
}

// Clear discards the transcript.
func (r *Render) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
	r.current.Reset()
}
