package detect

import (
	"sync"
	"time"

	"github.com/agentyes/agentyes/internal/common/logger"
	"github.com/tuzig/vt10x"
	"go.uber.org/zap"
)

// AgentState classifies what the agent CLI is doing, judged from its screen.
type AgentState string

const (
	StateUnknown      AgentState = "unknown"
	StateWorking      AgentState = "working"
	StateWaitingInput AgentState = "waiting_input"
)

// ScreenDetector classifies the visible terminal lines.
type ScreenDetector interface {
	DetectState(lines []string) AgentState
}

// StatusTracker feeds raw PTY bytes to a virtual terminal emulator and
// classifies the visible screen. Prompt detection works on the decoded text
// stream; the tracker complements it with a screen-level view used by the
// idle monitor to tell "quiet but still working" from "actually idle".
type StatusTracker struct {
	logger        *logger.Logger
	detector      ScreenDetector
	rows, cols    int
	checkInterval time.Duration

	mu        sync.Mutex
	term      vt10x.Terminal
	lastCheck time.Time
	lastState AgentState
}

// NewStatusTracker creates a tracker with a cols x rows virtual screen.
func NewStatusTracker(cols, rows int, detector ScreenDetector, log *logger.Logger) *StatusTracker {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	return &StatusTracker{
		logger:        log.WithFields(zap.String("component", "status-tracker")),
		detector:      detector,
		rows:          rows,
		cols:          cols,
		checkInterval: 100 * time.Millisecond,
		term:          vt10x.New(vt10x.WithSize(cols, rows)),
		lastState:     StateUnknown,
	}
}

// Write feeds raw PTY output bytes to the virtual terminal.
func (t *StatusTracker) Write(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.term.Write(data)
}

// MaybeCheck re-classifies the screen if the check interval has elapsed,
// and returns the current state either way.
func (t *StatusTracker) MaybeCheck() AgentState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Since(t.lastCheck) < t.checkInterval {
		return t.lastState
	}
	t.lastCheck = time.Now()

	state := t.detector.DetectState(t.visibleLines())
	if state != t.lastState {
		t.logger.Debug("agent screen state changed",
			zap.String("old_state", string(t.lastState)),
			zap.String("new_state", string(state)))
		t.lastState = state
	}
	return t.lastState
}

// CurrentState returns the last classified state without re-checking.
func (t *StatusTracker) CurrentState() AgentState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastState
}

// visibleLines extracts the screen content as text lines. Caller holds t.mu.
func (t *StatusTracker) visibleLines() []string {
	lines := make([]string, t.rows)
	for row := 0; row < t.rows; row++ {
		chars := make([]rune, t.cols)
		for col := 0; col < t.cols; col++ {
			g := t.term.Cell(col, row)
			if g.Char == 0 {
				chars[col] = ' '
			} else {
				chars[col] = g.Char
			}
		}
		lines[row] = string(chars)
	}
	return lines
}
