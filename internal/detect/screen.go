package detect

import (
	"regexp"
	"strings"
)

var (
	// Task line with a spinner glyph, an ellipsis and an interrupt hint,
	// e.g. "✻ Reading files... (esc to interrupt)".
	workingTaskPattern = regexp.MustCompile(
		`^\s*[✻✽✶∴·○◆▪▫□■☐☑☒★☆✓✔✗✘⚬⚫⚪⬤◯▸▹►▻◂◃◄◅✢*]\s+.+[…\.]{2,}\s*\((esc|ctrl\+c)\s+to\s+interrupt`,
	)

	// Hint lines inside the input box, e.g. "⎿ Tip: Press Enter to continue".
	tipPattern = regexp.MustCompile(`^[\s\x{00a0}]*⎿[\s\x{00a0}]+(?:Tip|Next|Hint):`)

	// Background-run hint shown while a long task keeps running.
	backgroundRunPattern = regexp.MustCompile(`(?i)to\s+run\s+in\s+background`)
)

// AgentScreenDetector classifies agent CLI screens by their TUI markers.
type AgentScreenDetector struct{}

// NewAgentScreenDetector creates a marker-based screen detector.
func NewAgentScreenDetector() *AgentScreenDetector {
	return &AgentScreenDetector{}
}

// DetectState scans the visible lines for working and waiting markers.
// Working markers win: a spinner with an interrupt hint means the agent is
// mid-task even if an input box is also visible.
func (d *AgentScreenDetector) DetectState(lines []string) AgentState {
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if workingTaskPattern.MatchString(trimmed) || backgroundRunPattern.MatchString(trimmed) {
			return StateWorking
		}
	}
	for _, line := range lines {
		if tipPattern.MatchString(line) {
			return StateWaitingInput
		}
	}
	return StateUnknown
}
