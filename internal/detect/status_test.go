package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentScreenDetector_DetectState(t *testing.T) {
	detector := NewAgentScreenDetector()

	tests := []struct {
		name     string
		lines    []string
		expected AgentState
	}{
		{
			name: "working with esc interrupt hint",
			lines: []string{
				"",
				"✻ Billowing... (esc to interrupt)",
				"",
			},
			expected: StateWorking,
		},
		{
			name: "working with ctrl+c interrupt hint",
			lines: []string{
				"✻ Reading files... (ctrl+c to interrupt)",
			},
			expected: StateWorking,
		},
		{
			name: "working with star symbol",
			lines: []string{
				"  ★ Analyzing code... (esc to interrupt)",
			},
			expected: StateWorking,
		},
		{
			name: "background run hint counts as working",
			lines: []string{
				"Press ctrl+b to run in background",
			},
			expected: StateWorking,
		},
		{
			name: "tip line means waiting for input",
			lines: []string{
				"⎿ Tip: Press Enter to continue",
			},
			expected: StateWaitingInput,
		},
		{
			name: "working wins over waiting",
			lines: []string{
				"✻ Thinking... (esc to interrupt)",
				"⎿ Tip: Press Enter to continue",
			},
			expected: StateWorking,
		},
		{
			name: "spinner without interrupt hint is not working",
			lines: []string{
				"✻ Billowing…",
			},
			expected: StateUnknown,
		},
		{
			name: "plain output",
			lines: []string{
				"Some random text",
			},
			expected: StateUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detector.DetectState(tt.lines)
			if result != tt.expected {
				t.Errorf("DetectState() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestStatusTracker_WriteAndCheck(t *testing.T) {
	tracker := NewStatusTracker(80, 24, NewAgentScreenDetector(), newTestLogger(t))

	assert.Equal(t, StateUnknown, tracker.CurrentState())

	tracker.Write([]byte("✻ Thinking... (esc to interrupt)\r\n"))
	assert.Equal(t, StateWorking, tracker.MaybeCheck())
	assert.Equal(t, StateWorking, tracker.CurrentState())
}

func TestStatusTracker_DebouncedCheck(t *testing.T) {
	tracker := NewStatusTracker(80, 24, NewAgentScreenDetector(), newTestLogger(t))

	tracker.Write([]byte("✻ Thinking... (esc to interrupt)\r\n"))
	first := tracker.MaybeCheck()

	// Within the check interval the state is returned without re-scanning.
	tracker.Write([]byte("\x1b[2J\x1b[Hplain output\r\n"))
	second := tracker.MaybeCheck()
	assert.Equal(t, first, second)
}
