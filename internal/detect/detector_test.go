package detect

import (
	"testing"

	"github.com/agentyes/agentyes/internal/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:  "error",
		Format: "json",
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func drain(q *ResponseQueue) []string {
	var out []string
	for {
		select {
		case r := <-q.Ch():
			out = append(out, r)
		default:
			return out
		}
	}
}

func TestDetector_MenuPrompt_AcceptsDefault(t *testing.T) {
	q := NewResponseQueue(100)
	d := New(q, "claude", newTestLogger(t))

	d.Feed("Do you want to proceed? ❯ 1. Yes")

	responses := drain(q)
	require.Len(t, responses, 1)
	assert.Equal(t, "\r", responses[0])
}

func TestDetector_BracketedYN_AnswersYes(t *testing.T) {
	q := NewResponseQueue(100)
	d := New(q, "claude", newTestLogger(t))

	d.Feed("Overwrite file? (y/n)")

	responses := drain(q)
	require.Len(t, responses, 1)
	assert.Equal(t, "y\n", responses[0])
}

func TestDetector_PromptVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trust project", "Do you trust this project?\n", "\r"},
		{"trust folder", "Do you trust the files in this folder?\n", "\r"},
		{"allow tool", "Allow Claude to read your files?\n", "\r"},
		{"would you like", "Would you like to enable telemetry?\n", "\r"},
		{"press enter banner", "Press Enter to continue…\n", "\r"},
		{"dark mode picker", "❯ 1. Dark mode✔\n", "\r"},
		{"yes no with pointer", "  Yes\n  No\n❯\n", "\r"},
		{"uppercase bracketed", "Continue? [Y/N]\n", "y\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewResponseQueue(100)
			d := New(q, "claude", newTestLogger(t))

			d.Feed(tt.input)

			responses := drain(q)
			require.Len(t, responses, 1)
			assert.Equal(t, tt.want, responses[0])
		})
	}
}

func TestDetector_NoPrompt_NoResponse(t *testing.T) {
	q := NewResponseQueue(100)
	d := New(q, "claude", newTestLogger(t))

	d.Feed("compiling module foo...\n")
	d.Feed("tests passed\n")

	assert.Empty(t, drain(q))
}

func TestDetector_AnsiWrappedPrompt(t *testing.T) {
	q := NewResponseQueue(100)
	d := New(q, "claude", newTestLogger(t))

	d.Feed("\x1b[1m\x1b[36mDo you want to proceed?\x1b[0m\n")

	responses := drain(q)
	require.Len(t, responses, 1)
	assert.Equal(t, "\r", responses[0])
}

func TestDetector_WindowClearedAfterMatch(t *testing.T) {
	q := NewResponseQueue(100)
	d := New(q, "claude", newTestLogger(t))

	d.Feed("Do you want to proceed? ❯ 1. Yes\n")
	require.Len(t, drain(q), 1)

	// Unrelated follow-up output must not re-trigger on the old text.
	d.Feed("working on it\n")
	assert.Empty(t, drain(q))
}

func TestDetector_SmallFragmentsAccumulate(t *testing.T) {
	q := NewResponseQueue(100)
	d := New(q, "claude", newTestLogger(t))

	// Split mid-prompt: no fragment alone is recognizable.
	d.Feed("Do you wa")
	d.Feed("nt to proceed?")

	responses := drain(q)
	require.Len(t, responses, 1)
	assert.Equal(t, "\r", responses[0])
}

func TestDetector_QueueFull_WindowPreservedForRetry(t *testing.T) {
	q := NewResponseQueue(1)
	d := New(q, "claude", newTestLogger(t))

	require.NoError(t, q.TryEnqueue("occupied"))

	d.Feed("Do you want to proceed?\n")
	// Drop-and-log: nothing new enqueued.
	assert.Equal(t, []string{"occupied"}, drain(q))

	// The window survived, so the next pass retries the same match.
	d.Feed("\n")
	responses := drain(q)
	require.Len(t, responses, 1)
	assert.Equal(t, "\r", responses[0])
}

func TestDetector_QueueClosed_Suppressed(t *testing.T) {
	q := NewResponseQueue(10)
	d := New(q, "claude", newTestLogger(t))
	q.Close()

	// Must not panic or log an error: closing races with shutdown.
	d.Feed("Do you want to proceed?\n")
}

func TestDetector_Sentinel(t *testing.T) {
	q := NewResponseQueue(10)
	d := New(q, "claude", newTestLogger(t))

	assert.False(t, d.SentinelSeen())

	d.Feed("Error: No conversation found to continue\n")
	assert.True(t, d.SentinelSeen())

	// Sticky for the life of the run.
	d.Feed("all good now\n")
	assert.True(t, d.SentinelSeen())
}

func TestDetector_OneResponsePerEvaluation(t *testing.T) {
	q := NewResponseQueue(100)
	d := New(q, "claude", newTestLogger(t))

	// Two signatures in one window still produce a single reply.
	d.Feed("Do you want to proceed? Would you like to continue?\n")

	assert.Len(t, drain(q), 1)
}

func TestResponseQueue_TryEnqueue(t *testing.T) {
	q := NewResponseQueue(1)

	require.NoError(t, q.TryEnqueue("a"))
	assert.ErrorIs(t, q.TryEnqueue("b"), ErrQueueFull)

	<-q.Ch()
	require.NoError(t, q.TryEnqueue("c"))

	q.Close()
	assert.ErrorIs(t, q.TryEnqueue("d"), ErrQueueClosed)
}

func TestResponseQueue_CloseIsIdempotent(t *testing.T) {
	q := NewResponseQueue(1)
	q.Close()
	q.Close()
}
