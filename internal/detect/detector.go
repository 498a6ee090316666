// Package detect recognizes interactive confirmation prompts in agent CLI
// output and produces synthetic replies for them.
//
// The Detector keeps a rolling window of recent decoded output. On every
// feed it appends the chunk, and once the window contains a newline or grows
// past a threshold it evaluates an ordered rule table against a
// control-stripped view of the window. The first matching rule wins and
// exactly one response is enqueued per evaluation pass.
package detect

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/agentyes/agentyes/internal/common/logger"
	"github.com/agentyes/agentyes/internal/term"
	"go.uber.org/zap"
)

const (
	// evalThreshold triggers evaluation even without a newline. Menus are
	// redrawn in place without trailing newlines, so the threshold has to
	// be shorter than the shortest prompt ("Overwrite? (y/n)").
	evalThreshold = 16
	// windowMaxChars caps the rolling window; the older half is discarded
	// on overflow.
	windowMaxChars = 10000
)

// sentinelPhrase marks a session as non-recoverable: restarting with
// --continue cannot succeed when there is no conversation to resume.
const sentinelPhrase = "No conversation found to continue"

// promptRule pairs a prompt predicate with the reply it produces.
// Predicates receive the control-stripped window and its lower-cased copy.
type promptRule struct {
	name     string
	match    func(clean, lower string) bool
	response func(clean, lower string) string
}

// acceptDefault answers a detected prompt. Bracketed y/n forms want an
// explicit answer; everything else is a highlighted-choice menu where a
// bare carriage return accepts the current selection.
func acceptDefault(_, lower string) string {
	if strings.Contains(lower, "[y/n]") || strings.Contains(lower, "(y/n)") {
		return "y\n"
	}
	return "\r"
}

// answerYes answers a bracketed y/n prompt explicitly.
func answerYes(string, string) string { return "y\n" }

// defaultRules returns the rule table in priority order. Explicit selection
// markers first, phrase heuristics next, the generic yes/no co-occurrence
// and bracketed forms last.
func defaultRules(agent string) []promptRule {
	allowAgent := "allow " + strings.ToLower(agent)
	return []promptRule{
		{
			name:     "menu_yes_selected",
			match:    func(clean, _ string) bool { return strings.Contains(clean, "❯ 1. Yes") },
			response: acceptDefault,
		},
		{
			name:     "theme_picker",
			match:    func(clean, _ string) bool { return strings.Contains(clean, "❯ 1. Dark mode✔") },
			response: acceptDefault,
		},
		{
			name:     "press_enter_to_continue",
			match:    func(clean, _ string) bool { return strings.Contains(clean, "Press Enter to continue…") },
			response: acceptDefault,
		},
		{
			name:     "trust_project",
			match:    func(_, lower string) bool { return strings.Contains(lower, "trust this project") },
			response: acceptDefault,
		},
		{
			name:     "trust_folder",
			match:    func(_, lower string) bool { return strings.Contains(lower, "trust the files in this folder") },
			response: acceptDefault,
		},
		{
			name:     "allow_tool",
			match:    func(_, lower string) bool { return strings.Contains(lower, allowAgent) },
			response: acceptDefault,
		},
		{
			name:     "do_you_want_to",
			match:    func(_, lower string) bool { return strings.Contains(lower, "do you want to") },
			response: acceptDefault,
		},
		{
			name:     "would_you_like",
			match:    func(_, lower string) bool { return strings.Contains(lower, "would you like") },
			response: acceptDefault,
		},
		{
			name: "yes_no_pointer",
			match: func(clean, lower string) bool {
				return strings.Contains(lower, "yes") &&
					strings.Contains(lower, "no") &&
					strings.Contains(clean, "❯")
			},
			response: acceptDefault,
		},
		{
			name: "bracketed_yn",
			match: func(_, lower string) bool {
				return strings.Contains(lower, "[y/n]") || strings.Contains(lower, "(y/n)")
			},
			response: answerYes,
		},
	}
}

// Detector watches decoded output for confirmation prompts and the
// non-recoverable sentinel phrase.
type Detector struct {
	logger *logger.Logger
	queue  *ResponseQueue
	rules  []promptRule

	mu     sync.Mutex
	window string

	sentinel atomic.Bool
}

// New creates a Detector that enqueues replies onto queue. The agent name
// parameterizes the "allow <tool>" heuristic (e.g. "Allow Claude to run...").
func New(queue *ResponseQueue, agent string, log *logger.Logger) *Detector {
	return &Detector{
		logger: log.WithFields(zap.String("component", "prompt-detector")),
		queue:  queue,
		rules:  defaultRules(agent),
	}
}

// Feed appends a decoded chunk to the window and evaluates it when the
// chunk contains a newline or enough text has accumulated. Called from the
// output pump; must stay cheap and non-blocking.
func (d *Detector) Feed(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.window += text
	if len(d.window) > windowMaxChars {
		// Truncation, not line-wise eviction: drop the older half.
		runes := []rune(d.window)
		d.window = string(runes[len(runes)/2:])
	}

	if !strings.ContainsRune(d.window, '\n') && len(d.window) <= evalThreshold {
		return
	}
	d.evaluate()
}

// evaluate runs one detection pass over the window. Caller holds d.mu.
func (d *Detector) evaluate() {
	clean := term.RemoveControlCharacters(d.window)
	lower := strings.ToLower(clean)

	if strings.Contains(clean, sentinelPhrase) {
		if d.sentinel.CompareAndSwap(false, true) {
			d.logger.Info("non-recoverable error observed in output")
		}
	}

	for _, rule := range d.rules {
		if !rule.match(clean, lower) {
			continue
		}
		response := rule.response(clean, lower)
		switch err := d.queue.TryEnqueue(response); err {
		case nil:
			d.logger.Info("auto-responding to prompt", zap.String("rule", rule.name))
			// Clear so the same text cannot trigger twice.
			d.window = ""
		case ErrQueueClosed:
			// Input side already shut down; expected while the child exits.
		default:
			// Queue full: keep the window so the next pass can retry.
			d.logger.Warn("failed to enqueue auto-response",
				zap.String("rule", rule.name),
				zap.Error(err))
		}
		return
	}
}

// SentinelSeen reports whether the non-recoverable sentinel phrase has been
// observed. Once set it never resets for the life of the wrapper run.
func (d *Detector) SentinelSeen() bool {
	return d.sentinel.Load()
}
