package wrapper

import (
	"io"
	"unicode/utf8"

	"github.com/agentyes/agentyes/internal/common/logger"
	"github.com/agentyes/agentyes/internal/detect"
	"github.com/agentyes/agentyes/internal/term"
	"go.uber.org/zap"
)

// readBufferSize matches the PTY read granularity used elsewhere; large
// enough that a busy TUI redraw arrives in one or two reads.
const readBufferSize = 32 * 1024

// OutputPump drains the child's PTY output on a dedicated goroutine. Every
// decoded chunk fans out to the scrollback renderer, the prompt detector,
// the screen tracker, the idle clock and the wrapper's own stdout. All of
// those calls happen on the read path and must stay short and non-blocking
// so subsequent reads are not starved.
type OutputPump struct {
	logger       *logger.Logger
	render       *term.Render
	detector     *detect.Detector
	status       *detect.StatusTracker
	gate         *Gate
	idle         *IdleMonitor // nil when no idle timeout configured
	stdout       io.Writer
	stripControl bool
}

// NewOutputPump wires a pump to its fan-out targets. idle may be nil.
func NewOutputPump(
	render *term.Render,
	detector *detect.Detector,
	status *detect.StatusTracker,
	gate *Gate,
	idle *IdleMonitor,
	stdout io.Writer,
	stripControl bool,
	log *logger.Logger,
) *OutputPump {
	return &OutputPump{
		logger:       log.WithFields(zap.String("component", "output-pump")),
		render:       render,
		detector:     detector,
		status:       status,
		gate:         gate,
		idle:         idle,
		stdout:       stdout,
		stripControl: stripControl,
	}
}

// Run reads until end of stream or a read error. The caller runs it on its
// own goroutine; its return is the session's controlling completion signal.
func (p *OutputPump) Run(r io.Reader) {
	buf := make([]byte, readBufferSize)
	var carry []byte

	for {
		n, err := r.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			valid, rest := splitValidUTF8(carry)
			if len(valid) > 0 {
				p.dispatch(valid)
			}
			// Retain the undecodable suffix for the next read. When
			// nothing was valid everything stays buffered.
			carry = append(carry[:0], rest...)
		}
		if err != nil {
			// A PTY read also errors (EIO) when the child exits and the
			// slave side closes; both cases end the stream.
			if err != io.EOF {
				p.logger.Debug("child output read ended", zap.Error(err))
			}
			return
		}
	}
}

// dispatch fans one decoded chunk out to every consumer.
func (p *OutputPump) dispatch(raw []byte) {
	text := string(raw)

	p.render.Write(text)
	p.gate.Signal()
	if p.idle != nil {
		p.idle.Ping()
	}
	p.detector.Feed(text)
	if p.status != nil {
		p.status.Write(raw)
		p.status.MaybeCheck()
	}

	out := text
	if p.stripControl {
		out = term.RemoveControlCharacters(text)
	}
	if _, err := io.WriteString(p.stdout, out); err != nil {
		p.logger.Debug("stdout passthrough write failed", zap.Error(err))
		return
	}
	flushWriter(p.stdout)
}

// flushWriter flushes buffered writers; os.Stdout and pipes are unbuffered
// and need nothing.
func flushWriter(w io.Writer) {
	type flusher interface{ Flush() error }
	if f, ok := w.(flusher); ok {
		_ = f.Flush()
	}
}

// splitValidUTF8 splits b into its longest prefix of complete UTF-8 runes
// and the remaining suffix. A trailing incomplete multi-byte sequence ends
// up in the suffix so the next read can complete it.
func splitValidUTF8(b []byte) (valid, rest []byte) {
	i := 0
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			if utf8.FullRune(b[i:]) {
				// Invalid byte rather than a truncated sequence; pass it
				// through so the carry buffer cannot stall on it.
				i++
				continue
			}
			break
		}
		i += size
	}
	return b[:i], b[i:]
}
