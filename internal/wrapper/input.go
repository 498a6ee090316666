package wrapper

import (
	"context"
	"io"
	"time"
	"unicode/utf8"

	"github.com/agentyes/agentyes/internal/common/logger"
	"go.uber.org/zap"
)

// settleDelay is how long a synthetic response waits before being written,
// so it does not race the child's own redraw of the prompt.
const settleDelay = 200 * time.Millisecond

const (
	keyETX = 0x03 // Ctrl+C, forwarded as data rather than a signal
	keyEOT = 0x04 // Ctrl+D, stops the keystroke source
	keyBS  = 0x08
	keyTab = 0x09
	keyLF  = 0x0a
	keyCR  = 0x0d
	keyESC = 0x1b
	keyDEL = 0x7f
)

// encodeKeystrokes translates one chunk of raw terminal input into the
// byte sequences to forward to the child, one entry per key event. stop is
// true when an end-of-input chord was seen; bytes after it are dropped.
//
// Printable characters pass through as their UTF-8 bytes, Enter becomes a
// carriage return, Backspace becomes DEL, arrow keys keep their CSI
// sequences, and unrecognized control bytes are ignored.
func encodeKeystrokes(chunk []byte) (events [][]byte, stop bool) {
	i := 0
	for i < len(chunk) {
		b := chunk[i]
		switch {
		case b == keyEOT:
			return events, true
		case b == keyETX:
			events = append(events, []byte{keyETX})
			i++
		case b == keyCR || b == keyLF:
			events = append(events, []byte{keyCR})
			i++
		case b == keyTab:
			events = append(events, []byte{keyTab})
			i++
		case b == keyBS || b == keyDEL:
			events = append(events, []byte{keyDEL})
			i++
		case b == keyESC:
			// Arrow keys arrive as CSI A-D. A lone escape (or any other
			// sequence) is forwarded as a bare ESC byte.
			if i+2 < len(chunk) && chunk[i+1] == '[' && chunk[i+2] >= 'A' && chunk[i+2] <= 'D' {
				events = append(events, []byte{keyESC, '[', chunk[i+2]})
				i += 3
			} else {
				events = append(events, []byte{keyESC})
				i++
			}
		case b < 0x20:
			// Other control bytes are ignored.
			i++
		default:
			r, size := utf8.DecodeRune(chunk[i:])
			if r == utf8.RuneError && size <= 1 {
				// Incomplete rune at the chunk boundary; drop it. Raw
				// terminal input delivers whole keystrokes per read, so
				// this does not occur in practice.
				i++
				continue
			}
			events = append(events, append([]byte(nil), chunk[i:i+size]...))
			i += size
		}
	}
	return events, false
}

// ReadKeystrokes pumps raw terminal input from r into out until end of
// input (Ctrl+D or EOF). It closes out when the source stops.
func ReadKeystrokes(r io.Reader, out chan<- []byte, log *logger.Logger) {
	defer close(out)

	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			events, stop := encodeKeystrokes(buf[:n])
			for _, ev := range events {
				// Never block the stdin goroutine on a lagging (or gone)
				// consumer; dropping the keystroke is the lesser evil.
				select {
				case out <- ev:
				default:
					log.Debug("keystroke dropped, consumer not keeping up")
				}
			}
			if stop {
				log.Debug("end-of-input chord received, stopping keystroke source")
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Debug("keystroke source read ended", zap.Error(err))
			}
			return
		}
	}
}

// InputMultiplexer merges literal keystrokes and synthetic auto-responses
// into one ordered byte stream written to the child's stdin.
type InputMultiplexer struct {
	logger *logger.Logger
	gate   *Gate
	idle   *IdleMonitor // nil when no idle timeout configured
	settle time.Duration
}

// NewInputMultiplexer wires a multiplexer to the readiness gate. idle may
// be nil.
func NewInputMultiplexer(gate *Gate, idle *IdleMonitor, log *logger.Logger) *InputMultiplexer {
	return &InputMultiplexer{
		logger: log.WithFields(zap.String("component", "input-mux")),
		gate:   gate,
		idle:   idle,
		settle: settleDelay,
	}
}

// Run services both sources until they are exhausted or the context ends.
// Keystrokes wait for readiness and are written immediately; synthetic
// responses additionally wait out the settle delay first.
func (m *InputMultiplexer) Run(ctx context.Context, w io.Writer, keys <-chan []byte, responses <-chan string) error {
	for keys != nil || responses != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case response, ok := <-responses:
			if !ok {
				responses = nil
				continue
			}
			if err := m.sleep(ctx, m.settle); err != nil {
				return err
			}
			if err := m.gate.AwaitReady(ctx); err != nil {
				return err
			}
			if err := m.write(w, []byte(response)); err != nil {
				return err
			}

		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if err := m.gate.AwaitReady(ctx); err != nil {
				return err
			}
			if err := m.write(w, key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *InputMultiplexer) write(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		m.logger.Debug("write to child stdin failed", zap.Error(err))
		return err
	}
	flushWriter(w)
	if m.idle != nil {
		m.idle.Ping()
	}
	return nil
}

func (m *InputMultiplexer) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
