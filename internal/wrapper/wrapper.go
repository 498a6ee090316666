// Package wrapper supervises an interactive agent CLI attached to a PTY.
//
// One Wrapper owns one run. A run is a loop of sessions: each session spawns
// the child in a fresh PTY, pumps its output through the renderer/detector
// fan-out, multiplexes user keystrokes and synthetic prompt replies into its
// stdin, and waits for it to exit. A crashed session may be restarted with
// continuation arguments; a confirmed idle timeout ends the run.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agentyes/agentyes/internal/common/logger"
	"github.com/agentyes/agentyes/internal/config"
	"github.com/agentyes/agentyes/internal/detect"
	"github.com/agentyes/agentyes/internal/term"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	xterm "golang.org/x/term"
)

const (
	responseQueueCap = 100
	keystrokeChanCap = 10

	// killGrace is how long a SIGTERM'd child gets before SIGKILL.
	killGrace = 2 * time.Second

	defaultCols = 80
	defaultRows = 24
)

// continuationArgs replace the child's arguments when a crashed session is
// restarted, resuming the previous conversation.
var continuationArgs = []string{"--continue", "continue"}

// sessionResult describes how one session ended.
type sessionResult struct {
	exitCode int
	sentinel bool // non-recoverable error phrase seen in the transcript
	idleExit bool // session was ended by the idle monitor
}

// Wrapper runs the supervision loop. The scrollback, readiness gate and
// idle clock are shared across all sessions of one run, so the transcript
// spans restarts and readiness stays sticky.
type Wrapper struct {
	cfg    *config.Config
	logger *logger.Logger

	render *term.Render
	gate   *Gate
	idle   *IdleMonitor // nil when no idle timeout configured

	stdin  io.Reader
	stdout io.Writer

	cols, rows int

	keys     chan []byte
	keysOnce sync.Once

	// runSession is a seam for restart-policy tests.
	runSession func(ctx context.Context, args []string) (sessionResult, error)
}

// New creates a Wrapper for the given configuration. Terminal dimensions
// are captured once here and reused for every session of the run.
func New(cfg *config.Config, log *logger.Logger) *Wrapper {
	w := &Wrapper{
		cfg:    cfg,
		logger: log,
		render: term.NewRender(),
		gate:   NewGate(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		keys:   make(chan []byte, keystrokeChanCap),
	}
	if cfg.ExitOnIdle > 0 {
		w.idle = NewIdleMonitor(cfg.ExitOnIdle)
	}
	w.cols, w.rows = terminalSize()
	w.runSession = w.session
	return w
}

// terminalSize samples the controlling terminal once; later resizes are
// not propagated to the child.
func terminalSize() (cols, rows int) {
	cols, rows, err := xterm.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		return defaultCols, defaultRows
	}
	return cols, rows
}

// Run executes the session loop until the child succeeds, fails without a
// restart path, or the run goes idle. It returns the exit code to report.
func (w *Wrapper) Run(ctx context.Context) (int, error) {
	w.keysOnce.Do(func() {
		go ReadKeystrokes(w.stdin, w.keys, w.logger)
	})

	args := append([]string(nil), w.cfg.AgentArgs...)
	code := 0

	for {
		res, err := w.runSession(ctx, args)
		if err != nil {
			// Fatal setup error: PTY or spawn failure aborts the run.
			return 1, err
		}

		if ctx.Err() != nil {
			// Cancellation already terminated the child; a non-zero exit
			// here is not a crash and must not restart.
			w.logger.Info("run cancelled, ending run", zap.Int("exit_code", res.exitCode))
			code = res.exitCode
			break
		}
		if res.idleExit {
			w.logger.Info("session idle, ending run")
			code = 0
			break
		}
		if res.exitCode == 0 {
			code = 0
			break
		}
		if !w.cfg.ContinueOnCrash {
			code = res.exitCode
			break
		}
		if res.sentinel {
			w.logger.Info("child crashed with no conversation to continue, not restarting",
				zap.Int("exit_code", res.exitCode))
			code = res.exitCode
			break
		}

		w.logger.Info("child crashed, restarting with continuation arguments",
			zap.Int("exit_code", res.exitCode))
		args = append([]string(nil), continuationArgs...)
	}

	if w.cfg.LogFile != "" {
		if err := w.saveTranscript(w.cfg.LogFile); err != nil {
			return code, fmt.Errorf("failed to write transcript: %w", err)
		}
	}
	return code, nil
}

// session runs one spawn-pump-wait cycle.
func (w *Wrapper) session(ctx context.Context, args []string) (sessionResult, error) {
	sessionID := uuid.New().String()
	log := w.logger.WithSessionID(sessionID)
	log.Info("starting agent session",
		zap.String("agent", w.cfg.Agent),
		zap.Strings("args", args),
		zap.Int("cols", w.cols),
		zap.Int("rows", w.rows))

	cmd := exec.Command(w.cfg.Agent, args...)
	ptmx, err := startPTYWithSize(cmd, w.cols, w.rows)
	if err != nil {
		return sessionResult{}, fmt.Errorf("failed to start %s in pty: %w", w.cfg.Agent, err)
	}

	queue := detect.NewResponseQueue(responseQueueCap)
	detector := detect.New(queue, w.cfg.Agent, log)
	status := detect.NewStatusTracker(w.cols, w.rows, detect.NewAgentScreenDetector(), log)
	pump := NewOutputPump(w.render, detector, status, w.gate, w.idle, w.stdout,
		w.cfg.RemoveControlCharacters, log)

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The pump runs on its own goroutine because the PTY read blocks; its
	// completion is the session's controlling signal.
	pumpDone := make(chan struct{})
	go func() {
		pump.Run(ptmx)
		queue.Close()
		close(pumpDone)
	}()

	mux := NewInputMultiplexer(w.gate, w.idle, log)
	var g errgroup.Group
	g.Go(func() error {
		return mux.Run(sessCtx, ptmx, w.keys, queue.Ch())
	})

	idleCh := make(chan struct{}, 1)
	if w.idle != nil {
		go func() {
			if w.idle.Watch(sessCtx, w.idleVerdict(status)) {
				idleCh <- struct{}{}
			}
		}()
	}

	idleExit := false
	select {
	case <-pumpDone:
	case <-idleCh:
		idleExit = true
		log.Info("idle timeout reached, terminating child")
		w.stopChild(cmd, pumpDone)
	case <-ctx.Done():
		log.Info("run cancelled, terminating child")
		w.stopChild(cmd, pumpDone)
	}

	// Abandon the multiplexer; pending keystrokes are not drained after
	// the child's output has ended.
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Debug("input multiplexer ended", zap.Error(err))
	}

	exitCode, waitErr := waitProcess(cmd)
	_ = ptmx.Close()

	log.Info("agent session ended",
		zap.Int("exit_code", exitCode),
		zap.Bool("idle_exit", idleExit))
	if waitErr != nil {
		log.Debug("wait returned error", zap.Error(waitErr))
	}

	return sessionResult{
		exitCode: exitCode,
		sentinel: detector.SentinelSeen(),
		idleExit: idleExit,
	}, nil
}

// idleVerdict builds the idle callback: the session counts as idle only
// when neither the transcript nor the screen tracker shows active work.
func (w *Wrapper) idleVerdict(status *detect.StatusTracker) func() bool {
	return func() bool {
		text := w.render.Render()
		if strings.Contains(text, "esc to interrupt") ||
			strings.Contains(text, "to run in background") {
			return false
		}
		if status.CurrentState() == detect.StateWorking {
			return false
		}
		return true
	}
}

// stopChild terminates the child, escalating to SIGKILL when it does not
// exit within the grace period. The PTY read unblocks once the child side
// goes away, which completes the pump.
func (w *Wrapper) stopChild(cmd *exec.Cmd, pumpDone <-chan struct{}) {
	if cmd.Process == nil {
		return
	}
	_ = terminateProcess(cmd.Process)
	select {
	case <-pumpDone:
	case <-time.After(killGrace):
		_ = cmd.Process.Kill()
		<-pumpDone
	}
}

// saveTranscript writes the rendered transcript to path, creating parent
// directories as needed.
func (w *Wrapper) saveTranscript(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(w.render.Render()), 0o644)
}

// Transcript returns the current rendered scrollback.
func (w *Wrapper) Transcript() string {
	return w.render.Render()
}
