package wrapper

import "io"

// PtyHandle abstracts the PTY master attached to the child process. The
// concrete implementation wraps creack/pty on Unix; tests substitute pipes.
type PtyHandle interface {
	io.ReadWriteCloser
}
