/* *****************************************************************************
 * Nehonix XyPriss System CLI
 *
 * ACCESS RESTRICTIONS:
 * - This software is exclusively for use by Authorized Personnel of NEHONIX
 * - Intended for Internal Use only within NEHONIX operations
 * - No rights granted to unauthorized individuals or entities
 * - All modifications are works made for hire assigned to NEHONIX
 *
 * PROHIBITED ACTIVITIES:
 * - Copying, distributing, or sublicensing without written permission
 * - Reverse engineering, decompiling, or disassembling
 * - Creating derivative works without explicit authorization
 * - External use or commercial distribution outside NEHONIX
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 * For questions or permissions, contact:
 * NEHONIX Legal Department
 * Email: legal@nehonix.com
 * Website: www.nehonix.com
 ***************************************************************************** */

// Package executor runs the shell commands a service descriptor supplies for
// start, stop, and check, bounding both their output and their runtime.
package executor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// defaultTimeout bounds a command that does not specify its own.
	defaultTimeout = 30 * time.Second
	// outputCap bounds how much of stdout/stderr is retained in memory.
	outputCap = 1 << 20 // 1 MiB
	// pipeDrainTimeout is the cmd.WaitDelay: after the run's context is done,
	// how long Wait waits for the killed child before giving up on it.
	pipeDrainTimeout = 3 * time.Second
)

// Options configures a single command run.
type Options struct {
	Cwd     string
	Env     map[string]string
	Timeout time.Duration
	// Label tags log lines, e.g. the owning service's name.
	Label string
}

// Result is the outcome of a completed (or killed) command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// PID is the shell process's own PID, captured before Wait. It is the
	// immediate child of the executor, not necessarily the long-running
	// process a backgrounding start command (`nohup … &`, `docker run -d`)
	// ultimately launches — callers treat it as advisory only.
	PID int
}

// Executor runs shell commands via the system shell.
type Executor struct {
	// Shell is the interpreter used to evaluate command strings.
	// Defaults to "/bin/sh" with "-c" on non-Windows platforms.
	Shell     string
	ShellFlag string
}

// New returns an Executor configured for the host platform's shell.
func New() *Executor {
	return &Executor{Shell: shellPath(), ShellFlag: shellFlag()}
}

// Run executes command through the shell and always returns a Result —
// spawn failures, timeouts, and non-zero exits are all reported via
// ExitCode rather than as a returned error.
func (e *Executor) Run(ctx context.Context, command string, opts Options) *Result {
	if command == "" {
		return &Result{ExitCode: 0}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// runID correlates this invocation's stdout/stderr log lines with each
	// other when several commands for the same service run concurrently
	// (e.g. a stop racing a start's health wait).
	runID := uuid.NewString()[:8]
	tag := opts.Label
	if tag != "" {
		tag = tag + ":" + runID
	}

	cmd := exec.CommandContext(runCtx, e.Shell, e.ShellFlag, command)
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	cmd.Env = buildEnv(opts.Env)
	applyProcessGroup(cmd)

	// A start command frequently backgrounds the real process (`nohup … &`,
	// `docker run -d`); the grandchild inherits the stdout/stderr pipe
	// write-fds, so they never see EOF on their own. The pipes below come
	// from StdoutPipe/StderrPipe, whose read ends Wait closes as soon as the
	// shell itself exits, so a lingering grandchild cannot hold Run open.
	cmd.WaitDelay = pipeDrainTimeout

	var stdout, stderr boundedBuffer
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return &Result{ExitCode: -1, Stderr: fmt.Sprintf("executor: stdout pipe: %v", err)}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return &Result{ExitCode: -1, Stderr: fmt.Sprintf("executor: stderr pipe: %v", err)}
	}

	if err := cmd.Start(); err != nil {
		return &Result{ExitCode: -1, Stderr: fmt.Sprintf("executor: start: %v", err)}
	}
	pid := cmd.Process.Pid

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); streamInto(stdoutPipe, &stdout, "OUT", tag) }()
	go func() { defer wg.Done(); streamInto(stderrPipe, &stderr, "ERR", tag) }()

	// Wait for the direct child first: it returns once the shell exits and
	// closes the pipes' read ends then, never hanging on a grandchild that
	// kept the write ends open. wg.Wait() then only waits on the scanners
	// to unwind; output the scanners had not yet read when the pipes were
	// closed is not captured.
	waitErr := cmd.Wait()
	wg.Wait()

	res := &Result{Stdout: stdout.String(), Stderr: stderr.String(), PID: pid}
	switch {
	case waitErr == nil:
		res.ExitCode = 0
	case runCtx.Err() == context.DeadlineExceeded:
		res.ExitCode = -1
		res.Stderr += fmt.Sprintf("\nexecutor: command timed out after %s", timeout)
	default:
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Stderr += fmt.Sprintf("\nexecutor: %v", waitErr)
		}
	}
	return res
}

// Check runs command and reports whether it exited zero.
func (e *Executor) Check(ctx context.Context, command string, opts Options) bool {
	return e.Run(ctx, command, opts).ExitCode == 0
}

func buildEnv(overlay map[string]string) []string {
	env := os.Environ()
	for k, v := range overlay {
		env = append(env, k+"="+v)
	}
	return env
}

func streamInto(pipe io.Reader, buf *boundedBuffer, tag, label string) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), 256*1024)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteLine(line)
		if label != "" {
			log.Printf("[%s][%s] %s", tag, label, line)
		}
	}
}

// boundedBuffer accumulates lines up to outputCap bytes, then truncates.
type boundedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	truncated bool
}

func (b *boundedBuffer) WriteLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return
	}
	if b.buf.Len() >= outputCap {
		b.truncated = true
		b.buf.WriteString("\n... output truncated ...")
		return
	}
	b.buf.WriteString(line)
	b.buf.WriteByte('\n')
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
