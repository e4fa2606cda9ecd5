// Package command implements the two ways a run's live configuration can be
// mutated while it's in flight: CommandReader (an interactive line channel)
// and ScriptScheduler (a pre-loaded, time-keyed command queue). Both funnel
// through config.Live.ApplyCommand, the single "apply command" entry point.
package command

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/alange-rdtest/access-time3/internal/config"
	"github.com/alange-rdtest/access-time3/internal/logging"
)

// selectTimeout bounds how promptly the reader goroutine notices Stop,
// mirroring the reference implementation's 300ms monitor_fgets poll.
const selectTimeout = 300 * time.Millisecond

// CommandReader runs a line-oriented reader on its own goroutine, applying
// each line to live via ApplyCommand. "stop" is special-cased to call
// live.RequestStop() directly, the same shortcut the reference
// implementation's Reader::threadMain takes instead of round-tripping
// through the command grammar.
type CommandReader struct {
	live *config.Live
	log  *logging.Logger

	lines  chan string
	done   chan struct{}
	closed chan struct{}
}

// NewCommandReader starts a CommandReader reading lines from src and
// applying them against live.
func NewCommandReader(src io.Reader, live *config.Live, log *logging.Logger) *CommandReader {
	r := &CommandReader{
		live:   live,
		log:    log.WithComponent("command-reader"),
		lines:  make(chan string),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go r.scanLoop(src)
	go r.applyLoop()
	return r
}

// scanLoop reads lines from src and forwards them to the apply goroutine,
// exiting on EOF, a scan error, or Stop. On EOF or a scan error it closes
// lines, which the apply goroutine treats as a stop request.
func (r *CommandReader) scanLoop(src io.Reader) {
	defer close(r.closed)
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		select {
		case <-r.done:
			return
		case r.lines <- scanner.Text():
		}
	}
	close(r.lines)
}

// applyLoop consumes lines (with a selectTimeout poll so Stop is observed
// promptly even with no input pending) and applies them.
func (r *CommandReader) applyLoop() {
	for {
		select {
		case <-r.done:
			return
		case line, ok := <-r.lines:
			if !ok {
				r.live.RequestStop()
				return
			}
			r.handle(line)
		case <-time.After(selectTimeout):
			if r.live.Stopped() {
				return
			}
		}
	}
}

func (r *CommandReader) handle(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if name, _ := config.ParseCommand(line); name == "stop" {
		r.log.Info("stop command received")
		r.live.RequestStop()
		return
	}
	help, err := r.live.ApplyCommand(line)
	if err != nil {
		r.log.Warn("command rejected", "line", line, "error", err.Error())
		return
	}
	if help != "" {
		r.log.Info(help)
	}
}

// Stop signals the reader's goroutines to exit without waiting for EOF.
func (r *CommandReader) Stop() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}
