package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alange-rdtest/access-time3/internal/config"
	"github.com/alange-rdtest/access-time3/internal/errs"
	"github.com/alange-rdtest/access-time3/internal/logging"
)

// ScheduledCommand is one (elapsed-seconds, command) pair parsed out of a
// command_script string.
type ScheduledCommand struct {
	ElapsedSec uint64
	Command    string
}

var scriptTimePattern = regexp.MustCompile(`^([0-9]+)([sm]?)$`)

// ParseScript parses a command_script string of the shape
// "t1[s|m]:cmd1=v1;t2[s|m]:cmd2=v2;..." into an ordered queue of
// ScheduledCommand, mirroring CommandScript::operator= in the reference
// implementation. An "m" suffix multiplies the time by 60; "s" or no
// suffix leaves it in seconds. Malformed entries produce a ConfigError.
func ParseScript(script string) ([]ScheduledCommand, error) {
	if script == "" {
		return nil, nil
	}

	var out []ScheduledCommand
	for _, part := range strings.Split(script, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, errs.New("parse_script", errs.ConfigError, fmt.Sprintf("invalid command in command_script: %s", part))
		}

		m := scriptTimePattern.FindStringSubmatch(fields[0])
		if m == nil {
			return nil, errs.New("parse_script", errs.ConfigError, fmt.Sprintf("invalid time: %s", fields[0]))
		}
		elapsed, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return nil, errs.New("parse_script", errs.ConfigError, fmt.Sprintf("invalid time: %s", fields[0]))
		}
		if m[2] == "m" {
			elapsed *= 60
		}

		out = append(out, ScheduledCommand{ElapsedSec: elapsed, Command: fields[1]})
	}
	return out, nil
}

// ScriptScheduler holds a pre-parsed, time-ordered queue of commands and
// lets the Controller's outer loop pop and apply the ones whose time has
// elapsed, via the same ApplyCommand path CommandReader uses.
type ScriptScheduler struct {
	queue []ScheduledCommand
	live  *config.Live
	log   *logging.Logger
}

// NewScriptScheduler parses script and constructs a ScriptScheduler bound
// to live.
func NewScriptScheduler(script string, live *config.Live, log *logging.Logger) (*ScriptScheduler, error) {
	queue, err := ParseScript(script)
	if err != nil {
		return nil, err
	}
	return &ScriptScheduler{queue: queue, live: live, log: log.WithComponent("script-scheduler")}, nil
}

// ApplyDue pops and applies every queued command whose ElapsedSec is <=
// elapsedSec, in order, stopping (and requesting a run stop) the moment a
// "stop" entry is reached. It returns true if a stop was requested.
func (s *ScriptScheduler) ApplyDue(elapsedSec uint64) bool {
	for len(s.queue) > 0 && s.queue[0].ElapsedSec <= elapsedSec {
		c := s.queue[0]
		s.queue = s.queue[1:]
		s.log.Info("command_script", "time", c.ElapsedSec, "command", c.Command)

		if name, _ := config.ParseCommand(c.Command); name == "stop" {
			s.live.RequestStop()
			return true
		}
		if _, err := s.live.ApplyCommand(c.Command); err != nil {
			s.log.Warn("scheduled command rejected", "command", c.Command, "error", err.Error())
		}
	}
	return false
}

// Pending reports how many scheduled commands remain unapplied.
func (s *ScriptScheduler) Pending() int { return len(s.queue) }
