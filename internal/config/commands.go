package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alange-rdtest/access-time3/internal/errs"
)

// HelpText is the fixed response to the "help" command, grounded on the
// reference implementation's own literal help listing.
const HelpText = "COMMANDS:\n" +
	"    stop           - terminate\n" +
	"    wait           - (true|false)\n" +
	"    sleep_interval - milliseconds\n" +
	"    sleep_count    - [1..]\n" +
	"    write_ratio    - [0..1]\n" +
	"    random_ratio   - [0..1]\n" +
	"    flush_blocks   - [0..]\n" +
	"    block_size     - KiB, >=4\n"

// ParseCommand splits a raw command-channel or script line ("name" or
// "name=value") into its name and payload.
func ParseCommand(line string) (name, value string) {
	if idx := strings.IndexByte(line, '='); idx >= 0 {
		return line[:idx], line[idx+1:]
	}
	return line, ""
}

// ApplyCommand parses and applies one command line to the live
// configuration. It returns HelpText unchanged as an informational result
// when the command is "help"; "stop" is handled by the caller (CommandReader
// and the script scheduler both special-case it the way the reference
// implementation's outer loop does, since stopping also needs to tear down
// the reader/scheduler rather than merely flip a flag in Live).
//
// On a validation failure, the live configuration is left untouched and a
// CommandError is returned. On a successful mutation of write_ratio,
// random_ratio, or sleep_count, the changed flag is raised so the stats
// loop skips exactly one sample, matching the reference implementation's
// parseLineCommandValidate path; wait, sleep_interval, and flush_blocks use
// the plain parseLineCommand path and never raise it; block_size is a
// supplemented command with no direct reference-implementation analogue
// and likewise does not raise it.
func (l *Live) ApplyCommand(line string) (help string, err error) {
	name, value := ParseCommand(line)

	switch name {
	case "help":
		return HelpText, nil

	case "wait":
		v, perr := parseBool(value, true)
		if perr != nil {
			return "", errs.New("apply command", errs.CommandError, fmt.Sprintf("invalid value for the command wait: %v", perr))
		}
		l.mu.Lock()
		l.wait = v
		l.mu.Unlock()
		return "", nil

	case "sleep_interval":
		v, perr := parseUint64(value)
		if perr != nil {
			return "", errs.New("apply command", errs.CommandError, fmt.Sprintf("invalid value for the command sleep_interval: %v", perr))
		}
		l.mu.Lock()
		l.sleepInterval = v
		l.mu.Unlock()
		return "", nil

	case "sleep_count":
		v, perr := parseUint64(value)
		if perr != nil || v == 0 {
			return "", errs.New("apply command", errs.CommandError, "invalid value for the command sleep_count: must be >0")
		}
		l.mu.Lock()
		l.sleepCount = v
		l.changed = true
		l.mu.Unlock()
		return "", nil

	case "write_ratio":
		v, perr := parseRatio(value)
		if perr != nil {
			return "", errs.New("apply command", errs.CommandError, fmt.Sprintf("invalid value for the command write_ratio: %v", perr))
		}
		l.mu.Lock()
		l.writeRatio = v
		l.changed = true
		l.mu.Unlock()
		return "", nil

	case "random_ratio":
		v, perr := parseRatio(value)
		if perr != nil {
			return "", errs.New("apply command", errs.CommandError, fmt.Sprintf("invalid value for the command random_ratio: %v", perr))
		}
		l.mu.Lock()
		l.randomRatio = v
		l.changed = true
		l.mu.Unlock()
		return "", nil

	case "flush_blocks":
		v, perr := parseUint64(value)
		if perr != nil {
			return "", errs.New("apply command", errs.CommandError, fmt.Sprintf("invalid value for the command flush_blocks: %v", perr))
		}
		l.mu.Lock()
		l.flushBlocks = v
		l.mu.Unlock()
		return "", nil

	case "block_size":
		v, perr := parseUint64(value)
		if perr != nil || v < 4 {
			return "", errs.New("apply command", errs.CommandError, "invalid value for the command block_size: must be >=4")
		}
		l.mu.Lock()
		l.blockSizeKiB = v
		l.mu.Unlock()
		return "", nil

	default:
		return "", errs.New("apply command", errs.CommandError, fmt.Sprintf("invalid command: %s", name))
	}
}

func parseBool(value string, required bool) (bool, error) {
	if value == "" {
		if required {
			return false, fmt.Errorf("value required")
		}
		return true, nil
	}
	return strconv.ParseBool(value)
}

func parseUint64(value string) (uint64, error) {
	return strconv.ParseUint(value, 10, 64)
}

func parseRatio(value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if v < 0.0 || v > 1.0 {
		return 0, fmt.Errorf("must be in [0,1], got %v", v)
	}
	return v, nil
}
