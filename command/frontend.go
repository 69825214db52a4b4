// Package command implements the line-oriented front-end: tokenizing one
// input line, validating its arity and numeric ranges, dispatching to a
// session.Session operation, and triggering persistence — the Go
// counterpart of the teacher's single process_command dispatch loop.
package command

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dargueta/blockfs/session"
	"github.com/hashicorp/go-multierror"
)

const (
	maxNameLen  = 5
	maxDiskLen  = 20
	maxBlockNum = 127
	maxSize     = 127
)

// Frontend reads command lines and dispatches them against a Session,
// reporting syntax errors against the named input source.
type Frontend struct {
	Session   *session.Session
	InputName string
	Errw      io.Writer
}

// New returns a Frontend bound to sess, reporting "Command Error: <inputName>, <line>"
// against inputName when a line fails to parse.
func New(sess *session.Session, inputName string) *Frontend {
	return &Frontend{Session: sess, InputName: inputName, Errw: sess.Errw}
}

// Run processes every non-empty line of text, one command at a time, in
// order, stopping only at EOF.
func (f *Frontend) Run(lines []string) {
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		f.processLine(line, i+1)
	}
}

func (f *Frontend) commandError(lineNo int) {
	fmt.Fprintf(f.Errw, "Command Error: %s, %d\n", f.InputName, lineNo)
}

func (f *Frontend) noFileSystemMounted() {
	fmt.Fprintf(f.Errw, "Error: No file system is mounted\n")
}

func (f *Frontend) processLine(line string, lineNo int) {
	args := strings.Split(line, " ")
	args = removeEmpty(args)
	if len(args) == 0 {
		f.commandError(lineNo)
		return
	}

	cmd := args[0][0]
	switch cmd {
	case 'M':
		if !validateArity(args, 2).
			Append(validateName(args, 1, maxDiskLen)).
			fail(f, lineNo) {
			return
		}
		f.Session.Mount(args[1])
		if f.Session.Mounted() {
			f.Session.Persist()
		}

	case 'C':
		size, errs := validateIntCommand(args, 3, maxNameLen, 0, maxSize)
		if errs.fail(f, lineNo) {
			return
		}
		if !f.requireMounted(lineNo) {
			return
		}
		f.Session.Create(args[1], size)
		f.Session.Persist()

	case 'D':
		if !validateArity(args, 2).
			Append(validateName(args, 1, maxNameLen)).
			fail(f, lineNo) {
			return
		}
		if !f.requireMounted(lineNo) {
			return
		}
		f.Session.Delete(args[1])
		f.Session.Persist()

	case 'R':
		block, errs := validateIntCommand(args, 3, maxNameLen, 0, maxBlockNum)
		if errs.fail(f, lineNo) {
			return
		}
		if !f.requireMounted(lineNo) {
			return
		}
		f.Session.Read(args[1], block)
		f.Session.Persist()

	case 'W':
		block, errs := validateIntCommand(args, 3, maxNameLen, 0, maxBlockNum)
		if errs.fail(f, lineNo) {
			return
		}
		if !f.requireMounted(lineNo) {
			return
		}
		f.Session.Write(args[1], block)
		f.Session.Persist()

	case 'B':
		if !validateMinArity(args, 2).fail(f, lineNo) {
			return
		}
		if !f.requireMounted(lineNo) {
			return
		}
		payload := []byte(strings.Join(args[1:], " "))
		f.Session.Buff(payload)

	case 'L':
		if !validateArity(args, 1).fail(f, lineNo) {
			return
		}
		if !f.requireMounted(lineNo) {
			return
		}
		f.Session.Ls()

	case 'E':
		newSize, errs := validateIntCommand(args, 3, maxNameLen, 0, maxSize)
		if errs.fail(f, lineNo) {
			return
		}
		if !f.requireMounted(lineNo) {
			return
		}
		f.Session.Resize(args[1], newSize)
		f.Session.Persist()

	case 'O':
		if !validateArity(args, 1).fail(f, lineNo) {
			return
		}
		if !f.requireMounted(lineNo) {
			return
		}
		f.Session.Defrag()
		f.Session.Persist()

	case 'Y':
		if !validateArity(args, 2).
			Append(validateName(args, 1, maxNameLen)).
			fail(f, lineNo) {
			return
		}
		if !f.requireMounted(lineNo) {
			return
		}
		f.Session.Cd(args[1])

	default:
		f.commandError(lineNo)
	}
}

func (f *Frontend) requireMounted(lineNo int) bool {
	if !f.Session.Mounted() {
		f.noFileSystemMounted()
		return false
	}
	return true
}

// ruleErrors accumulates every violated validation rule for a single line,
// mirroring the teacher's pattern of collecting every *hashicorp/go-multierror
// failure before a caller decides pass/fail, rather than stopping at the
// first violation. The accumulated detail isn't surfaced today (the
// externally-visible diagnostic is still the single-line "Command Error:
// <input>, <line>"), but it's what a future verbose front-end would print.
type ruleErrors struct {
	errs *multierror.Error
}

// Append merges another ruleErrors's violations into this one and returns
// the receiver, so checks can be chained.
func (r *ruleErrors) Append(other *ruleErrors) *ruleErrors {
	if other == nil || other.errs == nil {
		return r
	}
	r.errs = multierror.Append(r.errs, other.errs.Errors...)
	return r
}

// fail reports a Command Error for lineNo if any rule was violated and
// returns whether the line should be rejected.
func (r *ruleErrors) fail(f *Frontend, lineNo int) bool {
	if r.errs.ErrorOrNil() != nil {
		f.commandError(lineNo)
		return true
	}
	return false
}

func validateArity(args []string, want int) *ruleErrors {
	r := &ruleErrors{}
	if len(args) != want {
		r.errs = multierror.Append(r.errs, fmt.Errorf("wrong number of arguments: want %d, got %d", want, len(args)))
	}
	return r
}

func validateMinArity(args []string, min int) *ruleErrors {
	r := &ruleErrors{}
	if len(args) < min {
		r.errs = multierror.Append(r.errs, fmt.Errorf("too few arguments: want at least %d, got %d", min, len(args)))
	}
	return r
}

func validateName(args []string, index, nameMax int) *ruleErrors {
	r := &ruleErrors{}
	if index < len(args) && len(args[index]) > nameMax {
		r.errs = multierror.Append(r.errs, fmt.Errorf("name %q exceeds %d characters", args[index], nameMax))
	}
	return r
}

// validateIntCommand validates a 3-token command ("<cmd> <name> <number>"),
// accumulating every violated rule (wrong arity, oversized name, unparsable
// or out-of-range number) rather than stopping at the first one, and
// returns the parsed number (0 if it couldn't be parsed) alongside the
// accumulated violations. wantArgs is the required token count, nameMax
// bounds the name token's length, and [lo, hi] bounds the parsed number
// inclusively.
func validateIntCommand(args []string, wantArgs, nameMax, lo, hi int) (int, *ruleErrors) {
	r := validateArity(args, wantArgs).Append(validateName(args, 1, nameMax))

	n := 0
	if len(args) >= 3 {
		parsed, err := strconv.Atoi(args[2])
		if err != nil {
			r.errs = multierror.Append(r.errs, fmt.Errorf("%q is not a number", args[2]))
		} else {
			n = parsed
			if n < lo || n > hi {
				r.errs = multierror.Append(r.errs, fmt.Errorf("%d is out of range [%d, %d]", n, lo, hi))
			}
		}
	}
	return n, r
}

func removeEmpty(tokens []string) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
