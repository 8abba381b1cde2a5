// Package aul interprets the APY Update Language: line-oriented commands that
// migrate an installation tree from one launcher version to the next.
package aul

import (
	"errors"
	"fmt"
	"strings"
)

// Op is an AUL opcode
type Op string

const (
	OpReplaceFile Op = "replacefile"
	OpReplaceDir  Op = "replacedir"
	OpCreateFile  Op = "createfile"
	OpCreateDir   Op = "createdir"
	OpDeleteFile  Op = "deletefile"
	OpDeleteDir   Op = "deletedir"
	OpUpdate      Op = "update"
	OpUpdateCSV   Op = "updatecsv"
)

// Sentinel errors wrapped by CommandError.
var (
	ErrEmptyCommand = errors.New("empty command")
	ErrUnknownOp    = errors.New("unknown command")
	ErrArguments    = errors.New("invalid arguments")
	ErrMissing      = errors.New("file or directory not found")
	ErrIndex        = errors.New("index out of range")
	ErrNoMatch      = errors.New("no line starts with prefix")
)

// Command is one parsed AUL instruction
type Command struct {
	Op   Op
	Args []string
}

func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, string(c.Op))
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// CommandError reports a failed command. Interpreters never panic on bad
// input; every failure surfaces as a *CommandError.
type CommandError struct {
	Op   Op
	Line string
	Err  error
}

func (e *CommandError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("aul: %q: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("aul %s: %q: %v", e.Op, e.Line, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Tokenize splits a command line on runs of spaces or tabs. A double quote
// toggles quoted mode and is never part of a token, so "" yields an empty
// token. There is no escape for a literal quote.
func Tokenize(line string) []string {
	var (
		tokens   []string
		cur      strings.Builder
		quoted   bool
		hasToken bool
	)
	flush := func() {
		if hasToken {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
		hasToken = false
	}

	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			hasToken = true
		case (r == ' ' || r == '\t') && !quoted:
			flush()
		default:
			cur.WriteRune(r)
			hasToken = true
		}
	}
	flush()
	return tokens
}

// Parse tokenizes a line into a Command
func Parse(line string) (Command, error) {
	tokens := Tokenize(strings.TrimRight(line, "\r\n"))
	if len(tokens) == 0 {
		return Command{}, ErrEmptyCommand
	}
	op := Op(tokens[0])
	switch op {
	case OpReplaceFile, OpReplaceDir, OpCreateFile, OpCreateDir, OpDeleteFile, OpDeleteDir, OpUpdate, OpUpdateCSV:
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownOp, tokens[0])
	}
	return Command{Op: op, Args: tokens[1:]}, nil
}

// ParseScript splits a script into command lines, dropping blank lines and
// carriage returns
func ParseScript(script string) []string {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
