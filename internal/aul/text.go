package aul

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// End addresses the append position or the last line/field
const End = "end"

// Line addressing modes for update sub-operations
const (
	byIndex = "index"
	byStart = "start"
)

// textFile is a file held as lines that keep their own terminators
type textFile struct {
	lines []string
	nl    string
	mode  os.FileMode
}

func readTextFile(path string) (*textFile, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, ErrMissing
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	tf := &textFile{nl: "\n", mode: info.Mode().Perm()}
	text := string(data)
	if i := strings.Index(text, "\n"); i > 0 && text[i-1] == '\r' {
		tf.nl = "\r\n"
	}
	for text != "" {
		i := strings.Index(text, "\n")
		if i < 0 {
			tf.lines = append(tf.lines, text)
			break
		}
		tf.lines = append(tf.lines, text[:i+1])
		text = text[i+1:]
	}
	return tf, nil
}

func (tf *textFile) write(path string) error {
	if err := os.WriteFile(path, []byte(strings.Join(tf.lines, "")), tf.mode); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// content returns line i without its terminator
func (tf *textFile) content(i int) string {
	return strings.TrimRight(tf.lines[i], "\r\n")
}

// terminator returns the line break ending line i, or "" for an open last line
func (tf *textFile) terminator(i int) string {
	return tf.lines[i][len(tf.content(i)):]
}

// terminateLast adds a line break to an open last line
func (tf *textFile) terminateLast() {
	if n := len(tf.lines); n > 0 && tf.terminator(n-1) == "" {
		tf.lines[n-1] += tf.nl
	}
}

// find resolves an index or start-prefix address to a line number
func (tf *textFile) find(mode, value string) (int, error) {
	switch mode {
	case byIndex:
		if value == End {
			if len(tf.lines) == 0 {
				return 0, fmt.Errorf("%w: file is empty", ErrIndex)
			}
			return len(tf.lines) - 1, nil
		}
		n, err := parseIndex(value)
		if err != nil {
			return 0, err
		}
		if n >= len(tf.lines) {
			return 0, fmt.Errorf("%w: line %d of %d", ErrIndex, n, len(tf.lines))
		}
		return n, nil
	case byStart:
		for i := range tf.lines {
			if strings.HasPrefix(tf.content(i), value) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: %q", ErrNoMatch, value)
	}
	return 0, fmt.Errorf("%w: unknown line address %q", ErrArguments, mode)
}

// update applies a line-level edit: args are path, sub-operation, operands
func (in *Interpreter) update(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: update needs a path and a sub-operation", ErrArguments)
	}
	path, err := in.live(args[0])
	if err != nil {
		return err
	}
	tf, err := readTextFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s", err, args[0])
	}

	sub, operands := args[1], args[2:]
	switch sub {
	case "newline":
		err = tf.newline(operands)
	case "deleteline":
		err = tf.deleteLine(operands)
	case "rewriteline":
		err = tf.rewriteLine(operands)
	case "modifyline":
		err = tf.modifyLine(operands)
	default:
		err = fmt.Errorf("%w: unknown update operation %q", ErrArguments, sub)
	}
	if err != nil {
		return err
	}
	return tf.write(path)
}

// newline <index|end>
func (tf *textFile) newline(ops []string) error {
	if len(ops) != 1 {
		return fmt.Errorf("%w: newline takes 1 operand", ErrArguments)
	}
	at := len(tf.lines)
	if ops[0] != End {
		n, err := parseIndex(ops[0])
		if err != nil {
			return err
		}
		at = min(n, len(tf.lines))
	}
	if at == len(tf.lines) {
		tf.terminateLast()
	}
	tf.lines = slices.Insert(tf.lines, at, tf.nl)
	return nil
}

// deleteline index <n> | deleteline start <prefix>
func (tf *textFile) deleteLine(ops []string) error {
	if len(ops) != 2 {
		return fmt.Errorf("%w: deleteline takes 2 operands", ErrArguments)
	}
	i, err := tf.find(ops[0], ops[1])
	if err != nil {
		return err
	}
	tf.lines = slices.Delete(tf.lines, i, i+1)
	return nil
}

// rewriteline index <n|end> <text> | rewriteline start <prefix> <text>
func (tf *textFile) rewriteLine(ops []string) error {
	if len(ops) != 3 {
		return fmt.Errorf("%w: rewriteline takes 3 operands", ErrArguments)
	}
	text := ops[2]

	if ops[0] == byIndex && ops[1] == End {
		last := len(tf.lines) - 1
		if last >= 0 && tf.content(last) == "" {
			tf.lines[last] = text + tf.nl
			return nil
		}
		tf.terminateLast()
		tf.lines = append(tf.lines, text+tf.nl)
		return nil
	}

	i, err := tf.find(ops[0], ops[1])
	if err != nil {
		return err
	}
	tf.lines[i] = text + tf.nl
	return nil
}

// modifyline index <n> <sep> <field> <value> | modifyline start <prefix> <sep> <field> <value>
func (tf *textFile) modifyLine(ops []string) error {
	if len(ops) != 5 {
		return fmt.Errorf("%w: modifyline takes 5 operands", ErrArguments)
	}
	sep := ops[2]
	if sep == "" {
		return fmt.Errorf("%w: empty separator", ErrArguments)
	}
	field, err := parseIndex(ops[3])
	if err != nil {
		return err
	}
	i, err := tf.find(ops[0], ops[1])
	if err != nil {
		return err
	}

	fields := strings.Split(tf.content(i), sep)
	if field >= len(fields) {
		return fmt.Errorf("%w: field %d of %d", ErrIndex, field, len(fields))
	}
	fields[field] = ops[4]
	tf.lines[i] = strings.Join(fields, sep) + tf.terminator(i)
	return nil
}

// parseIndex accepts a non-negative decimal index
func parseIndex(s string) (int, error) {
	if s == "" || strings.Trim(s, "0123456789") != "" {
		return 0, fmt.Errorf("%w: index %q is not a number", ErrArguments, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: index %s", ErrIndex, s)
	}
	return n, nil
}
