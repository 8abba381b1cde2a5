package aul

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fastattackv/apy-launcher/internal/paths"
)

// Interpreter executes AUL commands against an installation. Root is the
// installation directory; Staging holds the unpacked files of the new
// version that replacefile and replacedir copy from.
type Interpreter struct {
	Root    string
	Staging string
	Logger  *zap.Logger

	// Observe, when set, is called after every command with its outcome
	Observe func(op Op, err error)
}

// Execute runs one command line. It returns nil on success and a
// *CommandError on any failure.
func (in *Interpreter) Execute(ctx context.Context, line string) error {
	cmd, err := Parse(line)
	if err != nil {
		in.observe("", err)
		return &CommandError{Line: line, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &CommandError{Op: cmd.Op, Line: line, Err: err}
	}

	err = in.dispatch(cmd)
	in.observe(cmd.Op, err)
	if err != nil {
		in.logger().Warn("aul command failed", zap.String("command", line), zap.Error(err))
		return &CommandError{Op: cmd.Op, Line: line, Err: err}
	}
	in.logger().Debug("aul command applied", zap.String("command", line))
	return nil
}

// Run executes lines in order and stops at the first failure. It returns the
// number of commands applied; applied commands are never undone.
func (in *Interpreter) Run(ctx context.Context, lines []string) (int, error) {
	for i, line := range lines {
		if err := in.Execute(ctx, line); err != nil {
			return i, err
		}
	}
	return len(lines), nil
}

func (in *Interpreter) logger() *zap.Logger {
	if in.Logger == nil {
		return zap.NewNop()
	}
	return in.Logger
}

func (in *Interpreter) observe(op Op, err error) {
	if in.Observe != nil {
		in.Observe(op, err)
	}
}

func (in *Interpreter) dispatch(cmd Command) error {
	switch cmd.Op {
	case OpReplaceFile:
		return in.withPath(cmd, in.replaceFile)
	case OpReplaceDir:
		return in.withPath(cmd, in.replaceDir)
	case OpCreateFile:
		return in.withPath(cmd, in.createFile)
	case OpCreateDir:
		return in.withPath(cmd, in.createDir)
	case OpDeleteFile:
		return in.withPath(cmd, in.deleteFile)
	case OpDeleteDir:
		return in.withPath(cmd, in.deleteDir)
	case OpUpdate:
		return in.update(cmd.Args)
	case OpUpdateCSV:
		return in.updateCSV(cmd.Args)
	}
	return fmt.Errorf("%w: %s", ErrUnknownOp, cmd.Op)
}

// withPath runs the single-path opcodes
func (in *Interpreter) withPath(cmd Command, fn func(rel string) error) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("%w: %s takes 1 path, got %d arguments", ErrArguments, cmd.Op, len(cmd.Args))
	}
	return fn(cmd.Args[0])
}

func (in *Interpreter) live(rel string) (string, error) {
	p, err := paths.Resolve(in.Root, rel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArguments, err)
	}
	return paths.MatchCase(p), nil
}

func (in *Interpreter) staged(rel string) (string, error) {
	p, err := paths.Resolve(in.Staging, rel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArguments, err)
	}
	return paths.MatchCase(p), nil
}

func (in *Interpreter) replaceFile(rel string) error {
	src, err := in.staged(rel)
	if err != nil {
		return err
	}
	dst, err := in.live(rel)
	if err != nil {
		return err
	}
	if info, err := os.Stat(src); err != nil || info.IsDir() {
		return fmt.Errorf("%w: staged file %s", ErrMissing, rel)
	}

	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	if err := paths.CopyFile(src, dst); err != nil {
		return fmt.Errorf("failed to copy %s: %w", rel, err)
	}
	return nil
}

func (in *Interpreter) replaceDir(rel string) error {
	src, err := in.staged(rel)
	if err != nil {
		return err
	}
	dst, err := in.live(rel)
	if err != nil {
		return err
	}
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: staged directory %s", ErrMissing, rel)
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", rel, err)
	}
	if err := paths.ClearDir(dst); err != nil {
		return fmt.Errorf("failed to clear %s: %w", rel, err)
	}
	if err := paths.CopyDir(src, dst); err != nil {
		return fmt.Errorf("failed to copy %s: %w", rel, err)
	}
	return nil
}

func (in *Interpreter) createFile(rel string) error {
	p, err := in.live(rel)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", rel, err)
	}
	return f.Close()
}

func (in *Interpreter) createDir(rel string) error {
	p, err := in.live(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", rel, err)
	}
	return nil
}

func (in *Interpreter) deleteFile(rel string) error {
	p, err := in.live(rel)
	if err != nil {
		return err
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return nil
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	return nil
}

func (in *Interpreter) deleteDir(rel string) error {
	p, err := in.live(rel)
	if err != nil {
		return err
	}
	if root, _ := filepath.Abs(in.Root); p == root {
		return fmt.Errorf("%w: refusing to delete the installation root", ErrArguments)
	}
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return nil
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	return nil
}
