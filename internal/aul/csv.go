package aul

import (
	"fmt"
	"os"

	"github.com/fastattackv/apy-launcher/internal/catalog"
)

const filterAll = "all"

// updateCSV edits fields of every catalog row whose kind matches the filter:
// path <filter> add <index|end> | delete <index|end> | modify <index|end> <value>.
// For add, end means append; for delete and modify it means the last field.
func (in *Interpreter) updateCSV(args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("%w: updatecsv needs a path, a filter, an operation and an index", ErrArguments)
	}
	rel, filter, op, at := args[0], args[1], args[2], args[3]

	switch {
	case op == "add" || op == "delete":
		if len(args) != 4 {
			return fmt.Errorf("%w: updatecsv %s takes an index only", ErrArguments, op)
		}
	case op == "modify":
		if len(args) != 5 {
			return fmt.Errorf("%w: updatecsv modify takes an index and a value", ErrArguments)
		}
	default:
		return fmt.Errorf("%w: unknown updatecsv operation %q", ErrArguments, op)
	}
	if _, ok := catalog.ParseKind(filter); !ok && filter != filterAll {
		return fmt.Errorf("%w: unknown kind filter %q", ErrArguments, filter)
	}
	if at != End {
		if _, err := parseIndex(at); err != nil {
			return err
		}
	}

	path, err := in.live(rel)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrMissing, rel)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", rel, err)
	}
	rows, err := catalog.ReadRows(data)
	if err != nil {
		return err
	}

	for n, row := range rows {
		if filter != filterAll && (len(row) < 2 || row[1] != filter) {
			continue
		}
		edited, err := editRow(row, op, at, args[4:])
		if err != nil {
			return fmt.Errorf("row %d: %w", n+1, err)
		}
		rows[n] = edited
	}

	out, err := catalog.WriteRows(rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

func editRow(row []string, op, at string, value []string) ([]string, error) {
	last := len(row) - 1
	if op == "add" {
		last = len(row)
	}

	i := last
	if at != End {
		i, _ = parseIndex(at)
	}
	if op == "add" && i > last {
		i = last
	}
	if i < 0 || i > last {
		return nil, fmt.Errorf("%w: field %d of %d", ErrIndex, i, len(row))
	}

	out := make([]string, 0, len(row)+1)
	switch op {
	case "add":
		out = append(append(append(out, row[:i]...), ""), row[i:]...)
	case "delete":
		out = append(append(out, row[:i]...), row[i+1:]...)
	case "modify":
		out = append(out, row...)
		out[i] = value[0]
	}
	return out, nil
}
