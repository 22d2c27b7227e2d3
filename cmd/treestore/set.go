package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/treestore/internal/errors"
	"github.com/vango-dev/treestore/pkg/lens"
	"github.com/vango-dev/treestore/pkg/store"
)

// assignment is one path=value argument.
type assignment struct {
	expr   string
	path   lens.Lens
	value  any
	before any
}

// parseAssignment parses path=value. The value is JSON when it parses as
// JSON and a plain string otherwise.
func parseAssignment(arg string) (*assignment, error) {
	expr, raw, ok := strings.Cut(arg, "=")
	if !ok {
		return nil, errors.New("T022").
			WithDetail(fmt.Sprintf("%q is not a path=value assignment", arg)).
			WithSuggestion(`Write assignments as john.age=43 or 'john.name="John"'`)
	}
	path, err := lens.ParsePath(expr)
	if err != nil {
		return nil, errors.FromError(err, "T001").WithPath(expr)
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}
	return &assignment{expr: expr, path: path, value: v}, nil
}

func setCmd() *cobra.Command {
	var (
		write  bool
		output string
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "set <document> <path=value>...",
		Short: "Apply assignments to a document",
		Long: `Apply one or more path=value assignments to a document.

All assignments are committed first and subscribers are notified once, so
each changed path is reported a single time with its old and new value.
Values are parsed as JSON, falling back to a plain string.

Examples:
  treestore set state.json john.age=43
  treestore set state.yaml 'john.house[0].color="red"' john.pets=[] --write`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, args[0], args[1:], write, output, quiet)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the document")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format when not writing: json or yaml")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not report changed paths")

	return cmd
}

func runSet(cmd *cobra.Command, file string, args []string, write bool, output string, quiet bool) error {
	assigns := make([]*assignment, 0, len(args))
	for _, arg := range args {
		a, err := parseAssignment(arg)
		if err != nil {
			return err
		}
		assigns = append(assigns, a)
	}

	doc, err := loadDocument(file)
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	st := store.NewManual(doc)

	// One reporting subscription per assignment; each fires once on Sync.
	changed := 0
	for _, a := range assigns {
		a := a
		st.Watch(func(n store.Node, first bool) store.Result {
			v := store.Descend(n, a.path).Value()
			if first {
				a.before = v
				return store.Continue()
			}
			changed++
			if !quiet {
				info(out, "%s: %s → %s", a.path, render(a.before), render(v))
			}
			return store.Unsubscribe()
		}, store.NoCache())
	}

	for _, a := range assigns {
		if err := store.Descend(st.UpdateRef(), a.path).Set(a.value); err != nil {
			return errors.FromError(err, "T022").WithPath(a.expr)
		}
	}
	if err := st.Sync(); err != nil {
		return errors.FromError(err, "T010")
	}

	if !write {
		return printValue(cmd, st.Snapshot(), output)
	}
	if err := writeDocument(file, st.Snapshot()); err != nil {
		return err
	}
	if !quiet {
		success(out, "%s updated (%d changed)", file, changed)
	}
	return nil
}

func render(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
