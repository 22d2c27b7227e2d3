package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/treestore/internal/errors"
	"github.com/vango-dev/treestore/pkg/lens"
)

func getCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <document> [path]",
		Short: "Print the value at a path",
		Long: `Print the value at a path of a JSON or YAML document.

Examples:
  treestore get state.json john.age
  treestore get state.yaml 'john.house[0]' -o yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := ""
			if len(args) == 2 {
				expr = args[1]
			}
			return runGet(cmd, args[0], expr, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")

	return cmd
}

func runGet(cmd *cobra.Command, file, expr, output string) error {
	path, err := lens.ParsePath(expr)
	if err != nil {
		return errors.FromError(err, "T001").WithPath(expr)
	}
	doc, err := loadDocument(file)
	if err != nil {
		return err
	}
	v, err := path.Get(doc)
	if err != nil {
		return errors.FromError(err, "T002").WithPath(expr)
	}
	return printValue(cmd, v, output)
}

func printValue(cmd *cobra.Command, v any, output string) error {
	f := formatJSON
	switch output {
	case "json", "":
	case "yaml", "yml":
		f = formatYAML
	default:
		return errors.Newf(errors.CategoryInput, "unknown output format %q", output).
			WithSuggestion("Use -o json or -o yaml")
	}
	data, err := encodeDocument(v, f)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
