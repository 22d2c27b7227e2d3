// Package errors provides structured, actionable error messages for the
// treestore command and HTTP surfaces.
//
// Engine errors are plain sentinel errors (see pkg/store and pkg/lens).
// FromError maps them to a coded Error carrying a category, an explanation
// and a suggestion, so the CLI and server report them consistently.
//
// # Error Codes
//
//   - T001-T019: path and mutation errors
//   - T020-T039: configuration and input errors
//
// # Usage
//
//	if err := node.Set(v); err != nil {
//	    errors.PrintError(errors.FromError(err, "T001").WithPath("john.age"))
//	}
package errors
