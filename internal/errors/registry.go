package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	Status     int
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Path and mutation errors (T001-T019)
	// ============================================

	"T001": {
		Category:   CategoryPath,
		Message:    "Malformed path",
		Detail:     "Paths are dot-separated keys with bracketed indexes, e.g. john.house[0].color.",
		Suggestion: `Quote keys containing dots or brackets: a["dotted.key"]`,
		Status:     400,
	},
	"T002": {
		Category:   CategoryPath,
		Message:    "Path does not resolve",
		Detail:     "An intermediate value on the path is missing or null, so the path cannot be read or written.",
		Suggestion: "Write the missing parent object first, then the child.",
		Status:     404,
	},
	"T003": {
		Category: CategoryPath,
		Message:  "Value is not a container",
		Detail:   "A key or index was applied to a value that cannot hold it, such as an index on an object or a key on a string.",
		Status:   400,
	},
	"T004": {
		Category: CategoryMutation,
		Message:  "Value type does not fit",
		Detail:   "The written value cannot be stored in the typed container at this path.",
		Status:   400,
	},
	"T005": {
		Category:   CategoryMutation,
		Message:    "Write to read-only node",
		Detail:     "Combined watches and non-editable nodes of manual-sync stores reject writes.",
		Suggestion: "Write through a constituent node or the store's update reference.",
		Status:     409,
	},
	"T006": {
		Category:   CategoryMutation,
		Message:    "Write to non-terminal property",
		Detail:     "All writes go through the terminal handle of the node at the target path.",
		Suggestion: "Navigate to the child node and call Set on it.",
		Status:     400,
	},
	"T010": {
		Category:   CategoryNotify,
		Message:    "Notifications did not settle",
		Detail:     "Subscribers kept writing to the store during notification.",
		Suggestion: "Check callbacks that write to paths they also read.",
		Status:     500,
	},

	// ============================================
	// Configuration and input errors (T020-T039)
	// ============================================

	"T020": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Detail:     "treestore.json could not be parsed or failed validation.",
		Suggestion: "Run with --config pointing at a valid file, or remove it to use defaults.",
		Status:     500,
	},
	"T021": {
		Category:   CategoryInput,
		Message:    "Invalid document",
		Detail:     "The document could not be decoded as JSON or YAML.",
		Status:     400,
	},
	"T022": {
		Category: CategoryInput,
		Message:  "Invalid value",
		Detail:   "The request body must be a single JSON value.",
		Status:   400,
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
