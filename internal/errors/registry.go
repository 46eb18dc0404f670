package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Runtime Errors (R001-R099)
	// ============================================

	"R001": {
		Category:   CategoryRuntime,
		Message:    "Computation unit failed",
		Suggestion: "The unit was skipped for this flush; other units still ran.",
	},
	"R002": {
		Category:   CategoryReconcile,
		Message:    "Reconciliation mismatch",
		Suggestion: "Give list children stable keys so moved nodes can be matched.",
	},
	"R003": {
		Category:   CategoryRuntime,
		Message:    "Update loop limit exceeded",
		Suggestion: "A unit writes to state it also reads. Move the write out of the unit or guard it.",
	},
	"R004": {
		Category: CategoryRuntime,
		Message:  "Next-tick callback failed",
	},
	"R005": {
		Category:   CategoryRuntime,
		Message:    "Event loop closed",
		Suggestion: "Submit work before calling Close.",
	},

	// ============================================
	// Template Errors (T001-T099)
	// ============================================

	"T001": {
		Category: CategoryTemplate,
		Message:  "Template parse error",
	},
	"T002": {
		Category:   CategoryTemplate,
		Message:    "Invalid directive",
		Suggestion: `Use v-for="item in items" or v-for="(item, index) in items".`,
	},
	"T003": {
		Category:   CategoryTemplate,
		Message:    "Invalid expression",
		Suggestion: "Expressions are dotted property paths such as user.name or items.length.",
	},

	// ============================================
	// Config Errors (C001-C099)
	// ============================================

	"C001": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create ripple.json, ripple.yaml or ripple.toml in the working directory.",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Configuration parse error",
	},
	"C003": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// ============================================
	// Storage Errors (S001-S099)
	// ============================================

	"S001": {
		Category: CategoryStorage,
		Message:  "Snapshot backend failure",
	},
	"S002": {
		Category: CategoryStorage,
		Message:  "Snapshot not found",
	},

	// ============================================
	// Transport Errors (L001-L099)
	// ============================================

	"L001": {
		Category: CategoryTransport,
		Message:  "WebSocket upgrade failed",
	},
	"L002": {
		Category:   CategoryTransport,
		Message:    "Invalid client frame",
		Suggestion: "Clients may only send Control frames (ping, pong, resync request).",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template Template) {
	registry[code] = template
}
