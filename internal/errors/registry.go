package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Patch Errors (R001-R009)
	// ============================================

	"R001": {
		Category: CategoryPatch,
		Message:  "Invalid patch target",
		Detail:   "A patch addressed a node that does not exist or has the wrong kind. The live tree no longer matches the tree the patches were computed against.",
	},
	"R002": {
		Category: CategoryVerify,
		Message:  "Reconciled tree does not match the new tree",
		Detail:   "Applying the computed patches to the old tree did not reproduce the new tree. The differences are listed as a JSON Patch.",
	},
	"R003": {
		Category: CategoryPatch,
		Message:  "Malformed patch",
		Detail:   "A patch is missing its payload or has an unknown operation.",
	},

	// ============================================
	// Document Errors (R010-R019)
	// ============================================

	"R010": {
		Category: CategoryDocument,
		Message:  "Invalid tree document",
		Detail:   "The document is not valid YAML or JSON, or a field has the wrong type.",
	},
	"R011": {
		Category: CategoryDocument,
		Message:  "Unknown node shape",
		Detail:   "A node must be a mapping with exactly one of element, text, fragment or component, or a plain string for text.",
	},
	"R012": {
		Category: CategoryDocument,
		Message:  "Unsupported state value",
		Detail:   "Component state values must be strings, integers, floats or booleans.",
	},

	// ============================================
	// Config Errors (R020-R029)
	// ============================================

	"R020": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file has an invalid value.",
	},
	"R021": {
		Category: CategoryConfig,
		Message:  "Cannot read configuration",
		Detail:   "The configuration file exists but could not be read or parsed.",
	},

	// ============================================
	// Protocol Errors (R030-R039)
	// ============================================

	"R030": {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		Detail:   "The binary patch stream is truncated, exceeds a limit or contains an unknown tag.",
	},

	// ============================================
	// Registry Errors (R040-R049)
	// ============================================

	"R040": {
		Category: CategoryRegistry,
		Message:  "Handler not registered",
		Detail:   "An event was dispatched to a handler key that is not registered.",
	},
	"R041": {
		Category: CategoryRegistry,
		Message:  "Render function not registered",
		Detail:   "A component names a render key that is not registered.",
	},
	"R042": {
		Category: CategoryRegistry,
		Message:  "Component nesting too deep",
		Detail:   "Component expansion did not terminate. A component probably renders itself.",
	},

	// ============================================
	// CLI Errors (R050-R059)
	// ============================================

	"R050": {
		Category: CategoryCLI,
		Message:  "Cannot read file",
		Detail:   "The input file does not exist or is not readable.",
	},
	"R051": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
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
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
