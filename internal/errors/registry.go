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
	// Config Errors (E120-E149)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "transit.json could not be read or parsed.",
		DocURL:   "https://transit.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   "https://transit.dev/docs/errors/E121",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		DocURL:   "https://transit.dev/docs/errors/E141",
	},

	// ============================================
	// Route Errors (E200-E219)
	// ============================================

	"E201": {
		Category: CategoryRoutes,
		Message:  "Unsupported route source",
		Detail:   "The routes directory contains a compiled source kind that cannot be turned into a route.",
		DocURL:   "https://transit.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryRoutes,
		Message:  "Duplicate route",
		Detail:   "Two route files resolve to the same URL.",
		DocURL:   "https://transit.dev/docs/errors/E202",
	},
	"E203": {
		Category: CategoryRoutes,
		Message:  "Catch-all segment must be last",
		DocURL:   "https://transit.dev/docs/errors/E203",
	},
	"E204": {
		Category: CategoryRoutes,
		Message:  "Route projection collision",
		Detail:   "Two routes project to the same native route pattern.",
		DocURL:   "https://transit.dev/docs/errors/E204",
	},
	"E205": {
		Category: CategoryRoutes,
		Message:  "Invalid route segment",
		DocURL:   "https://transit.dev/docs/errors/E205",
	},
	"E206": {
		Category: CategoryRoutes,
		Message:  "Route module not registered",
		Detail:   "A scanned route file has no module in the registry.",
		DocURL:   "https://transit.dev/docs/errors/E206",
	},

	// ============================================
	// Protocol Errors (E300-E319)
	// ============================================

	"E301": {
		Category: CategoryProtocol,
		Message:  "Malformed transition target",
		Detail:   "The transition endpoint requires a same-origin \"to\" parameter starting with \"/\".",
		DocURL:   "https://transit.dev/docs/errors/E301",
	},
	"E302": {
		Category: CategoryProtocol,
		Message:  "Malformed transition stream",
		DocURL:   "https://transit.dev/docs/errors/E302",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
