// internal/app/system/limits/limits.go
package limits

// Request body size limits. These prevent memory exhaustion from
// oversized requests; the router enforces MaxJSONBody globally.
const (
	// MaxJSONBody is the maximum size for any JSON request body.
	MaxJSONBody = 1 << 20 // 1 MB
)
