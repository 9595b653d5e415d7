package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes configures the maximum request body size (<= 0 restores 1 MiB).
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// streamTimeout bounds how long a /chat/stream request may run.
// Zero means no additional timeout beyond server/connection timeouts.
var streamTimeout = int64(0) // seconds

// SetStreamTimeoutSeconds sets the stream timeout in seconds (0 disables).
func SetStreamTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	streamTimeout = sec
}

func streamTimeoutDuration() time.Duration { return time.Duration(streamTimeout) * time.Second }

// retryAfterSeconds is sent with 429 and retryable 503 responses.
var retryAfterSeconds = 5

// SetRetryAfterSeconds sets the Retry-After hint (<= 0 omits the header).
func SetRetryAfterSeconds(sec int) { retryAfterSeconds = sec }

// CORS configuration. When disabled no CORS middleware is added.
var (
	corsEnabled        = true
	corsAllowedOrigins = []string{"http://localhost:3000"}
	corsAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	corsAllowedHeaders = []string{"Content-Type", "Authorization", "X-Log-Level"}
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
