package config

// AuthConfig holds the shared secret that gates mutating endpoints.
// Requests present it in the X-Dispatcher-Secret header or the
// "secret" query parameter; comparison is constant time.
type AuthConfig struct {
	// DispatcherSecret must be set when the HTTP service runs.
	// Startup aborts without it; there is no unauthenticated fallback.
	DispatcherSecret string `env:"DISPATCHER_SECRET"`
}
