package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// InboxDefaultLimit is the number of sync runs returned when the
	// caller does not pass ?limit=.
	InboxDefaultLimit int `env:"HTTP_INBOX_DEFAULT_LIMIT" envDefault:"50"`

	// InboxMaxLimit caps the ?limit= parameter.
	InboxMaxLimit int `env:"HTTP_INBOX_MAX_LIMIT" envDefault:"200"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.InboxDefaultLimit < 1 {
		h.InboxDefaultLimit = 50
	}
	if h.InboxMaxLimit < h.InboxDefaultLimit {
		h.InboxMaxLimit = h.InboxDefaultLimit
	}
}
