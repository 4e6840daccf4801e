package ports

// ConfigStore is the read side of the project configuration document plus the email mapping table.
// Implementations MUST pick up external modifications of their backing document without a restart.
type ConfigStore interface {
	// Get returns a scalar value and whether it was present.
	Get(key string) (string, bool)

	// GetOr returns the value for key, or def when absent or blank.
	GetOr(key, def string) string

	// MapEmail returns the mapped corporate address, or email unchanged when there is no mapping.
	MapEmail(email string) string
}

// CredentialStore persists directory credentials on behalf of the cache.
type CredentialStore interface {
	SetDirectoryCredentials(token, baseURL string) error
}
