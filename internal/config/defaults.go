package config

// Keys of the project configuration document.
const (
	KeyYouTrackToken = "youtrackToken"
	KeyYouTrackURL   = "youtrackUrl"
	KeyHiBobToken    = "hibobToken"
	KeyHiBobURL      = "hibobApiUrl"
	KeyEmailMappings = "emailMappings"
	KeyHiBobFields   = "hibobFields"
	KeyHiBobFilter   = "hibobFilter"
)

const (
	DefaultFileName    = ".env.json"
	DefaultYouTrackURL = "https://youtrack.example.com/api"
	DefaultHiBobURL    = "https://api.hibob.com/v1"

	PlaceholderYouTrackToken = "YOUR_YOUTRACK_TOKEN"
	PlaceholderHiBobToken    = "YOUR_HIBOB_TOKEN"
)

// IsPlaceholder reports whether a token is blank or still the template value written on first run.
func IsPlaceholder(token string) bool {
	switch token {
	case "", PlaceholderYouTrackToken, PlaceholderHiBobToken:
		return true
	}
	return false
}

// defaultDocument is written when no configuration file exists yet, so the user gets a template to edit.
func defaultDocument() map[string]any {
	return map[string]any{
		KeyYouTrackToken: PlaceholderYouTrackToken,
		KeyYouTrackURL:   DefaultYouTrackURL,
		KeyHiBobToken:    PlaceholderHiBobToken,
		KeyHiBobURL:      DefaultHiBobURL,
		KeyEmailMappings: map[string]any{
			"john.doe@gmail.com":   "john.doe@company.com",
			"jane.smith@gmail.com": "jane.smith@company.com",
		},
	}
}
