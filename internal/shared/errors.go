package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed        = fmt.Errorf("authentication failed")
	ErrNotAuthenticated  = fmt.Errorf("not authenticated")
	ErrCredentialMissing = fmt.Errorf("not authenticated with Spotify")
	ErrTokenExpired      = fmt.Errorf("access token expired")
	ErrStateMismatch     = fmt.Errorf("oauth state mismatch")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest            = fmt.Errorf("API request failed")
	ErrServiceUnavailable    = fmt.Errorf("service unavailable")
	ErrEmptyResponse         = fmt.Errorf("empty response")
	ErrMaterializationFailed = fmt.Errorf("playlist materialization failed")
	ErrPlaylistNotFound      = fmt.Errorf("playlist not found")
	ErrUserNotFound          = fmt.Errorf("user not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
