// Package services implements the external capabilities used by the playlist pipeline.
//
// # Catalog
//
// [SpotifyCatalog] implements [Catalog] on top of the Spotify Web API client. It is safe for concurrent
// use: each call builds a client authenticated with the caller's bearer credential through a static
// [oauth2.TokenSource], so one instance serves every signed-in user.
//
// [SpotifyAuth] wraps the authorization code flow used by the web login and the CLI.
//
// # Completions
//
// [OpenAICompleter] implements [Completer] with the OpenAI chat completions API, in both blocking and
// streaming form.
//
// # Error Handling
//
// Adapters translate provider errors into sentinels from the shared package:
//   - [shared.ErrTokenExpired] : the catalog rejected the credential (HTTP 401)
//   - [shared.ErrServiceUnavailable] : transport failures and any other non-success response
//   - [shared.ErrTimeout] : the context deadline passed before the provider answered
//   - [shared.ErrEmptyResponse] : a completion came back with no text
//
// No adapter retries. A failed call is reported once and the caller decides what to do.
package services
