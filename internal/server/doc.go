// Package server provides the HTTP API, middleware, and OAuth handling for the web and CLI front-ends.
//
// # Router
//
// [Server.Handler] builds a chi router with request IDs, panic recovery, request logging and metrics. Every
// request passes through the credential middleware, which moves the Spotify access token from the
// spotify_access_token cookie (or an Authorization bearer header) into the request context where
// [tasks.ContextCredentials] finds it.
//
// # Playlist Building
//
// POST /api/playlist/build runs the generation pipeline synchronously and answers as soon as the playlist
// exists. The annotation is written afterwards in a goroutine detached from the request and delivered to
// the owner's /api/events stream as an "annotation.ready" event.
//
// # Status Mapping
//
// Invalid input maps to 400, a missing or rejected credential to 401 and any upstream failure to 500. The
// annotation endpoint reports upstream failures as 502 and timeouts as 504.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves the one-shot callback used by `spottyg spotify auth`: a temporary HTTP server on the
// redirect URI's port receives the code, exchanges it and hands the token back through a channel.
package server
