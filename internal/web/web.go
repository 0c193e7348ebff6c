// Package web serves the SpottyG chat page.
//
// The page is a single embedded HTML document driving the JSON API in internal/server:
//
//  1. GET /api/me decides between the login button and the chat input
//  2. POST /api/chat streams the assistant reply
//  3. POST /api/playlist/build creates the playlist for the same message
//  4. The annotation arrives as an "annotation.ready" event on GET /api/events, or via POST /api/history
//     when the server does not annotate on its own
package web

import (
	"bytes"
	"embed"
	"math/rand/v2"
	"net/http"
	"time"
)

// WelcomeMessage opens every conversation.
const WelcomeMessage = "Welcome to SpottyG - your music historian assistant!"

// LoadingPhrases stand in for the annotation while it is being written.
var LoadingPhrases = []string{
	"Combing the archives...",
	"Dusting off the record sleeves...",
	"Consulting the liner notes...",
	"Tuning into forgotten frequencies...",
	"Rewinding through history...",
}

// LoadingPhrase picks one of [LoadingPhrases] at random.
func LoadingPhrase() string {
	return LoadingPhrases[rand.IntN(len(LoadingPhrases))]
}

//go:embed static/index.html
var static embed.FS

var started = time.Now()

// Handler serves the chat page.
func Handler() http.Handler {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, "index.html", started, bytes.NewReader(page))
	})
}
