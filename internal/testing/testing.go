// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/shared"
)

// FakeCatalog is a test double for [services.Catalog].
//
// Search results are keyed by query; a query with no entry returns no tracks.
type FakeCatalog struct {
	mu sync.Mutex

	Tracks     map[string]services.CatalogTrack
	SearchErrs map[string]error
	Account    *services.Profile
	ProfileErr error
	CreateErr  error
	AddErr     error

	Calls       []string
	Credentials []string
	Created     []string
	Added       []string
}

// NewFakeCatalog returns a catalog whose profile is "user1".
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Tracks:     map[string]services.CatalogTrack{},
		SearchErrs: map[string]error{},
		Account:    &services.Profile{ID: "user1", DisplayName: "Listener", Email: "listener@example.com"},
	}
}

// WithTrack registers a search hit for the candidate's query.
func (f *FakeCatalog) WithTrack(c models.TrackCandidate, id string) *FakeCatalog {
	f.Tracks[c.Query()] = services.CatalogTrack{
		ID:      id,
		Name:    c.Title,
		Artists: []string{c.Artist},
		URI:     "spotify:track:" + id,
		URL:     "https://open.spotify.com/track/" + id,
	}
	return f
}

func (f *FakeCatalog) record(credential, call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
	f.Credentials = append(f.Credentials, credential)
}

// CallCount returns the number of catalog calls made.
func (f *FakeCatalog) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *FakeCatalog) SearchTracks(ctx context.Context, credential, query string, limit int) ([]services.CatalogTrack, error) {
	f.record(credential, "search:"+query)
	if err := f.SearchErrs[query]; err != nil {
		return nil, err
	}
	if t, ok := f.Tracks[query]; ok {
		return []services.CatalogTrack{t}, nil
	}
	return nil, nil
}

func (f *FakeCatalog) Profile(ctx context.Context, credential string) (*services.Profile, error) {
	f.record(credential, "profile")
	if f.ProfileErr != nil {
		return nil, f.ProfileErr
	}
	return f.Account, nil
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, credential, ownerID, name, description string) (*models.Playlist, error) {
	f.record(credential, "create:"+name)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.mu.Lock()
	f.Created = append(f.Created, name)
	id := fmt.Sprintf("pl%d", len(f.Created))
	f.mu.Unlock()

	return &models.Playlist{ID: id, Name: name, URL: "https://open.spotify.com/playlist/" + id}, nil
}

func (f *FakeCatalog) AddTracks(ctx context.Context, credential, playlistID string, ids []string) error {
	f.record(credential, "add:"+playlistID)
	if f.AddErr != nil {
		return f.AddErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Added = append(f.Added, ids...)
	return nil
}

// FakeCompleter is a test double for [services.Completer].
//
// ReplyFunc, when set, takes precedence over Reply and Err.
type FakeCompleter struct {
	mu sync.Mutex

	Reply       string
	Err         error
	ReplyFunc   func(req services.CompletionRequest) (string, error)
	Delay       time.Duration
	StreamParts []string

	Requests []services.CompletionRequest
}

// CallCount returns the number of completion requests made.
func (f *FakeCompleter) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

func (f *FakeCompleter) Complete(ctx context.Context, req services.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
		case <-time.After(f.Delay):
		}
	}

	if f.ReplyFunc != nil {
		return f.ReplyFunc(req)
	}
	return f.Reply, f.Err
}

func (f *FakeCompleter) Stream(ctx context.Context, req services.CompletionRequest) (services.TokenStream, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	return &fakeStream{parts: append([]string(nil), f.StreamParts...)}, nil
}

type fakeStream struct {
	parts []string
}

func (s *fakeStream) Recv() (string, error) {
	if len(s.parts) == 0 {
		return "", io.EOF
	}
	part := s.parts[0]
	s.parts = s.parts[1:]
	return part, nil
}

func (s *fakeStream) Close() error { return nil }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
