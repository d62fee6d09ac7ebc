// Package catalogue defines the external playlist-provider contract
// (§6) the orchestrator resolves a playlist reference and track list
// through, and a stub driver wired to golang.org/x/oauth2's client-
// credentials flow the way the teacher never did but the pack's OAuth
// example conventions (magda-api's provider registrations) suggest.
package catalogue

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TrackMeta is the subset of catalogue metadata a Track's (a) partition
// needs (§3).
type TrackMeta struct {
	CatalogueID string
	Title       string
	Artist      string
	Album       string
	Duration    float64
	Popularity  int
	PreviewURL  string
}

// Provider resolves a playlist reference to a catalogue id and fetches its
// track list (§4.6 step 2).
type Provider interface {
	ResolvePlaylist(ctx context.Context, ref string) (catalogueID, name string, err error)
	ListPlaylistTracks(ctx context.Context, catalogueID string) ([]TrackMeta, error)
}

// Config holds the OAuth2 client-credentials parameters for a catalogue
// provider (client id/secret/token URL), mirroring §4's config section.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// oauthClient builds a client-credentials oauth2.Config, the flow the
// server side of a catalogue integration uses (no end-user redirect).
func (c Config) oauthClient(ctx context.Context) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
	}
}

// HTTPProvider is a Provider backed by an OAuth2 client-credentials-
// authenticated HTTP API. The actual endpoint shapes are catalogue-specific
// and left to ResolvePlaylistFunc/ListTracksFunc so a concrete catalogue
// (Spotify-like, or a private library) can be plugged in without touching
// the orchestrator.
type HTTPProvider struct {
	httpClient        *oauthTokenClient
	ResolvePlaylistFn func(ctx context.Context, client *oauthTokenClient, ref string) (string, string, error)
	ListTracksFn      func(ctx context.Context, client *oauthTokenClient, catalogueID string) ([]TrackMeta, error)
}

type oauthTokenClient struct {
	cfg Config
}

// Token fetches an access token for the configured catalogue API. Each call
// performs a new client-credentials exchange; no token is cached between
// calls.
func (c *oauthTokenClient) Token(ctx context.Context) (*oauth2.Token, error) {
	return c.cfg.oauthClient(ctx).Token(ctx)
}

// NewHTTPProvider wires a catalogue-specific resolve/list pair to a shared
// OAuth2 client-credentials token source.
func NewHTTPProvider(cfg Config, resolve func(context.Context, *oauthTokenClient, string) (string, string, error), list func(context.Context, *oauthTokenClient, string) ([]TrackMeta, error)) *HTTPProvider {
	return &HTTPProvider{
		httpClient:        &oauthTokenClient{cfg: cfg},
		ResolvePlaylistFn: resolve,
		ListTracksFn:      list,
	}
}

func (p *HTTPProvider) ResolvePlaylist(ctx context.Context, ref string) (string, string, error) {
	if p.ResolvePlaylistFn == nil {
		return "", "", fmt.Errorf("catalogue: no resolve function configured")
	}
	return p.ResolvePlaylistFn(ctx, p.httpClient, ref)
}

func (p *HTTPProvider) ListPlaylistTracks(ctx context.Context, catalogueID string) ([]TrackMeta, error) {
	if p.ListTracksFn == nil {
		return nil, fmt.Errorf("catalogue: no list function configured")
	}
	return p.ListTracksFn(ctx, p.httpClient, catalogueID)
}
