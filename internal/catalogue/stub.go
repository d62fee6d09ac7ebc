package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// StubConfig carries the base URL of a generic REST catalogue API, on top
// of the OAuth2 client-credentials parameters in Config.
type StubConfig struct {
	Config
	BaseURL string
}

// NewStubDriver wires an HTTPProvider against a generic REST shape:
//
//	GET {baseURL}/playlists/{ref}        -> {"id": "...", "name": "..."}
//	GET {baseURL}/playlists/{id}/tracks  -> [{"id": "...", "title": "...", ...}]
//
// bearer-authenticated with the token the oauth2 client-credentials source
// produces. It exists so the orchestrator has a concrete Provider to run
// against in development/integration tests without any particular
// catalogue vendor's SDK; swapping it for a real one means only supplying
// different resolve/list functions to NewHTTPProvider, never touching C6.
func NewStubDriver(cfg StubConfig, httpClient *http.Client) *HTTPProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	resolve := func(ctx context.Context, tok *oauthTokenClient, ref string) (string, string, error) {
		var out struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := stubGetJSON(ctx, httpClient, tok, fmt.Sprintf("%s/playlists/%s", cfg.BaseURL, url.PathEscape(ref)), &out); err != nil {
			return "", "", err
		}
		return out.ID, out.Name, nil
	}

	list := func(ctx context.Context, tok *oauthTokenClient, catalogueID string) ([]TrackMeta, error) {
		var out []struct {
			ID         string  `json:"id"`
			Title      string  `json:"title"`
			Artist     string  `json:"artist"`
			Album      string  `json:"album"`
			Duration   float64 `json:"duration_seconds"`
			Popularity int     `json:"popularity"`
			PreviewURL string  `json:"preview_url"`
		}
		if err := stubGetJSON(ctx, httpClient, tok, fmt.Sprintf("%s/playlists/%s/tracks", cfg.BaseURL, url.PathEscape(catalogueID)), &out); err != nil {
			return nil, err
		}
		tracks := make([]TrackMeta, 0, len(out))
		for _, t := range out {
			tracks = append(tracks, TrackMeta{
				CatalogueID: t.ID,
				Title:       t.Title,
				Artist:      t.Artist,
				Album:       t.Album,
				Duration:    t.Duration,
				Popularity:  t.Popularity,
				PreviewURL:  t.PreviewURL,
			})
		}
		return tracks, nil
	}

	return NewHTTPProvider(cfg.Config, resolve, list)
}

func stubGetJSON(ctx context.Context, client *http.Client, tok *oauthTokenClient, reqURL string, out any) error {
	token, err := tok.Token(ctx)
	if err != nil {
		return fmt.Errorf("catalogue: token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("catalogue: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("catalogue: GET %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalogue: GET %s: HTTP %d", reqURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalogue: decode %s: %w", reqURL, err)
	}
	return nil
}
