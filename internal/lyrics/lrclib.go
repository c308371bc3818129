package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/config"
)

const userAgent = "lyricsync/1.0"

type LrclibResponse struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Text returns the synced lyrics when present, the plain ones otherwise.
func (r *LrclibResponse) Text() string {
	if r == nil {
		return ""
	}
	if r.SyncedLyrics != "" {
		return r.SyncedLyrics
	}
	return r.PlainLyrics
}

type TrackParams struct {
	Title        string
	Artist       string
	Album        string
	DurationSecs int64
}

// Client looks lyrics up on lrclib.net. responses are kept in an optional
// disk cache keyed by the original artist and title.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.DiskCache
	// delay between search strategies, zero in tests
	backoff time.Duration
}

func NewClient(baseURL string, diskCache *cache.DiskCache) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(config.HTTPTimeoutSeconds) * time.Second,
		},
		cache:   diskCache,
		backoff: 100 * time.Millisecond,
	}
}

type searchStrategy struct {
	artist   string
	title    string
	album    string
	duration int64
}

func (c *Client) Fetch(ctx context.Context, track *TrackParams) (*LrclibResponse, error) {
	if track == nil {
		return nil, errors.New("nil track info")
	}
	if track.Title == "" || track.Artist == "" {
		return nil, errors.New("track title or artist is empty")
	}
	if c.baseURL == "" {
		return nil, errors.New("lrclib base url is empty")
	}

	if c.cache != nil {
		cached, err := c.cache.Get(track.Artist, track.Title)
		if err == nil {
			return responseFromEntry(cached), nil
		}
	}

	parsedURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", c.baseURL, err)
	}

	strategies := buildStrategies(track)
	if len(strategies) == 0 {
		return nil, errors.New("track title or artist is empty after normalization")
	}

	var lastErr error
	for i, strategy := range strategies {
		query := parsedURL.Query()
		query.Set("artist_name", strategy.artist)
		query.Set("track_name", strategy.title)
		query.Del("album_name")
		query.Del("duration")
		if strategy.album != "" {
			query.Set("album_name", strategy.album)
		}
		if strategy.duration > 0 {
			query.Set("duration", fmt.Sprintf("%d", strategy.duration))
		}
		parsedURL.RawQuery = query.Encode()

		if i > 0 && c.backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff):
			}
		}

		payload, err := c.doRequest(ctx, parsedURL.String())
		if err != nil {
			lastErr = err
			if isTimeoutError(err) {
				return nil, errors.New("lyrics server took too long to respond")
			}
			continue
		}

		if payload.PlainLyrics == "" && payload.SyncedLyrics == "" && !payload.Instrumental {
			lastErr = errors.New("no lyrics in response")
			continue
		}

		if c.cache != nil {
			err = c.cache.Set(track.Artist, track.Title, entryFromResponse(payload))
			if err != nil {
				log.Warn().Err(err).Str("artist", track.Artist).Str("title", track.Title).Msg("failed to cache lrclib response")
			}
		}

		return payload, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no lyrics found for %s - %s: %w", track.Artist, track.Title, lastErr)
	}
	return nil, fmt.Errorf("no lyrics found for %s - %s", track.Artist, track.Title)
}

// buildStrategies lists the lookups to try, most specific first, without
// duplicates.
func buildStrategies(track *TrackParams) []searchStrategy {
	artist := normalizeString(track.Artist)
	title := normalizeString(track.Title)
	if artist == "" || title == "" {
		return nil
	}

	candidates := []searchStrategy{
		{artist, title, track.Album, track.DurationSecs},
		{artist, title, "", track.DurationSecs},
		{artist, title, "", 0},
		{stripVersionInfo(track.Artist), stripVersionInfo(track.Title), "", 0},
		{strings.ToUpper(artist), strings.ToUpper(title), "", 0},
		{strings.ToLower(artist), strings.ToLower(title), "", 0},
		{toTitleCase(artist), toTitleCase(title), "", 0},
		{track.Artist, track.Title, "", 0},
	}

	seen := make(map[string]bool)
	var result []searchStrategy
	for _, s := range candidates {
		if s.artist == "" || s.title == "" {
			continue
		}
		key := fmt.Sprintf("%s|%s|%s|%d", s.artist, s.title, s.album, s.duration)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, s)
	}
	return result
}

func (c *Client) doRequest(parentCtx context.Context, requestURL string) (*LrclibResponse, error) {
	timeout := time.Duration(config.HTTPTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.New("status 404: lyrics not found")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload LrclibResponse
	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode lrclib json: %w", err)
	}

	return &payload, nil
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func responseFromEntry(e *cache.LyricEntry) *LrclibResponse {
	return &LrclibResponse{
		TrackName:    e.TrackName,
		ArtistName:   e.ArtistName,
		AlbumName:    e.AlbumName,
		Duration:     e.Duration,
		Instrumental: e.Instrumental,
		PlainLyrics:  e.PlainLyrics,
		SyncedLyrics: e.SyncedLyrics,
	}
}

func entryFromResponse(r *LrclibResponse) *cache.LyricEntry {
	return &cache.LyricEntry{
		TrackName:    r.TrackName,
		ArtistName:   r.ArtistName,
		AlbumName:    r.AlbumName,
		Duration:     r.Duration,
		Instrumental: r.Instrumental,
		PlainLyrics:  r.PlainLyrics,
		SyncedLyrics: r.SyncedLyrics,
	}
}

// normalizeString trims and collapses repeated spaces
func normalizeString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripVersionInfo drops parenthesised and bracketed parts (remix, live, ...)
func stripVersionInfo(s string) string {
	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		for {
			start := strings.Index(s, pair[0])
			end := strings.Index(s, pair[1])
			if start < 0 || end <= start {
				break
			}
			s = s[:start] + " " + s[end+1:]
		}
	}
	return normalizeString(s)
}

func toTitleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		words[i] = strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:]))
	}
	return strings.Join(words, " ")
}
