package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// LyricsProvider looks up plain-text lyrics by artist and title.
type LyricsProvider interface {
	Name() string
	Lyrics(ctx context.Context, artist, title string, duration time.Duration) (string, error)
}

// errLyricsMissing marks a clean miss, as opposed to a transport failure.
var errLyricsMissing = errors.New("lyrics missing")

func getJSON(ctx context.Context, client *http.Client, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errLyricsMissing
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// LRCLib queries lrclib.net.
type LRCLib struct {
	BaseURL string
	Client  *http.Client
}

func (p *LRCLib) Name() string { return "lrclib" }

func (p *LRCLib) Lyrics(ctx context.Context, artist, title string, duration time.Duration) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://lrclib.net"
	}
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if duration > 0 {
		params.Set("duration", strconv.Itoa(int(duration.Round(time.Second).Seconds())))
	}
	body, err := getJSON(ctx, p.Client, base+"/api/get?"+params.Encode())
	if err != nil {
		return "", err
	}
	if gjson.GetBytes(body, "instrumental").Bool() {
		return "", errLyricsMissing
	}
	return gjson.GetBytes(body, "plainLyrics").String(), nil
}

// LyricsOVH queries api.lyrics.ovh.
type LyricsOVH struct {
	BaseURL string
	Client  *http.Client
}

func (p *LyricsOVH) Name() string { return "lyrics.ovh" }

func (p *LyricsOVH) Lyrics(ctx context.Context, artist, title string, _ time.Duration) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://api.lyrics.ovh"
	}
	endpoint := fmt.Sprintf("%s/v1/%s/%s", base, url.PathEscape(artist), url.PathEscape(title))
	body, err := getJSON(ctx, p.Client, endpoint)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "lyrics").String(), nil
}

// LyricsChain tries providers in order; the first non-empty result wins.
type LyricsChain []LyricsProvider

// DefaultLyricsChain returns LRCLIB followed by lyrics.ovh.
func DefaultLyricsChain(timeout time.Duration) LyricsChain {
	client := &http.Client{Timeout: timeout}
	return LyricsChain{
		&LRCLib{Client: client},
		&LyricsOVH{Client: client},
	}
}

// Fetch returns lyrics or a LyricsNotFoundError.
func (c LyricsChain) Fetch(ctx context.Context, artist, title string, duration time.Duration) (string, error) {
	for _, provider := range c {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := provider.Lyrics(ctx, artist, title, duration)
		if err != nil {
			if !errors.Is(err, errLyricsMissing) {
				log.Printf("WARN: lyrics_provider_failed provider=%s artist=%q title=%q error=%v", provider.Name(), artist, title, err)
			}
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			log.Printf("INFO: lyrics_found provider=%s artist=%q title=%q", provider.Name(), artist, title)
			return text, nil
		}
	}
	return "", &LyricsNotFoundError{Artist: artist, Title: title}
}

// PendingLyrics is a lyrics lookup running alongside the download.
type PendingLyrics struct {
	g    errgroup.Group
	text string
}

// StartLyrics launches the lookup for meta. A nil or empty chain resolves immediately to no lyrics.
func StartLyrics(ctx context.Context, chain LyricsChain, meta *TrackMetadata) *PendingLyrics {
	p := &PendingLyrics{}
	if len(chain) == 0 || meta == nil || meta.Title == "" {
		return p
	}
	artist, title, duration := meta.Artist(), meta.Title, meta.Duration
	p.g.Go(func() error {
		text, err := chain.Fetch(ctx, artist, title, duration)
		p.text = text
		return err
	})
	return p
}

// Wait blocks until the lookup finishes. A LyricsNotFoundError is returned
// alongside empty text and is not fatal to the caller.
func (p *PendingLyrics) Wait() (string, error) {
	if p == nil {
		return "", nil
	}
	err := p.g.Wait()
	return p.text, err
}
