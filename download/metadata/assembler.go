package metadata

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sv4u/spotigo"
	"github.com/tidwall/gjson"

	"github.com/sv4u/trackdl/download/audio"
	"github.com/sv4u/trackdl/download/spotify"
)

// Catalog is the subset of the catalog client the assembler needs.
type Catalog interface {
	GetTrack(ctx context.Context, trackIDOrURL string) (*spotigo.Track, error)
	GetAlbum(ctx context.Context, albumIDOrURL string) (*spotigo.Album, error)
	GetArtist(ctx context.Context, artistIDOrURL string) (*spotigo.Artist, error)
	SearchTrack(ctx context.Context, query string) (*spotigo.Track, error)
}

// Assembler builds TrackMetadata from a catalog lookup and a selected stream.
type Assembler struct {
	catalog    Catalog
	noMetadata bool
}

// NewAssembler creates an assembler. catalog may be nil, in which case only
// stream-derived metadata is produced.
func NewAssembler(catalog Catalog, noMetadata bool) *Assembler {
	return &Assembler{catalog: catalog, noMetadata: noMetadata}
}

// Skeleton looks up catalog metadata for query.
// It returns nil without error when the track should be described from its stream alone.
func (a *Assembler) Skeleton(ctx context.Context, query string) (*TrackMetadata, error) {
	query = strings.TrimSpace(query)

	if spotify.IsSpotifyURL(query) {
		if a.catalog == nil {
			return nil, &MetadataNotFoundError{Query: query, Original: errors.New("no catalog client configured")}
		}
		track, err := a.catalog.GetTrack(ctx, query)
		if err != nil {
			if isTransient(err) {
				return nil, err
			}
			return nil, &MetadataNotFoundError{Query: query, Original: err}
		}
		if track == nil {
			return nil, &MetadataNotFoundError{Query: query}
		}
		return a.fromTrack(ctx, track), nil
	}

	if a.noMetadata || a.catalog == nil || audio.IsYouTubeURL(query) {
		return nil, nil
	}

	track, err := a.catalog.SearchTrack(ctx, query)
	if err != nil {
		if isTransient(err) {
			return nil, err
		}
		log.Printf("WARN: catalog_search_failed query=%q error=%v", query, err)
		return nil, nil
	}
	if track == nil {
		log.Printf("WARN: catalog_no_match query=%q fallback=stream", query)
		return nil, nil
	}
	return a.fromTrack(ctx, track), nil
}

// isTransient reports whether a catalog failure should be retried rather than treated as a miss.
func isTransient(err error) bool {
	var t interface{ Transient() bool }
	return errors.As(err, &t) && t.Transient()
}

// fromTrack converts a catalog track. The album and primary artist are fetched
// for fields the track payload lacks; failures there only leave fields empty.
func (a *Assembler) fromTrack(ctx context.Context, track *spotigo.Track) *TrackMetadata {
	meta := &TrackMetadata{
		Title:       track.Name,
		TrackNumber: track.TrackNumber,
		DiscNumber:  track.DiscNumber,
		Explicit:    track.Explicit,
		TrackID:     track.ID,
	}
	meta.Duration = millis(track.DurationMs)
	for _, artist := range track.Artists {
		meta.Artists = append(meta.Artists, artist.Name)
	}
	if track.ExternalURLs != nil {
		meta.CatalogURL = track.ExternalURLs.Spotify
	}
	if track.ExternalIDs != nil && track.ExternalIDs.ISRC != nil {
		meta.ISRC = *track.ExternalIDs.ISRC
	}

	var album *spotigo.Album
	if track.Album != nil && track.Album.ID != "" {
		fetched, err := a.catalog.GetAlbum(ctx, track.Album.ID)
		if err != nil {
			log.Printf("WARN: album_fetch_failed track_id=%s album_id=%s error=%v", track.ID, track.Album.ID, err)
		} else {
			album = fetched
		}
	}

	switch {
	case album != nil:
		meta.Album = album.Name
		if len(album.Artists) > 0 {
			meta.AlbumArtist = album.Artists[0].Name
		}
		meta.ReleaseDate = album.ReleaseDate
		meta.TrackTotal = album.TotalTracks
		if len(album.Images) > 0 {
			meta.CoverURL = album.Images[0].URL
		}
		meta.Genre, meta.Publisher, meta.Copyright = albumExtras(album)
		meta.DiscTotal = discTotal(album)
	case track.Album != nil:
		meta.Album = track.Album.Name
		if len(track.Album.Artists) > 0 {
			meta.AlbumArtist = track.Album.Artists[0].Name
		}
		meta.ReleaseDate = track.Album.ReleaseDate
		meta.TrackTotal = track.Album.TotalTracks
		if len(track.Album.Images) > 0 {
			meta.CoverURL = track.Album.Images[0].URL
		}
	}
	if meta.DiscTotal < meta.DiscNumber {
		meta.DiscTotal = meta.DiscNumber
	}

	if meta.Genre == "" && len(track.Artists) > 0 && track.Artists[0].ID != "" {
		artist, err := a.catalog.GetArtist(ctx, track.Artists[0].ID)
		if err != nil {
			log.Printf("WARN: artist_fetch_failed track_id=%s artist_id=%s error=%v", track.ID, track.Artists[0].ID, err)
		} else {
			meta.Genre = firstGenre(artist)
		}
	}

	log.Printf("INFO: metadata_assembled track_id=%s title=%q artist=%q album=%q", meta.TrackID, meta.Title, meta.Artist(), meta.Album)
	return meta
}

// albumExtras reads genre, label and copyright from the raw album payload.
func albumExtras(album *spotigo.Album) (genre, label, copyright string) {
	data, err := json.Marshal(album)
	if err != nil {
		return "", "", ""
	}
	return extrasFromJSON(data)
}

func extrasFromJSON(data []byte) (genre, label, copyright string) {
	genre = gjson.GetBytes(data, "genres.0").String()
	label = gjson.GetBytes(data, "label").String()
	copyright = gjson.GetBytes(data, "copyrights.0.text").String()
	return strings.TrimSpace(genre), strings.TrimSpace(label), strings.TrimSpace(copyright)
}

func firstGenre(artist *spotigo.Artist) string {
	data, err := json.Marshal(artist)
	if err != nil {
		return ""
	}
	return gjson.GetBytes(data, "genres.0").String()
}

// discTotal is the highest disc number on the album's first page of tracks.
func discTotal(album *spotigo.Album) int {
	if album.Tracks == nil {
		return 0
	}
	total := 0
	for _, t := range album.Tracks.Items {
		if t.DiscNumber > total {
			total = t.DiscNumber
		}
	}
	return total
}

// Assemble merges the catalog skeleton with the selected stream.
// With a nil skeleton the title and artist come from the stream.
func (a *Assembler) Assemble(skeleton *TrackMetadata, stream *audio.Stream) *TrackMetadata {
	var meta TrackMetadata
	if skeleton != nil {
		meta = *skeleton
		meta.Artists = append([]string(nil), skeleton.Artists...)
	} else {
		meta.Title, meta.Artists = splitStreamTitle(stream.Title, stream.Author)
		meta.TrackID = stream.ID
		if !a.noMetadata {
			meta.CoverURL = stream.ThumbnailURL
		}
	}

	meta.Encoding = stream.Encoding
	meta.SourceURL = stream.URL
	if meta.Duration == 0 {
		meta.Duration = stream.Duration
	}
	if a.noMetadata {
		meta.Lyrics = ""
		meta.CoverURL = ""
	}
	return &meta
}

// splitStreamTitle derives title and artist from a video title like "Artist - Title (Official Video)".
func splitStreamTitle(title, uploader string) (string, []string) {
	uploader = strings.TrimSuffix(strings.TrimSpace(uploader), " - Topic")
	if artist, song, ok := strings.Cut(title, " - "); ok && strings.TrimSpace(artist) != "" {
		return strings.TrimSpace(song), []string{strings.TrimSpace(artist)}
	}
	if uploader == "" {
		return strings.TrimSpace(title), nil
	}
	return strings.TrimSpace(title), []string{uploader}
}
