package metadata

import (
	"github.com/zhaarey/go-mp4tag"
)

// MP4Writer tags M4A files through MPEG-4 atoms.
type MP4Writer struct{}

// Write replaces the file's iTunes atoms with meta.
func (MP4Writer) Write(path string, meta *TrackMetadata, cover *CoverArt) error {
	tags := &mp4tag.MP4Tags{
		Title:       meta.Title,
		Artist:      meta.JoinedArtists(", "),
		Album:       meta.Album,
		AlbumArtist: meta.AlbumArtist,
		CustomGenre: meta.Genre,
		Date:        meta.ReleaseDate,
		Copyright:   meta.Copyright,
		Publisher:   meta.Publisher,
		Lyrics:      meta.Lyrics,
		TrackNumber: int16(meta.TrackNumber),
		TrackTotal:  int16(meta.TrackTotal),
		DiscNumber:  int16(meta.DiscNumber),
		DiscTotal:   int16(meta.DiscTotal),
		Custom:      map[string]string{},
	}
	if meta.ISRC != "" {
		tags.Custom["ISRC"] = meta.ISRC
	}
	if meta.Explicit {
		tags.ItunesAdvisory = mp4tag.ItunesAdvisoryExplicit
	}
	if cover != nil && len(cover.Data) > 0 {
		tags.Pictures = []*mp4tag.MP4Picture{{Data: cover.Data}}
	}

	mp4, err := mp4tag.Open(path)
	if err != nil {
		return &MetadataError{Message: "Failed to open M4A file: " + path, Original: err}
	}
	defer mp4.Close()
	if err := mp4.Write(tags, []string{}); err != nil {
		return &MetadataError{Message: "Failed to save M4A metadata", Original: err}
	}
	return nil
}

// Title reads the ©nam atom.
func (MP4Writer) Title(path string) (string, error) {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return "", &MetadataError{Message: "Failed to open M4A file: " + path, Original: err}
	}
	defer mp4.Close()
	tags, err := mp4.Read()
	if err != nil {
		return "", &MetadataError{Message: "Failed to read M4A tags: " + path, Original: err}
	}
	return tags.Title, nil
}
