package metadata

import (
	"github.com/bogem/id3v2/v2"
)

// ID3Writer tags MP3 files.
type ID3Writer struct{}

func openID3(path string) (*id3v2.Tag, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		// Unparseable tag: start from an empty one.
		tag, err = id3v2.Open(path, id3v2.Options{Parse: false})
		if err != nil {
			return nil, &MetadataError{Message: "Failed to open MP3 file: " + path, Original: err}
		}
	}
	return tag, nil
}

func setText(tag *id3v2.Tag, id, value string) {
	tag.DeleteFrames(id)
	if value != "" {
		tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
	}
}

// Write replaces the file's ID3 frames with meta.
func (ID3Writer) Write(path string, meta *TrackMetadata, cover *CoverArt) error {
	tag, err := openID3(path)
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetVersion(4)

	setText(tag, "TIT2", meta.Title)
	setText(tag, "TPE1", meta.JoinedArtists("/"))
	setText(tag, "TPE2", meta.AlbumArtist)
	setText(tag, "TALB", meta.Album)
	setText(tag, "TRCK", numberPair(meta.TrackNumber, meta.TrackTotal))
	setText(tag, "TPOS", numberPair(meta.DiscNumber, meta.DiscTotal))
	setText(tag, "TDRC", meta.ReleaseDate)
	setText(tag, "TYER", meta.Year())
	setText(tag, "TCON", meta.Genre)
	setText(tag, "TPUB", meta.Publisher)
	setText(tag, "TCOP", meta.Copyright)
	setText(tag, "TSRC", meta.ISRC)

	tag.DeleteFrames("USLT")
	tag.DeleteFrames("COMM")
	if meta.Lyrics != "" {
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "eng",
			ContentDescriptor: "",
			Lyrics:            meta.Lyrics,
		})
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "lyrics",
			Text:        meta.Lyrics,
		})
	}

	if cover != nil && len(cover.Data) > 0 {
		tag.DeleteFrames("APIC")
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    cover.MimeType,
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     cover.Data,
		})
	}

	if err := tag.Save(); err != nil {
		return &MetadataError{Message: "Failed to save MP3 metadata", Original: err}
	}
	return nil
}

// Title reads the TIT2 frame.
func (ID3Writer) Title(path string) (string, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Title"}})
	if err != nil {
		return "", &MetadataError{Message: "Failed to read MP3 tags: " + path, Original: err}
	}
	defer tag.Close()
	return tag.Title(), nil
}
