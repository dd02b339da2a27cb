package transcode

import (
	"strings"
)

// codec holds the codec arguments and muxer name for one target encoding.
type codec struct {
	args  []string
	muxer string
}

var codecs = map[string]codec{
	"mp3":  {args: []string{"-codec:a", "libmp3lame"}, muxer: "mp3"},
	"flac": {args: []string{"-codec:a", "flac"}, muxer: "flac"},
	"ogg":  {args: []string{"-codec:a", "libvorbis", "-q:a", "5"}, muxer: "ogg"},
	"opus": {args: []string{"-codec:a", "libopus"}, muxer: "opus"},
	"m4a":  {args: []string{"-codec:a", "aac", "-vn"}, muxer: "ipod"},
}

// SupportedEncodings returns the target encodings in the codec table.
func SupportedEncodings() []string {
	return []string{"mp3", "flac", "ogg", "opus", "m4a"}
}

// IsSupported reports whether encoding is a known target encoding.
func IsSupported(encoding string) bool {
	_, ok := codecs[strings.ToLower(encoding)]
	return ok
}

// CodecArgs returns the codec arguments for a target encoding.
func CodecArgs(encoding string) ([]string, error) {
	c, ok := codecs[strings.ToLower(encoding)]
	if !ok {
		return nil, &UnsupportedEncodingError{Encoding: encoding}
	}
	out := make([]string, len(c.args))
	copy(out, c.args)
	return out, nil
}

// EncodeArgs builds the argument list (without the binary) for converting input to output.
// The layout is: -v quiet -i <input> <codec-args> -abr true -q:a 0 [-af <filter>] -f <muxer> <output>.
func EncodeArgs(input, output, encoding string, trimSilence bool) ([]string, error) {
	c, ok := codecs[strings.ToLower(encoding)]
	if !ok {
		return nil, &UnsupportedEncodingError{Encoding: encoding}
	}

	args := []string{"-v", "quiet", "-i", input}
	args = append(args, c.args...)
	args = append(args, "-abr", "true", "-q:a", "0")
	if trimSilence {
		args = append(args, "-af", "silenceremove=start_periods=1")
	}
	if output == "-" {
		output = "pipe:1"
	}
	args = append(args, "-f", c.muxer, output)
	return args, nil
}
