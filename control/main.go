package main

import (
	"fmt"
	"os"
)

var (
	// Version is set at build time via ldflags
	// Example: go build -ldflags="-X main.Version=v1.2.3"
	Version = "dev"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitConfigError = 1
	ExitDependency  = 2
	ExitNetwork     = 3
	ExitFilesystem  = 4
	ExitPartial     = 5
	ExitInterrupted = 6
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return ExitConfigError
	}

	command, rest := args[0], args[1:]
	switch command {
	case "version", "--version", "-v":
		fmt.Printf("trackdl version %s\n", Version)
		return ExitSuccess
	case "help", "--help", "-h":
		printUsage()
		return ExitSuccess
	case "download":
		return downloadCommand(rest)
	case "list":
		return listCommand(rest)
	case "m3u":
		return m3uCommand(rest)
	case "playlist", "album", "all-albums":
		return catalogCommand(command, rest)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		return ExitConfigError
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `trackdl - download, transcode and tag tracks

USAGE:
    trackdl <command> [flags] <args>

COMMANDS:
    download <query|url|->...   Download single tracks ("-" reads queries from stdin)
    list <list-file>            Download every query in a list file
    m3u <list-file>             Write an M3U playlist for a list file
    playlist <url>              Write a playlist's tracks to a list file
    album <url>                 Write an album's tracks to a list file
    all-albums <url>            Write every album track of an artist to a list file
    version                     Show version information

Run "trackdl <command> --help" for the flags of a command.

EXIT CODES:
    0 success, 1 configuration error, 2 missing or unsupported ffmpeg,
    3 network error, 4 filesystem error, 5 some tracks failed, 6 interrupted

EXAMPLES:
    trackdl download "Daft Punk - One More Time"
    trackdl download -f m4a https://open.spotify.com/track/0DiWol3AO6WpXZgp0goxAV
    trackdl playlist https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M
    trackdl list --write-successful done.txt "Today's Top Hits.txt"
`)
}
