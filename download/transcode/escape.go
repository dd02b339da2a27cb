package transcode

import "strings"

const unixSpecial = " \t\n$`\"'\\!&|;<>()*?[]{}~#"

// EscapePath quotes a path so the shell of the given platform passes it through unchanged.
func EscapePath(goos, path string) string {
	if goos == "windows" {
		// cmd.exe keeps carets inside double quotes, so a quoted path is left as is.
		if strings.ContainsAny(path, " \t") {
			return `"` + path + `"`
		}
		var b strings.Builder
		for _, r := range path {
			switch r {
			case '^', '&', '|', '<', '>', '(', ')':
				b.WriteRune('^')
			}
			b.WriteRune(r)
		}
		return b.String()
	}

	if path == "" {
		return "''"
	}
	if !strings.ContainsAny(path, unixSpecial) {
		return path
	}
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// commandLine renders argv as one shell line for the given platform.
func commandLine(goos string, argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = EscapePath(goos, a)
	}
	return strings.Join(parts, " ")
}
