// Package migrations embeds the ordered SQL schema files.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var Files embed.FS

// Migration is one embedded SQL file.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// List returns the embedded migrations ordered by file name. File names start
// with a zero padded version followed by an underscore.
func List() ([]Migration, error) {
	entries, err := fs.Glob(Files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)
	out := make([]Migration, 0, len(entries))
	for _, name := range entries {
		raw, err := fs.ReadFile(Files, name)
		if err != nil {
			return nil, err
		}
		version, _, _ := strings.Cut(name, "_")
		out = append(out, Migration{Version: version, Name: name, SQL: string(raw)})
	}
	return out, nil
}
