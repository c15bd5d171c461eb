package runtime

import (
	"bufio"
	"bytes"
	"chatcode/errors"
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed censored/*.txt
var censoredFS embed.FS

// CensoredDir is the directory of the built-in word lists, one file per language.
const CensoredDir = "censored"

// CensoredData is the merged content of every word list found.
type CensoredData struct {
	Words     []string
	Languages []string
}

// CensoredLoader reads forbidden word lists, one word per line.
type CensoredLoader struct {
	fs fs.FS
}

func NewCensoredLoader(fsys fs.FS) *CensoredLoader {
	return &CensoredLoader{fs: fsys}
}

// NewEmbeddedCensoredLoader reads the word lists shipped with the binary.
func NewEmbeddedCensoredLoader() *CensoredLoader {
	return NewCensoredLoader(censoredFS)
}

// LoadAll merges every .txt file of dir. Words are trimmed, lower cased and
// de-duplicated. Lines starting with # are comments.
func (l *CensoredLoader) LoadAll(dir string) (CensoredData, error) {
	entries, err := fs.ReadDir(l.fs, dir)
	if err != nil {
		return CensoredData{}, err
	}

	var languages []string
	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(l.fs, path.Join(dir, entry.Name()))
		if err != nil {
			return CensoredData{}, err
		}
		// bufio handles \r\n endings
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			unique[line] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return CensoredData{}, err
		}
	}
	if len(unique) == 0 {
		return CensoredData{}, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	slices.Sort(words)
	return CensoredData{Words: words, Languages: languages}, nil
}
