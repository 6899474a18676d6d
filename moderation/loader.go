package moderation

import (
	"bufio"
	"bytes"
	"chat-rooms/errors"
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed censored/*.txt
var censoredFolder embed.FS

// CensoredData carries the loaded words and the languages they came from.
type CensoredData struct {
	Words     []string
	Languages []string
}

// CensoredLoader reads one word list per language ("fr.txt" -> "fr") from a file system.
type CensoredLoader struct {
	fs fs.FS
}

func NewCensoredLoader(f fs.FS) *CensoredLoader {
	return &CensoredLoader{fs: f}
}

// DefaultLoader serves the word lists compiled into the binary under "censored".
func DefaultLoader() *CensoredLoader {
	return NewCensoredLoader(censoredFolder)
}

// LoadAll parses every .txt file of dir into a sorted list of unique words.
func (l *CensoredLoader) LoadAll(dir string) (*CensoredData, error) {
	entries, err := fs.ReadDir(l.fs, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(l.fs, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		// Scanner handles both \n and \r\n line endings
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}
	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}
	slices.Sort(words)
	return &CensoredData{Words: words, Languages: languages}, nil
}
