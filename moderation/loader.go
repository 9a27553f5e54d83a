package moderation

import (
	"bufio"
	"bytes"
	"dm-lab/errors"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed censored/*.txt
var embeddedLists embed.FS

// WordLists is the content of a directory of "<lang>.txt" files, one word per line.
type WordLists struct {
	Words     []string
	Languages []string
}

// LoadDefault reads the word lists shipped with the binary.
func LoadDefault() (WordLists, error) {
	return Load(embeddedLists, "censored")
}

// Load reads every .txt file of dir. Duplicates across languages are kept once.
func Load(fsys fs.FS, dir string) (WordLists, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return WordLists{}, err
	}

	var lists WordLists
	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		lists.Languages = append(lists.Languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return WordLists{}, err
		}
		// Scanner handles both \n and \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if word := strings.TrimSpace(scanner.Text()); word != "" {
				unique[word] = struct{}{}
			}
		}
		if err = scanner.Err(); err != nil {
			return WordLists{}, err
		}
	}

	if len(unique) == 0 {
		return WordLists{}, errors.ErrEmptyWords
	}
	for word := range unique {
		lists.Words = append(lists.Words, word)
	}
	sort.Strings(lists.Words)
	return lists, nil
}
