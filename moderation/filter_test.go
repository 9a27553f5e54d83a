package moderation

import (
	"dm-lab/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestFilter_Censor(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"badger", "snake", "mushroom"}, '*')
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple word and space preservation", "The badger is here", "The ****** is here"},
		{"Multiple occurrences", "badger badger", "****** ******"},
		{"Leet speak and internal punctuation", "Look at B.4.d.g.€r !", "Look at ********** !"},
		{"Uppercase and noise", "S-N-A-K-E is a B.A.D.G.E.R", "********* is a ***********"},
		{"Accents are preserved", "Un été avec un badger", "Un été avec un ******"},
		{"Clean text is untouched", "hello there", "hello there"},
		{"Only noise", "?!...", "?!..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, filter.Censor(tt.input))
		})
	}
}

func TestLoad_Merges_Languages_And_Deduplicates(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"words/en.txt":       {Data: []byte("idiot\r\nmoron\n\n")},
		"words/fr.txt":       {Data: []byte("abruti\nidiot\n")},
		"words/README.md":    {Data: []byte("ignored")},
		"words/nested/x.txt": {Data: []byte("skipped")},
	}

	lists, err := Load(fsys, "words")
	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, lists.Languages)
	req.Equal([]string{"abruti", "idiot", "moron"}, lists.Words)
}

func TestLoad_Empty_Directory(t *testing.T) {
	fsys := fstest.MapFS{"words/en.txt": {Data: []byte("\n  \n")}}
	_, err := Load(fsys, "words")
	require.ErrorIs(t, err, errors.ErrEmptyWords)
}

func TestLoadDefault(t *testing.T) {
	req := require.New(t)
	lists, err := LoadDefault()
	req.NoError(err)
	req.NotEmpty(lists.Words)
	req.Contains(lists.Languages, "en")
}
