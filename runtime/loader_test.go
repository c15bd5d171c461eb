package runtime

import (
	"chatcode/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"words/en.txt":    {Data: []byte("Idiot\r\nstupid\n\n# comment\n")},
		"words/fr.txt":    {Data: []byte("idiot\ncrétin\n")},
		"words/README.md": {Data: []byte("not a list")},
	}

	data, err := NewCensoredLoader(fsys).LoadAll("words")

	req.NoError(err)
	req.Equal([]string{"crétin", "idiot", "stupid"}, data.Words)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
}

func TestCensoredLoader_Empty(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{"words/en.txt": {Data: []byte("\n  \n")}}

	_, err := NewCensoredLoader(fsys).LoadAll("words")

	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestCensoredLoader_Embedded(t *testing.T) {
	req := require.New(t)

	data, err := NewEmbeddedCensoredLoader().LoadAll(CensoredDir)

	req.NoError(err)
	req.Contains(data.Languages, "en")
	req.Contains(data.Words, "idiot")
}
