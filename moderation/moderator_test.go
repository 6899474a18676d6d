package moderation

import (
	"chat-rooms/errors"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// Spaces and punctuation are dropped before matching, so the dictionary avoids
// words that could be assembled across neighbouring words of the inputs below.
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"idiot", "moron", "jerk"}, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Insult at the end of a message",
			input:    "you are an idiot",
			expected: "you are an *****",
			words:    []string{"idiot"},
		},
		{
			name:     "Repeated insult keeps the spacing",
			input:    "jerk jerk jerk",
			expected: "**** **** ****",
			words:    []string{"jerk", "jerk", "jerk"},
		},
		{
			name: "Leet speak split by dots",
			// m (index 7) . 0 . r . 0 . n (index 15)
			input:    "such a m.0.r.0.n today",
			expected: "such a ********* today",
			words:    []string{"moron"},
		},
		{
			name:     "Uppercase spelled out with separators",
			input:    "I-D-I-O-T and J.E.R.K",
			expected: "********* and *******",
			words:    []string{"idiot", "jerk"},
		},
		{
			name:     "Accented neighbours are untouched",
			input:    "Un été avec un idiot",
			expected: "Un été avec un *****",
			words:    []string{"idiot"},
		},
		{
			name:     "Trailing exclamation mark is kept",
			input:    "Stop it, moron!",
			expected: "Stop it, *****!",
			words:    []string{"moron"},
		},
		{
			name:     "Nothing to censor",
			input:    "Chat-Rooms is amazing",
			expected: "Chat-Rooms is amazing",
			words:    nil,
		},
		{
			name:     "Empty message",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
		})
	}
}

func TestModerator_Noise_Only_Words_Are_Skipped(t *testing.T) {
	req := require.New(t)

	// Given a word list polluted with entries made only of punctuation
	mod, err := NewModerator([]string{"...", ",,,", "", "idiot"}, replacementChar, logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	// Then real words are still censored
	content, words := mod.Censor("The idiot is gone")
	req.Equal("The ***** is gone", content)
	req.Equal([]string{"idiot"}, words)

	// And punctuation in messages is left alone
	content, words = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)
}

func TestModerator_Review_Detects_Language(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"idiot"}, replacementChar, logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	verdict := mod.Review("Je trouve que ce salon de discussion est vraiment très agréable, idiot")

	req.Equal("Je trouve que ce salon de discussion est vraiment très agréable, *****", verdict.Content)
	req.Equal([]string{"idiot"}, verdict.CensoredWords)
	req.Equal("fr", verdict.Lang)
}

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"lists/en.txt":    {Data: []byte("badger\r\nsnake\n\n  mushroom  \n")},
		"lists/fr.txt":    {Data: []byte("blaireau\nbadger\n")},
		"lists/README.md": {Data: []byte("ignored")},
		"lists/nested/x":  {Data: []byte("ignored")},
		"empty/blank.txt": {Data: []byte("\n\n")},
	}
	loader := NewCensoredLoader(files)

	data, err := loader.LoadAll("lists")
	req.NoError(err)
	req.Equal([]string{"badger", "blaireau", "mushroom", "snake"}, data.Words)
	req.Equal([]string{"en", "fr"}, data.Languages)

	_, err = loader.LoadAll("empty")
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestDefaultLoader_Embeds_Word_Lists(t *testing.T) {
	req := require.New(t)

	data, err := DefaultLoader().LoadAll("censored")

	req.NoError(err)
	req.NotEmpty(data.Words)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
}
