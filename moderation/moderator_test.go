package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"badger", "snake", "mushroom"}, replacementChar)
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
		{"Clean text is untouched", "nothing to see here", "nothing to see here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, mod.Censor(tt.input))
		})
	}
}

func TestModerator_NoWords(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"", "  "}, replacementChar)
	req.NoError(err)
	req.Equal("badger", mod.Censor("badger"))

	var nilMod *Moderator
	req.Equal("badger", nilMod.Censor("badger"))
}
