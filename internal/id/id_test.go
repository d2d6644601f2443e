package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate(PrefixDeck)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixDeck, PrefixCard, PrefixUser, PrefixClient} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			require.True(t, strings.HasPrefix(id, prefix+"-"))
			nanoidPart := strings.TrimPrefix(id, prefix+"-")
			assert.Len(t, nanoidPart, 21)

			for _, char := range nanoidPart {
				assert.True(t,
					(char >= 'A' && char <= 'Z') ||
						(char >= 'a' && char <= 'z') ||
						(char >= '0' && char <= '9') ||
						char == '_' || char == '-',
					"Character %c should be URL-safe", char)
			}
		})
	}
}

func TestForCollection(t *testing.T) {
	tests := []struct {
		collection string
		want       string
	}{
		{"decks", PrefixDeck},
		{"decks/deck-1/cards", PrefixCard},
		{"users", PrefixUser},
		{"users/usr-1/history", PrefixDoc},
		{"", PrefixDoc},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			assert.Equal(t, tt.want, ForCollection(tt.collection))
		})
	}
}

func TestMustGenerate_Format(t *testing.T) {
	id := MustGenerate(PrefixCard)

	assert.True(t, strings.HasPrefix(id, "card-"))
	assert.Equal(t, len("card")+1+21, len(id))
}
