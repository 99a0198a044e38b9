package match

import (
	"testing"

	"github.com/poiesic/lostfound/core"
	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"case folding", "Black WALLET", []string{"black", "wallet"}},
		{"punctuation splits", "leather,contains ID-card", []string{"leather", "contains", "id", "card"}},
		{"single characters dropped", "child, age 7", []string{"child", "age"}},
		{"stop words dropped", "found near the side door", []string{"near", "door"}},
		{"digits kept", "iPhone 15 in room 204", []string{"iphone", "15", "room", "204"}},
		{"underscore is a word character", "tag_42 x", []string{"tag_42"}},
		{"unicode letters", "Café crème brûlée", []string{"café", "crème", "brûlée"}},
		{"only stop words", "the a an of", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestTokenize_CustomStopWords(t *testing.T) {
	got := tokenize("found the blue bag", newStopSet("bag"))
	assert.Equal(t, []string{"found", "the", "blue"}, got)
}

func TestSurface(t *testing.T) {
	r := &core.Report{Title: "red umbrella"}
	assert.Equal(t, "red umbrella ", Surface(r))

	r.Description = "folding"
	assert.Equal(t, "red umbrella folding", Surface(r))
}

func TestEnglishStopWords(t *testing.T) {
	words := EnglishStopWords()
	assert.Len(t, words, 318)
	assert.True(t, words.Contains("found"))
	assert.True(t, words.Contains("name"))
	assert.False(t, words.Contains("wallet"))

	// copies are independent of the default set
	delete(words, "found")
	assert.True(t, englishStopWords.Contains("found"))
}
