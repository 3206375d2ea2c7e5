package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKnownValue(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Hash(""))
}

func TestItemIDIsDeterministic(t *testing.T) {
	title := "AGCO Issues Monetary Penalty to Lottery Operator"
	url := "https://www.agco.ca/en/general/news/item-1"

	first := ItemID(title, url)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ItemID(title, url))
	}
	assert.Equal(t, Hash(title+url), first)
	assert.Len(t, first, 64)
}

func TestItemIDDiffersOnEitherField(t *testing.T) {
	base := ItemID("Title", "https://www.agco.ca/en/a")

	assert.NotEqual(t, base, ItemID("Title ", "https://www.agco.ca/en/a"))
	assert.NotEqual(t, base, ItemID("Title", "https://www.agco.ca/en/b"))
	assert.NotEqual(t, base, ItemID("title", "https://www.agco.ca/en/a"))
}
