package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountWords(t *testing.T) {
	cases := map[string]int{
		"":                          0,
		"   ":                       0,
		"one":                       1,
		"  leading and trailing  ":  3,
		"tabs\tand\nnewlines  here": 4,
		"punctuation, counts! too.": 3,
	}
	for in, want := range cases {
		assert.Equal(t, want, CountWords(in), "input %q", in)
	}
}

func TestNewChapterWordCountRoundTrip(t *testing.T) {
	content := "It was a dark\n\nand stormy   night."
	ch := NewChapter("book-1", 2, "Storm", content)

	assert.NotEmpty(t, ch.ID)
	assert.Equal(t, 2, ch.OrderIndex)
	assert.Equal(t, 7, ch.WordCount)
	assert.Equal(t, CountWords(ch.Content), ch.WordCount)
	assert.True(t, ch.IsFree)
}
