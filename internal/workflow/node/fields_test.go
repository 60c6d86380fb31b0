package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldReaders(t *testing.T) {
	m := ExtractJSON(`{
		"title": "  Dawn  ",
		"empty": "   ",
		"paragraphs": ["First.", "", "Second."],
		"characters": ["Ana", {"name": "Ben"}, 3, "", null],
		"one": "Solo",
		"cliff_true": true,
		"cliff_str": "true",
		"cliff_yes": "yes",
		"cliff_upper": "TRUE",
		"cliff_title": "True",
		"cliff_num": 1,
		"n": 4,
		"n_str": " 7 ",
		"n_frac": 2.5,
		"objs": [{"a": 1}, "skip", {"b": 2}]
	}`)

	s, ok := String(m, "title")
	assert.True(t, ok)
	assert.Equal(t, "Dawn", s)

	_, ok = String(m, "empty")
	assert.False(t, ok)
	assert.Equal(t, "fallback", StringOr(m, "missing", "fallback"))
	assert.Equal(t, "First.\n\nSecond.", StringOr(m, "paragraphs", ""))

	assert.Equal(t, []string{"Ana", "Ben", "3"}, StringSlice(m, "characters"))
	assert.Equal(t, []string{"Solo"}, StringSlice(m, "one"))
	assert.Equal(t, []string{}, StringSlice(m, "missing"))

	assert.True(t, Bool(m, "cliff_true"))
	assert.True(t, Bool(m, "cliff_str"))
	assert.False(t, Bool(m, "cliff_yes"))
	assert.False(t, Bool(m, "cliff_upper"))
	assert.False(t, Bool(m, "cliff_title"))
	assert.False(t, Bool(m, "cliff_num"))
	assert.False(t, Bool(m, "missing"))

	n, ok := Int(m, "n")
	assert.True(t, ok)
	assert.Equal(t, 4, n)
	n, ok = Int(m, "n_str")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = Int(m, "n_frac")
	assert.False(t, ok)

	assert.Len(t, Objects(m, "objs"), 2)
	assert.Nil(t, Objects(m, "title"))
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "ab", TruncateByRunes("abc", 2))
	assert.Equal(t, "你好", TruncateByRunes("你好世界", 2))
	assert.Equal(t, "", TruncateByRunes("abc", 0))

	assert.Equal(t, "a; b", JoinOr([]string{"a", " ", "b"}, "; ", "none"))
	assert.Equal(t, "none", JoinOr(nil, "; ", "none"))
	assert.Equal(t, "- a\n- b", BulletList([]string{"a", "b"}, "(none)"))
}
