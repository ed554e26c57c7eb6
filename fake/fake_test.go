package fake

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordsAndSentences(t *testing.T) {
	var r = rand.New(rand.NewPCG(1, 2))

	for n := 0; n != 8; n++ {
		assert.Len(t, strings.Fields(Words(r, n)), n)
	}
	assert.Equal(t, "", Sentence(r, 0))

	var s = Sentence(r, 3)
	assert.Len(t, strings.Fields(s), 3)
	assert.True(t, strings.HasSuffix(s, "."))
	assert.Equal(t, strings.ToUpper(s[:1]), s[:1])
}

func TestFormattedStrings(t *testing.T) {
	var r = rand.New(rand.NewPCG(3, 4))

	var id, err = uuid.Parse(UUID(r))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())

	assert.Regexp(t, `^[A-Z][a-z]+ [A-Z][a-z]+$`, Name(r))
	assert.Regexp(t, `^[a-z]+\.[a-z]+\d+@example\.(com|net|org)$`, Email(r))
	assert.Regexp(t, regexp.MustCompile(`^\+1-\d{3}-555-01\d{2}$`), Phone(r))
	assert.Regexp(t, `^[0-9a-f]{16}$`, Hex(r, 8))
	assert.Len(t, Bytes(r, 13), 13)
}

func TestDeterministicForSeed(t *testing.T) {
	var a, b = rand.New(rand.NewPCG(9, 9)), rand.New(rand.NewPCG(9, 9))

	assert.Equal(t, UUID(a), UUID(b))
	assert.Equal(t, Words(a, 5), Words(b, 5))
	assert.Equal(t, Bytes(a, 21), Bytes(b, 21))
}
