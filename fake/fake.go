// Package fake produces plausible-looking strings and byte sequences from a
// caller-owned random source. All functions are deterministic with respect to
// the provided *rand.Rand.
package fake

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Words returns |n| space-separated words drawn from the lexicon.
func Words(r *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(lexicon[r.IntN(len(lexicon))])
	}
	return b.String()
}

// Sentence returns |n| words with a capitalized first letter and a
// terminating period.
func Sentence(r *rand.Rand, n int) string {
	var s = Words(r, n)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

// UUID returns a random (version 4) UUID string read from |r|.
func UUID(r *rand.Rand) string {
	var id, err = uuid.NewRandomFromReader(Reader(r))
	if err != nil {
		panic(err) // Reader never fails.
	}
	return id.String()
}

// Name returns a "First Last" personal name.
func Name(r *rand.Rand) string {
	return firstNames[r.IntN(len(firstNames))] + " " + lastNames[r.IntN(len(lastNames))]
}

// Email returns an address under a reserved example domain.
func Email(r *rand.Rand) string {
	return fmt.Sprintf("%s.%s%d@%s",
		strings.ToLower(firstNames[r.IntN(len(firstNames))]),
		strings.ToLower(lastNames[r.IntN(len(lastNames))]),
		r.IntN(100),
		domains[r.IntN(len(domains))])
}

// Phone returns a phone number in the reserved 555-01XX range.
func Phone(r *rand.Rand) string {
	return fmt.Sprintf("+1-%03d-555-01%02d", 200+r.IntN(800), r.IntN(100))
}

// Hex returns |n| random bytes encoded as lowercase hex.
func Hex(r *rand.Rand, n int) string {
	return hex.EncodeToString(Bytes(r, n))
}

// Bytes returns |n| random bytes.
func Bytes(r *rand.Rand, n int) []byte {
	var b = make([]byte, n)
	_, _ = Reader(r).Read(b)
	return b
}

// Reader adapts |r| into an io.Reader of random bytes.
func Reader(r *rand.Rand) io.Reader { return randReader{r: r} }

type randReader struct{ r *rand.Rand }

func (rr randReader) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], rr.r.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}

var (
	lexicon = strings.Fields(`
		able acid aged airy alpha amber ample apex arch atlas autumn azure
		badge basin beacon berry birch bison blade bloom bolt brave breeze brick
		brisk bronze brook cabin canal candle canyon cargo cedar chalk charm
		cider citrus clay cliff cloud clover cobalt comet copper coral cosmic
		cotton crane crisp crystal dawn delta desert dune eager echo ember
		engine falcon fern field flint forest fossil frost garden gentle glacier
		granite gravel harbor hazel heron hollow honey horizon indigo iron ivory
		jade jasper jolly kettle kiwi lagoon lantern lava lemon linen lunar maple
		marble meadow mellow mint misty nectar noble nova oasis ocean olive
		onyx orbit orchid pebble pepper pine pixel plaza polar prairie prism
		quartz quiet radar rapid raven reef ridge river robin rocket rustic
		saffron sage salt sand satin shadow silver slate solar spark spruce
		stone storm summit swift tango thunder timber topaz tulip tundra
		umber valley velvet violet vivid walnut willow winter zephyr zinc
	`)
	firstNames = strings.Fields(`
		Ada Alan Barbara Claude Dennis Donald Edsger Frances Grace Hedy Ivan
		Jean John Ken Leslie Linus Margaret Niklaus Radia Rob Shafi Sophie
		Tim Tony Vint Whitfield Yukihiro
	`)
	lastNames = strings.Fields(`
		Allen Backus Cerf Dijkstra Hamilton Hopper Kay Knuth Lamport Liskov
		Lovelace Minsky Perlman Pike Ritchie Shannon Sutherland Thompson
		Torvalds Turing Wirth
	`)
	domains = []string{"example.com", "example.net", "example.org"}
)
