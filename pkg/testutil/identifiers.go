package testutil

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

var firstNames = []string{
	"john", "maria", "david", "sarah", "michael", "emma", "james", "olivia",
	"robert", "sophia", "william", "isabella", "daniel", "mia", "thomas",
	"charlotte", "joseph", "amelia", "henry", "harper", "oliver", "evelyn",
	"lucas", "abigail", "ethan", "emily", "mason", "elizabeth", "logan",
	"sofia", "alexander", "avery", "benjamin", "ella", "elijah", "scarlett",
	"samuel", "grace", "andrew", "chloe", "anna", "laura", "peter", "helen",
	"mark", "linda", "paul", "susan", "steven", "karen",
}

var lastNames = []string{
	"smith", "johnson", "williams", "brown", "jones", "garcia", "miller",
	"davis", "rodriguez", "martinez", "hernandez", "lopez", "gonzalez",
	"wilson", "anderson", "taylor", "moore", "jackson", "martin", "lee",
	"perez", "thompson", "white", "harris", "sanchez", "clark", "ramirez",
	"lewis", "robinson", "walker", "young", "allen", "king", "wright",
	"scott", "torres", "nguyen", "hill", "flores", "green", "adams",
	"nelson", "baker", "hall", "rivera", "campbell", "mitchell", "carter",
	"roberts", "turner",
}

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// LegitLocalParts returns n name-shaped local parts such as "john.smith",
// "jsmith" or "maria_lopez87". The same seed always yields the same slice.
func LegitLocalParts(n int, seed uint64) []string {
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))
	out := make([]string, n)
	for i := range out {
		first := firstNames[rng.IntN(len(firstNames))]
		last := lastNames[rng.IntN(len(lastNames))]
		switch rng.IntN(6) {
		case 0:
			out[i] = first + "." + last
		case 1:
			out[i] = first + last
		case 2:
			out[i] = first[:1] + "." + last
		case 3:
			out[i] = first + "_" + last
		case 4:
			out[i] = fmt.Sprintf("%s.%s%d", first, last, 70+rng.IntN(30))
		default:
			out[i] = first + last[:1]
		}
	}
	return out
}

// FraudLocalParts returns n random [a-z0-9] strings of length 8 to 12, the
// shape of generated throwaway accounts.
func FraudLocalParts(n int, seed uint64) []string {
	rng := rand.New(rand.NewPCG(seed, seed^0xf4a0d))
	out := make([]string, n)
	for i := range out {
		var b strings.Builder
		size := 8 + rng.IntN(5)
		for range size {
			b.WriteByte(randomAlphabet[rng.IntN(len(randomAlphabet))])
		}
		out[i] = b.String()
	}
	return out
}

// Repeat returns n copies of s.
func Repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
