package credentials

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Space-weather words for kid-friendly display names
var adjectives = []string{
	"cosmic", "solar", "stellar", "lunar", "radiant", "glowing", "swift", "brave",
	"bright", "dazzling", "electric", "magnetic", "orbiting", "shining", "sparkly", "zippy",
	"blazing", "curious", "daring", "fearless", "galactic", "gleaming", "jolly", "mighty",
	"nimble", "plasma", "quantum", "rocketing", "sunny", "twinkling", "vivid", "whirling",
}

var nouns = []string{
	"comet", "aurora", "nebula", "meteor", "flare", "photon", "quasar", "pulsar",
	"rocket", "satellite", "astronaut", "explorer", "stargazer", "sunspot", "corona", "eclipse",
	"galaxy", "orbit", "planet", "moonbeam", "starlight", "spark", "voyager", "ranger",
	"magnet", "prism", "rover", "skywatcher", "solarwind", "supernova", "telescope", "zenith",
}

// GenerateDisplayName returns a random name in the format "adjective-noun"
func GenerateDisplayName() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	return adjective + "-" + noun, nil
}

// IsGeneratedName reports whether name has the shape GenerateDisplayName produces
func IsGeneratedName(name string) bool {
	adjective, noun, ok := strings.Cut(name, "-")
	if !ok {
		return false
	}
	return contains(adjectives, adjective) && contains(nouns, noun)
}

func contains(words []string, word string) bool {
	for _, w := range words {
		if w == word {
			return true
		}
	}
	return false
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
