package domain

import "regexp"

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// CollectionName derives the collection slug for a corpus source by removing
// every non-word character. "https://www.csusb.edu/its" becomes
// "httpswwwcsusbeduits". The mapping must stay stable: existing collections
// are found by it.
func CollectionName(source string) string {
	return nonWord.ReplaceAllString(source, "")
}
