package coverage

import "github.com/BruksfildServices01/homeservices-coverage/internal/validators"

// SplitCodes normalises and dedupes raw input, returning the valid codes in
// sorted order and the rejected inputs as given.
func SplitCodes(raw []string) (valid []string, invalid []string) {
	for _, r := range raw {
		c, ok := validators.NormalizeZipcode(r)
		if !ok {
			invalid = append(invalid, r)
			continue
		}
		valid = append(valid, c)
	}
	return SortedUnique(valid), invalid
}
