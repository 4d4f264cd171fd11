package catalog

import "github.com/ignite/seatwatch/internal/domain"

// Select returns the chunks containing at least one subscribed code, in
// their original order. Ranges are never rebuilt from the subscribed codes.
func Select(chunks []Chunk, subscribed domain.CodeSet) []Chunk {
	if len(subscribed) == 0 {
		return nil
	}

	var selected []Chunk
	for _, chunk := range chunks {
		for _, code := range chunk.Codes {
			if subscribed.Has(code) {
				selected = append(selected, chunk)
				break
			}
		}
	}
	return selected
}

// Uncovered returns the subscribed codes that fall in no chunk. These are
// sections missing from the catalog snapshot; they cannot be fetched until
// the snapshot is refreshed.
func Uncovered(chunks []Chunk, subscribed domain.CodeSet) []domain.Code {
	seen := make(domain.CodeSet, len(subscribed))
	for _, chunk := range chunks {
		for _, code := range chunk.Codes {
			if subscribed.Has(code) {
				seen.Add(code)
			}
		}
	}
	var missing []domain.Code
	for _, code := range subscribed.Sorted() {
		if !seen.Has(code) {
			missing = append(missing, code)
		}
	}
	return missing
}
