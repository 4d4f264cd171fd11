package catalog

import (
	"sort"
	"strings"

	"github.com/ignite/seatwatch/internal/domain"
)

// DefaultSafeWindow is the widest code range WebSoc answers in one query.
// It is a protocol limit: a chunk wider than this may be truncated upstream.
const DefaultSafeWindow = 900

// maxListedCodes is the largest chunk queried as an explicit code list
// instead of a range.
const maxListedCodes = 8

// Chunk is a non-empty, ascending run of catalog codes whose numeric span
// does not exceed the window it was built with.
type Chunk struct {
	Codes []domain.Code
}

// First returns the lowest code in the chunk.
func (c Chunk) First() domain.Code { return c.Codes[0] }

// Last returns the highest code in the chunk.
func (c Chunk) Last() domain.Code { return c.Codes[len(c.Codes)-1] }

// Span is last - first.
func (c Chunk) Span() int { return c.Last().Int() - c.First().Int() }

// Len returns the number of codes.
func (c Chunk) Len() int { return len(c.Codes) }

// Contains reports whether code is a member of the chunk.
func (c Chunk) Contains(code domain.Code) bool {
	n := code.Int()
	i := sort.Search(len(c.Codes), func(i int) bool { return c.Codes[i].Int() >= n })
	return i < len(c.Codes) && c.Codes[i] == code
}

// QueryParam renders the chunk as a WebSoc CourseCodes value: an explicit
// comma list for small chunks, otherwise an inclusive "first-last" range.
func (c Chunk) QueryParam() string {
	if len(c.Codes) <= maxListedCodes {
		parts := make([]string, len(c.Codes))
		for i, code := range c.Codes {
			parts[i] = code.String()
		}
		return strings.Join(parts, ",")
	}
	return c.First().String() + "-" + c.Last().String()
}

func (c Chunk) String() string { return "[" + c.First().String() + "-" + c.Last().String() + "]" }

// Split partitions ascending codes into chunks no wider than window.
//
// The scan is greedy: a chunk stays open while code - chunkStart <= window
// and is emitted when the next code would exceed it. The chunk still open
// after the scan is always emitted. Adjacent duplicates collapse and codes
// without a numeric value are skipped.
func Split(codes []domain.Code, window int) []Chunk {
	if window < 0 {
		window = 0
	}

	var chunks []Chunk
	var current []domain.Code
	start := 0

	for _, code := range codes {
		n := code.Int()
		if n < 0 {
			continue
		}
		switch {
		case current == nil:
			current = []domain.Code{code}
			start = n
		case code == current[len(current)-1]:
			// duplicate
		case n-start <= window:
			current = append(current, code)
		default:
			chunks = append(chunks, Chunk{Codes: current})
			current = []domain.Code{code}
			start = n
		}
	}

	if current != nil {
		chunks = append(chunks, Chunk{Codes: current})
	}
	return chunks
}
