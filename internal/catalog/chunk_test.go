package catalog

import (
	"math/rand"
	"testing"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(ns ...int) []domain.Code {
	out := make([]domain.Code, len(ns))
	for i, n := range ns {
		out[i] = domain.CodeFromInt(n)
	}
	return out
}

func flatten(chunks []Chunk) []domain.Code {
	var out []domain.Code
	for _, c := range chunks {
		out = append(out, c.Codes...)
	}
	return out
}

func TestSplit_GroupsWithinWindow(t *testing.T) {
	chunks := Split(codes(100, 200, 950, 3000), 900)

	require.Len(t, chunks, 2)
	assert.Equal(t, codes(100, 200, 950), chunks[0].Codes)
	assert.Equal(t, codes(3000), chunks[1].Codes)
}

func TestSplit_Degenerate(t *testing.T) {
	assert.Empty(t, Split(nil, 900))
	assert.Empty(t, Split([]domain.Code{}, 900))

	single := Split(codes(42), 900)
	require.Len(t, single, 1)
	assert.Equal(t, codes(42), single[0].Codes)
}

func TestSplit_TrailingSingleton(t *testing.T) {
	chunks := Split(codes(1, 2, 3, 5000), 10)
	require.Len(t, chunks, 2)
	assert.Equal(t, codes(5000), chunks[1].Codes)
}

func TestSplit_BoundaryIsInclusive(t *testing.T) {
	chunks := Split(codes(0, 900, 901), 900)
	require.Len(t, chunks, 2)
	assert.Equal(t, codes(0, 900), chunks[0].Codes)
	assert.Equal(t, codes(901), chunks[1].Codes)
}

func TestSplit_CollapsesDuplicates(t *testing.T) {
	chunks := Split(codes(10, 10, 20, 20, 20, 2000, 2000), 900)
	require.Len(t, chunks, 2)
	assert.Equal(t, codes(10, 20), chunks[0].Codes)
	assert.Equal(t, codes(2000), chunks[1].Codes)
}

func TestSplit_SkipsInvalidCodes(t *testing.T) {
	in := []domain.Code{domain.CodeFromInt(5), domain.Code("abc"), domain.CodeFromInt(6)}
	chunks := Split(in, 900)
	require.Len(t, chunks, 1)
	assert.Equal(t, codes(5, 6), chunks[0].Codes)
}

func TestSplit_CoverageAndWindowProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	windows := []int{0, 1, 50, 900, 5000}

	for iter := 0; iter < 300; iter++ {
		n := rng.Intn(200)
		set := make(domain.CodeSet)
		for i := 0; i < n; i++ {
			set.Add(domain.CodeFromInt(rng.Intn(99999)))
		}
		in := set.Sorted()
		window := windows[iter%len(windows)]

		chunks := Split(in, window)

		if len(in) == 0 {
			assert.Empty(t, chunks)
			continue
		}
		assert.Equal(t, in, flatten(chunks), "union of chunks must equal input")
		for _, c := range chunks {
			require.NotEmpty(t, c.Codes)
			assert.LessOrEqual(t, c.Span(), window, "chunk %s exceeds window %d", c, window)
		}
		for i := 1; i < len(chunks); i++ {
			// greedy: the next chunk's first code could not have joined the previous chunk
			assert.Greater(t, chunks[i].First().Int()-chunks[i-1].First().Int(), window)
		}
	}
}

func TestChunk_Contains(t *testing.T) {
	c := Chunk{Codes: codes(100, 200, 950)}
	assert.True(t, c.Contains(domain.CodeFromInt(200)))
	assert.False(t, c.Contains(domain.CodeFromInt(201)))
	assert.False(t, c.Contains(domain.CodeFromInt(3000)))
}

func TestChunk_QueryParam(t *testing.T) {
	small := Chunk{Codes: codes(100, 200, 950)}
	assert.Equal(t, "00100,00200,00950", small.QueryParam())

	large := Chunk{Codes: codes(1, 2, 3, 4, 5, 6, 7, 8, 9)}
	assert.Equal(t, "00001-00009", large.QueryParam())
}
