package rag

import (
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func reconstruct(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		b.WriteString(string([]rune(c)[overlap:]))
	}
	return b.String()
}

func TestNewSplitter(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "window default", kind: "", size: 1000, overlap: 100},
		{name: "window", kind: SplitterWindow, size: 10, overlap: 0},
		{name: "recursive", kind: SplitterRecursive, size: 1000, overlap: 100},
		{name: "overlap equals size", kind: SplitterWindow, size: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds size", kind: SplitterWindow, size: 100, overlap: 200, wantErr: true},
		{name: "negative overlap", kind: SplitterWindow, size: 100, overlap: -1, wantErr: true},
		{name: "zero size", kind: SplitterWindow, size: 0, overlap: 0, wantErr: true},
		{name: "unknown kind", kind: "semantic", size: 100, overlap: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSplitter(tt.kind, tt.size, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestWindowSplitter_ShortDocumentIsOneChunk(t *testing.T) {
	s := WindowSplitter{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}

	for _, text := range []string{"x", "Paris is the capital of France.", strings.Repeat("a", DefaultChunkSize)} {
		chunks, err := s.SplitText(text)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, text, chunks[0])
	}
}

func TestWindowSplitter_Lossless(t *testing.T) {
	texts := []string{
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 97),
		strings.Repeat("ab\n\n", 1234),
		strings.Repeat("héllo wörld ☃ ", 301),
		strings.Repeat("z", 1001),
		strings.Repeat("z", 1900),
		strings.Repeat("z", 1901),
	}
	configs := []WindowSplitter{
		{ChunkSize: 1000, ChunkOverlap: 100},
		{ChunkSize: 10, ChunkOverlap: 9},
		{ChunkSize: 7, ChunkOverlap: 0},
		{ChunkSize: 64, ChunkOverlap: 13},
	}

	for _, cfg := range configs {
		for _, text := range texts {
			chunks, err := cfg.SplitText(text)
			require.NoError(t, err)
			assert.Equal(t, text, reconstruct(chunks, cfg.ChunkOverlap))
			for i, c := range chunks {
				assert.LessOrEqual(t, len([]rune(c)), cfg.ChunkSize, "chunk %d too long", i)
				if i > 0 {
					prev := []rune(chunks[i-1])
					assert.Equal(t, string(prev[len(prev)-cfg.ChunkOverlap:]), string([]rune(c)[:cfg.ChunkOverlap]))
				}
			}
		}
	}
}

func TestWindowSplitter_Counts(t *testing.T) {
	s := WindowSplitter{ChunkSize: 1000, ChunkOverlap: 100}

	tests := []struct {
		length int
		want   int
	}{
		{length: 0, want: 0},
		{length: 999, want: 1},
		{length: 1000, want: 1},
		{length: 1001, want: 2},
		{length: 1900, want: 2},
		{length: 1901, want: 3},
	}
	for _, tt := range tests {
		chunks, err := s.SplitText(strings.Repeat("a", tt.length))
		require.NoError(t, err)
		assert.Len(t, chunks, tt.want, "length %d", tt.length)
	}
}

func TestSplitDocument(t *testing.T) {
	node := testNode(t)

	t.Run("window offsets", func(t *testing.T) {
		doc := Document{Name: "doc.txt", Content: strings.Repeat("0123456789", 25)}
		chunks, err := SplitDocument(doc, WindowSplitter{ChunkSize: 100, ChunkOverlap: 10}, node)
		require.NoError(t, err)
		require.Len(t, chunks, 3)

		ids := map[int64]bool{}
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.Equal(t, "doc.txt", c.DocumentName)
			assert.Equal(t, doc.Content[c.Start:c.End], c.Content)
			ids[c.ID] = true
		}
		assert.Len(t, ids, 3)
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 90, chunks[1].Start)
		assert.Equal(t, 250, chunks[2].End)
	})

	t.Run("recursive offsets are located", func(t *testing.T) {
		s, err := NewSplitter(SplitterRecursive, 40, 0)
		require.NoError(t, err)
		doc := Document{Name: "doc.txt", Content: "First paragraph here.\n\nSecond paragraph is right here.\n\nThird one."}
		chunks, err := SplitDocument(doc, s, node)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			if c.Start >= 0 {
				assert.Equal(t, c.Content, string([]rune(doc.Content)[c.Start:c.End]))
			}
		}
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := SplitDocument(Document{Name: "empty.txt", Content: " \n\t"}, WindowSplitter{ChunkSize: 10, ChunkOverlap: 1}, node)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}
