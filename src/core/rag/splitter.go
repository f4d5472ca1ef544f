package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	SplitterWindow    = "window"
	SplitterRecursive = "recursive"
)

// NewSplitter returns the text splitter registered under kind.
func NewSplitter(kind string, chunkSize, chunkOverlap int) (textsplitter.TextSplitter, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidSplit, chunkSize, chunkOverlap)
	}

	switch kind {
	case SplitterWindow, "":
		return WindowSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}, nil
	case SplitterRecursive:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		), nil
	default:
		return nil, fmt.Errorf("unknown splitter %q", kind)
	}
}

// WindowSplitter cuts text into fixed windows of ChunkSize runes, each starting
// ChunkSize-ChunkOverlap runes after the previous one. Dropping the first
// ChunkOverlap runes of every chunk but the first and concatenating gives back
// the input.
type WindowSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

type span struct {
	start, end int
}

func (s WindowSplitter) spans(n int) []span {
	if n == 0 {
		return nil
	}
	step := s.ChunkSize - s.ChunkOverlap
	var out []span
	for start := 0; ; start += step {
		end := min(start+s.ChunkSize, n)
		out = append(out, span{start: start, end: end})
		if end == n {
			return out
		}
	}
}

// SplitText implements textsplitter.TextSplitter.
func (s WindowSplitter) SplitText(text string) ([]string, error) {
	if s.ChunkSize <= 0 || s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return nil, ErrInvalidSplit
	}
	runes := []rune(text)
	spans := s.spans(len(runes))
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = string(runes[sp.start:sp.end])
	}
	return out, nil
}

// SplitDocument splits doc with splitter and returns ordered chunks with ids
// from node. Offsets of splitters that rewrite whitespace are located by search
// and are -1 when a piece cannot be found verbatim.
func SplitDocument(doc Document, splitter textsplitter.TextSplitter, node *snowflake.Node) ([]Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, ErrEmptyDocument
	}

	pieces, err := splitter.SplitText(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to split document: %w", err)
	}
	if len(pieces) == 0 {
		return nil, ErrEmptyDocument
	}

	var spans []span
	if ws, ok := splitter.(WindowSplitter); ok {
		spans = ws.spans(utf8.RuneCountInString(doc.Content))
	} else {
		spans = locate(doc.Content, pieces)
	}

	chunks := make([]Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = Chunk{
			ID:           node.Generate().Int64(),
			Index:        i,
			DocumentName: doc.Name,
			Content:      piece,
			Start:        spans[i].start,
			End:          spans[i].end,
		}
	}
	return chunks, nil
}

// locate finds each piece in text, searching forward from the previous match.
func locate(text string, pieces []string) []span {
	spans := make([]span, len(pieces))
	from := 0
	for i, piece := range pieces {
		idx := strings.Index(text[from:], piece)
		if idx < 0 {
			spans[i] = span{start: -1, end: -1}
			continue
		}
		b := from + idx
		start := utf8.RuneCountInString(text[:b])
		spans[i] = span{start: start, end: start + utf8.RuneCountInString(piece)}
		from = b + 1
		for from < len(text) && !utf8.RuneStart(text[from]) {
			from++
		}
	}
	return spans
}
