// Package chunk splits long text into semantically coherent pieces: fenced
// code blocks are preserved intact, prose is split into sentences, and
// embedding-similarity breakpoints between consecutive sentences decide
// where chunks end, subject to a min/max character balance pass.
package chunk

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/convomem/retrieval-engine/internal/config"
	"github.com/convomem/retrieval-engine/internal/embed"
)

var (
	codeBlockPattern = regexp.MustCompile("(?s)```[[:word:]]*\n.*?\n```")

	// sentencePattern approximates the original's lookaround-based split
	// (sentence punctuation followed by whitespace, blank lines, or a colon
	// followed by a newline). Go's RE2 engine has no lookaround, so unlike
	// the original this doesn't require the following character to be
	// upper-case before splitting, so it splits slightly more eagerly
	// around abbreviations. The punctuation or colon stays with the
	// sentence it ends; only the whitespace after it is dropped.
	sentencePattern = regexp.MustCompile(`[.!?]\s+|\n\n+|:\n`)
)

// Config configures the semantic chunker.
type Config struct {
	SimilarityThreshold float32
	MinChunkChars       int
	MaxChunkChars       int
}

// DefaultConfig matches the original's chunking defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.7,
		MinChunkChars:       100,
		MaxChunkChars:       2000,
	}
}

// ConfigFromSearchConfig derives chunker settings from the shared search
// configuration block.
func ConfigFromSearchConfig(c config.SearchConfig) Config {
	cfg := DefaultConfig()
	if c.ChunkSimilarityThreshold > 0 {
		cfg.SimilarityThreshold = float32(c.ChunkSimilarityThreshold)
	}
	if c.ChunkMinChars > 0 {
		cfg.MinChunkChars = c.ChunkMinChars
	}
	if c.ChunkMaxChars > 0 {
		cfg.MaxChunkChars = c.ChunkMaxChars
	}
	return cfg
}

// Chunk is a single piece of text produced by the chunker.
type Chunk struct {
	Text          string
	Index         int
	StartChar     int
	EndChar       int
	IsCode        bool
	SentenceCount int
}

// Embedder is the subset of *embed.Factory the chunker depends on for
// sentence-similarity breakpoint detection.
type Embedder interface {
	DenseText() (embed.DenseEncoder, error)
}

// Chunker splits text at semantic boundaries.
type Chunker struct {
	embed Embedder
	cfg   Config
}

// NewChunker constructs a Chunker.
func NewChunker(embedder Embedder, cfg Config) *Chunker {
	if cfg.MaxChunkChars == 0 {
		cfg = DefaultConfig()
	}
	return &Chunker{embed: embedder, cfg: cfg}
}

// Chunk splits text into semantically coherent chunks. Text no longer than
// MaxChunkChars is returned as a single chunk without invoking the embedder.
func (c *Chunker) Chunk(ctx context.Context, text string) ([]Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if len(text) <= c.cfg.MaxChunkChars {
		return []Chunk{{
			Text:          text,
			Index:         0,
			StartChar:     0,
			EndChar:       len(text),
			IsCode:        strings.Contains(text, "```"),
			SentenceCount: len(splitSentences(text)),
		}}, nil
	}

	withoutCode, placeholders := extractCodeBlocks(text)
	sentences := splitSentences(withoutCode)

	var raw []string
	if len(sentences) <= 1 {
		raw = []string{withoutCode}
	} else {
		breakpoints, err := c.findBreakpoints(ctx, sentences)
		if err != nil {
			return nil, err
		}
		raw = chunksFromBreakpoints(sentences, breakpoints)
	}

	withCode := restoreCodeBlocks(raw, placeholders)
	balanced := c.balanceChunkSizes(withCode)

	return finalizeChunks(balanced), nil
}

// ShouldChunk reports whether text exceeds the chunking threshold.
func (c *Chunker) ShouldChunk(text string) bool {
	return len(text) > c.cfg.MaxChunkChars
}

func extractCodeBlocks(text string) (string, map[string]string) {
	placeholders := make(map[string]string)
	n := 0
	replaced := codeBlockPattern.ReplaceAllStringFunc(text, func(code string) string {
		placeholder := fmt.Sprintf("__CODE_BLOCK_%d__", n)
		placeholders[placeholder] = code
		n++
		return placeholder
	})
	return replaced, placeholders
}

func restoreCodeBlocks(chunks []string, placeholders map[string]string) []string {
	restored := make([]string, len(chunks))
	for i, chunk := range chunks {
		for placeholder, code := range placeholders {
			chunk = strings.ReplaceAll(chunk, placeholder, code)
		}
		restored[i] = chunk
	}
	return restored
}

// splitSentences splits text on sentence boundaries, falling back to a
// simple newline split when the regex yields at most one piece.
func splitSentences(text string) []string {
	sentences := splitOnPattern(text)
	if len(sentences) <= 1 && strings.Contains(text, "\n") {
		var lines []string
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				lines = append(lines, line)
			}
		}
		return lines
	}
	return sentences
}

func splitOnPattern(text string) []string {
	locs := sentencePattern.FindAllStringIndex(text, -1)
	var out []string
	prev := 0
	for _, loc := range locs {
		piece := strings.TrimSpace(text[prev:loc[1]])
		if piece != "" {
			out = append(out, piece)
		}
		prev = loc[1]
	}
	tail := strings.TrimSpace(text[prev:])
	if tail != "" {
		out = append(out, tail)
	}
	return out
}

// findBreakpoints embeds every non-placeholder sentence and marks a
// breakpoint wherever cosine similarity to the previous embedded sentence
// falls below the configured threshold.
func (c *Chunker) findBreakpoints(ctx context.Context, sentences []string) ([]int, error) {
	if len(sentences) <= 1 {
		return []int{0, len(sentences)}, nil
	}

	var embeddable []string
	var indices []int
	for i, s := range sentences {
		if !strings.HasPrefix(s, "__CODE_BLOCK_") {
			embeddable = append(embeddable, s)
			indices = append(indices, i)
		}
	}
	if len(embeddable) <= 1 {
		return []int{0, len(sentences)}, nil
	}

	encoder, err := c.embed.DenseText()
	if err != nil {
		return nil, err
	}
	embeddings, err := encoder.EncodeDocumentBatch(ctx, embeddable)
	if err != nil {
		return nil, err
	}

	breakpoints := []int{0}
	for i := 1; i < len(embeddable); i++ {
		if cosineSimilarity(embeddings[i-1], embeddings[i]) < c.cfg.SimilarityThreshold {
			breakpoints = append(breakpoints, indices[i])
		}
	}
	breakpoints = append(breakpoints, len(sentences))
	return breakpoints, nil
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func chunksFromBreakpoints(sentences []string, breakpoints []int) []string {
	var chunks []string
	for i := 0; i < len(breakpoints)-1; i++ {
		start, end := breakpoints[i], breakpoints[i+1]
		text := strings.TrimSpace(strings.Join(sentences[start:end], " "))
		if text != "" {
			chunks = append(chunks, text)
		}
	}
	return chunks
}

// balanceChunkSizes merges runs of undersized chunks and force-splits
// oversized ones at sentence boundaries.
func (c *Chunker) balanceChunkSizes(chunks []string) []string {
	if len(chunks) == 0 {
		return nil
	}

	var merged []string
	current := ""
	for _, chunk := range chunks {
		switch {
		case current == "":
			current = chunk
		case len(current)+len(chunk)+1 < c.cfg.MinChunkChars:
			current = current + " " + chunk
		case len(current) < c.cfg.MinChunkChars:
			if len(current)+len(chunk)+1 <= c.cfg.MaxChunkChars {
				current = current + " " + chunk
			} else {
				merged = append(merged, current)
				current = chunk
			}
		default:
			merged = append(merged, current)
			current = chunk
		}
	}
	if current != "" {
		merged = append(merged, current)
	}

	var final []string
	for _, chunk := range merged {
		if len(chunk) <= c.cfg.MaxChunkChars {
			final = append(final, chunk)
		} else {
			final = append(final, c.forceSplit(chunk)...)
		}
	}
	return final
}

func (c *Chunker) forceSplit(chunk string) []string {
	sentences := splitSentences(chunk)
	var result []string
	current := ""
	for _, sentence := range sentences {
		switch {
		case current == "":
			current = sentence
		case len(current)+len(sentence)+1 <= c.cfg.MaxChunkChars:
			current = current + " " + sentence
		default:
			result = append(result, current)
			current = sentence
		}
	}
	if current != "" {
		result = append(result, current)
	}
	if len(result) == 0 {
		return []string{chunk}
	}
	return result
}

func finalizeChunks(texts []string) []Chunk {
	chunks := make([]Chunk, len(texts))
	offset := 0
	for i, text := range texts {
		chunks[i] = Chunk{
			Text:          text,
			Index:         i,
			StartChar:     offset,
			EndChar:       offset + len(text),
			IsCode:        strings.Contains(text, "```"),
			SentenceCount: len(splitSentences(text)),
		}
		offset += len(text) + 1
	}
	return chunks
}
