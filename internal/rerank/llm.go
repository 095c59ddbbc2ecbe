package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/convomem/retrieval-engine/internal/llmclient"
	"github.com/convomem/retrieval-engine/internal/ratelimit"
)

const rerankPromptTemplate = `You are a relevance scoring assistant. Given a query and a list of documents, score each document's relevance to the query on a scale of 0-100.

Query: %s

Documents:
%s

Return ONLY a JSON array of scores in the same order as the documents, like:
[95, 72, 88, 45, 91]

Scores only, no explanations.`

// LLMTier scores documents listwise via a chat-completion call, per the llm
// tier's contract in §4.C.
type LLMTier struct {
	client        *llmclient.Client
	limiter       *ratelimit.Limiter
	costPerKTok   float64
	docCharBudget int
}

// NewLLMTier constructs the llm tier. limiter may be nil, in which case no
// rate check is performed. costPerThousandTokensCents prices the cost
// estimate passed to the limiter. docCharBudget bounds per-document prompt
// text (0 defaults to 500).
func NewLLMTier(client *llmclient.Client, limiter *ratelimit.Limiter, costPerThousandTokensCents float64, docCharBudget int) *LLMTier {
	if docCharBudget <= 0 {
		docCharBudget = 500
	}
	return &LLMTier{client: client, limiter: limiter, costPerKTok: costPerThousandTokensCents, docCharBudget: docCharBudget}
}

// Name returns the tier's identifying tag.
func (t *LLMTier) Name() string { return "llm" }

// Rerank scores documents listwise. On any rate-limit denial the error
// propagates to the caller (the router decides on fallback); on any parse or
// call failure after the rate check passes, all documents are scored 0.5 and
// no error is returned. Because the router marks a result degraded only when
// a tier returns an error, these 0.5 fallback scores are not marked degraded.
func (t *LLMTier) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RankedResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	if t.limiter != nil {
		cost := t.estimateCost(query, documents)
		if err := t.limiter.CheckAndRecord(cost); err != nil {
			return nil, err
		}
	}

	scores := t.scoreDocuments(ctx, query, documents)
	return sortAndTruncate(documents, scores, topK), nil
}

func (t *LLMTier) estimateCost(query string, documents []string) float64 {
	tokens := len(strings.Fields(query))
	for _, d := range documents {
		tokens += len(strings.Fields(d))
	}
	return (float64(tokens) / 1000.0) * t.costPerKTok
}

func (t *LLMTier) scoreDocuments(ctx context.Context, query string, documents []string) []float32 {
	var b strings.Builder
	for i, doc := range documents {
		truncated := doc
		if len(truncated) > t.docCharBudget {
			truncated = truncated[:t.docCharBudget]
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncated)
	}

	prompt := fmt.Sprintf(rerankPromptTemplate, query, b.String())

	resp, err := t.client.Complete(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, false)
	if err != nil {
		return uniformScores(len(documents))
	}

	return parseScores(resp.Text, len(documents))
}

// parseScores extracts a JSON array of 0-100 scores from text, clamping each
// to range and dividing by 100. Any parse failure or length mismatch falls
// back to a uniform 0.5 for every document.
func parseScores(text string, numDocuments int) []float32 {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return uniformScores(numDocuments)
	}

	var raw []json.Number
	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return uniformScores(numDocuments)
	}
	if len(raw) != numDocuments {
		return uniformScores(numDocuments)
	}

	scores := make([]float32, numDocuments)
	for i, n := range raw {
		v, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return uniformScores(numDocuments)
		}
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		scores[i] = float32(v / 100.0)
	}
	return scores
}

func uniformScores(n int) []float32 {
	scores := make([]float32, n)
	for i := range scores {
		scores[i] = 0.5
	}
	return scores
}
