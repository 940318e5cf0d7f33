package ai

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/samber/lo"
)

// Embedder maps texts to vectors, one per input and in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type OpenAIEmbedder struct {
	api   *openai.Client
	model openai.EmbeddingModel
}

func NewOpenAIEmbedder(api *openai.Client, modelName string) *OpenAIEmbedder {
	if modelName == "" {
		modelName = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{api: api, model: openai.EmbeddingModel(modelName)}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// SplitKeywords parses the comma separated keyword setting.
func SplitKeywords(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(k string, _ int) string { return strings.TrimSpace(k) }))
}

// SortBySimilarity orders items by cosine similarity between text(item) and
// the mean embedding of keywords, most similar first. The returned scores
// line up with the returned items.
func SortBySimilarity[T any](ctx context.Context, e Embedder, items []T, text func(T) string, keywords []string) ([]T, []float64, error) {
	if len(items) == 0 || len(keywords) == 0 {
		return items, make([]float64, len(items)), nil
	}

	kwVecs, err := e.Embed(ctx, keywords)
	if err != nil {
		return nil, nil, err
	}
	target := meanVector(kwVecs)

	itemVecs, err := e.Embed(ctx, lo.Map(items, func(it T, _ int) string { return text(it) }))
	if err != nil {
		return nil, nil, err
	}

	type scored struct {
		item  T
		score float64
	}
	all := make([]scored, len(items))
	for i, it := range items {
		all[i] = scored{item: it, score: cosine(itemVecs[i], target)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	return lo.Map(all, func(s scored, _ int) T { return s.item }),
		lo.Map(all, func(s scored, _ int) float64 { return s.score }), nil
}

func meanVector(vecs [][]float32) []float64 {
	if len(vecs) == 0 {
		return nil
	}
	mean := make([]float64, len(vecs[0]))
	for _, v := range vecs {
		for i := range mean {
			if i < len(v) {
				mean[i] += float64(v[i])
			}
		}
	}
	for i := range mean {
		mean[i] /= float64(len(vecs))
	}
	return mean
}

func cosine(a []float32, b []float64) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		x := float64(a[i])
		dot += x * b[i]
		na += x * x
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
