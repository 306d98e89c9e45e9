package eval

import (
	"context"
	"fmt"
	"math"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// embeddingAPI is the slice of the OpenAI client the scorer needs.
type embeddingAPI interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// EmbeddingSimilarity grades semantic closeness: both strings are embedded
// and scored by cosine similarity. Two empty strings are identical (score 1);
// one empty string scores 0.
type EmbeddingSimilarity struct {
	client embeddingAPI
	model  openai.EmbeddingModel
}

// NewEmbeddingSimilarity builds the scorer around an OpenAI client.
func NewEmbeddingSimilarity(client *openai.Client) *EmbeddingSimilarity {
	return &EmbeddingSimilarity{
		client: client.Embeddings,
		model:  openai.EmbeddingModelTextEmbedding3Small,
	}
}

func (*EmbeddingSimilarity) Name() string { return "embedding_similarity" }

func (s *EmbeddingSimilarity) Score(ctx context.Context, expected, output string) (float64, error) {
	if expected == "" && output == "" {
		return 1, nil
	}
	if expected == "" || output == "" {
		return 0, nil
	}

	ev, err := s.embed(ctx, expected)
	if err != nil {
		return 0, fmt.Errorf("embed expected: %w", err)
	}
	ov, err := s.embed(ctx, output)
	if err != nil {
		return 0, fmt.Errorf("embed output: %w", err)
	}

	sim, err := cosineSimilarity(ev, ov)
	if err != nil {
		return 0, err
	}
	// Clamp to [0,1]: near-opposite embeddings would otherwise go negative.
	return math.Max(0, sim), nil
}

func (s *EmbeddingSimilarity) embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := s.client.New(ctx, openai.EmbeddingNewParams{
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](shared.UnionString(text)),
		Model: openai.F(s.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero magnitude embedding")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
