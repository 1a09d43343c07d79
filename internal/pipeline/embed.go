package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
)

// EmbedResult summarizes one embedding pass.
type EmbedResult struct {
	Embedded int `json:"embedded"`
	Batches  int `json:"batches"`
}

// RunEmbedder generates vectors for every tagged record that lacks one,
// in batches of cfg.EmbedBatch per API call. A failed batch stops the
// pass; the stored watermark (embedding_id) means the next tick resumes
// exactly where this one stopped.
func (p *Pipeline) RunEmbedder(ctx context.Context) (EmbedResult, error) {
	var result EmbedResult
	for {
		records, err := p.store.RecordsNeedingEmbedding(ctx, p.cfg.EmbedBatch)
		if err != nil {
			return result, fmt.Errorf("select records needing embedding: %w", err)
		}
		if len(records) == 0 {
			break
		}

		texts := make([]string, len(records))
		for i, r := range records {
			texts[i] = r.RawQuote
		}

		vectors, err := p.llm.Embed(ctx, texts)
		if err != nil {
			return result, fmt.Errorf("embed batch of %d: %w", len(records), err)
		}

		for i, r := range records {
			if _, err := p.store.SaveEmbedding(ctx, r.ID, vectors[i]); err != nil {
				return result, fmt.Errorf("save embedding for record %d: %w", r.ID, err)
			}
			result.Embedded++
		}
		result.Batches++
	}

	if result.Embedded > 0 {
		log.Printf("[Embedder] %d vectors in %d batches", result.Embedded, result.Batches)
	}
	return result, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
