package main

import (
	"context"
	"fmt"
	"time"

	"bodycoach/internal/documents"
)

// seedLocalSamples fills the in-memory store with a few sample documents so
// a fresh development server has something to look at.
func seedLocalSamples(ctx context.Context, repo documents.Repository) (int, error) {
	now := time.Now().UTC()

	samples := []map[string]any{
		{"message": "sample", "food": "りんご", "grams": 100, "kcal": 52, "timestamp": now.UnixMilli()},
		{"message": "sample", "food": "白米", "grams": 150, "kcal": 234, "timestamp": now.Add(time.Minute).UnixMilli()},
		{"message": "sample", "food": "鶏むね肉", "grams": 120, "kcal": 130, "timestamp": now.Add(2 * time.Minute).UnixMilli()},
	}

	for i, data := range samples {
		if _, err := repo.Add(ctx, documents.CollectionSamples, data); err != nil {
			return i, fmt.Errorf("seed sample %d: %w", i, err)
		}
	}
	return len(samples), nil
}
