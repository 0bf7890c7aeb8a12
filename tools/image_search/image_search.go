package image_search

import (
	"context"
	"sync"

	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/models"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/pexels"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/pixabay"
)

type ImageSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.Image, error)
}

type Provider string

const (
	PexelsProvider  Provider = "pexels"
	PixabayProvider Provider = "pixabay"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

func NewImageSearcher(provider Provider, apiKey string) (ImageSearcher, error) {
	switch provider {
	case PexelsProvider:
		return pexels.Search{ApiKey: apiKey}, nil
	case PixabayProvider:
		return pixabay.Search{ApiKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// Multi fans a query out to all configured providers concurrently and
// concatenates results in provider order. A provider failure only drops
// that provider's results; Multi fails only when every provider fails.
type Multi struct {
	Searchers []ImageSearcher
}

func (m Multi) Search(ctx context.Context, query string, limit int) ([]models.Image, error) {
	if len(m.Searchers) == 0 {
		return nil, &Error{"no image providers configured"}
	}

	results := make([][]models.Image, len(m.Searchers))
	errs := make([]error, len(m.Searchers))
	var wg sync.WaitGroup
	for i, s := range m.Searchers {
		wg.Add(1)
		go func(i int, s ImageSearcher) {
			defer wg.Done()
			results[i], errs[i] = s.Search(ctx, query, limit)
		}(i, s)
	}
	wg.Wait()

	var out []models.Image
	var lastErr error
	for i := range results {
		if errs[i] != nil {
			lastErr = errs[i]
			continue
		}
		out = append(out, results[i]...)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
