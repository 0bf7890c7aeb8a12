package pixabay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/models"
)

type Search struct {
	ApiKey  string
	BaseURL string // test override
}

func (s Search) Search(ctx context.Context, query string, limit int) ([]models.Image, error) {
	// https://pixabay.com/api/docs/ docs
	base := s.BaseURL
	if base == "" {
		base = "https://pixabay.com/api/"
	}
	q := url.Values{}
	q.Set("key", s.ApiKey)
	q.Set("q", query)
	q.Set("image_type", "photo")
	q.Set("per_page", strconv.Itoa(limit))

	req, _ := http.NewRequestWithContext(ctx, "GET", base+"?"+q.Encode(), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pixabay status %d", resp.StatusCode)
	}

	var raw struct {
		Hits []struct {
			WebformatURL string `json:"webformatURL"`
			Tags         string `json:"tags"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Image
	for _, h := range raw.Hits {
		out = append(out, models.Image{URL: h.WebformatURL, Tags: h.Tags})
	}
	return out, nil
}
