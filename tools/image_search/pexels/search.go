package pexels

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
	// https://www.pexels.com/api/documentation/ docs
	base := s.BaseURL
	if base == "" {
		base = "https://api.pexels.com/v1"
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(limit))

	req, _ := http.NewRequestWithContext(ctx, "GET", base+"/search?"+q.Encode(), nil)
	req.Header.Set("Authorization", s.ApiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels status %d", resp.StatusCode)
	}

	var raw struct {
		Photos []struct {
			Alt string `json:"alt"`
			Src struct {
				Original string `json:"original"`
			} `json:"src"`
		} `json:"photos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Image
	for _, p := range raw.Photos {
		out = append(out, models.Image{URL: p.Src.Original, Tags: p.Alt})
	}
	return out, nil
}
