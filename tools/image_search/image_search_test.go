package image_search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/models"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/pexels"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/pixabay"
)

type fixedSearcher struct {
	images []models.Image
	err    error
}

func (f fixedSearcher) Search(ctx context.Context, query string, limit int) ([]models.Image, error) {
	return f.images, f.err
}

func TestNewImageSearcher(t *testing.T) {
	if _, err := NewImageSearcher(PexelsProvider, "k"); err != nil {
		t.Fatalf("pexels: %v", err)
	}
	if _, err := NewImageSearcher(PixabayProvider, "k"); err != nil {
		t.Fatalf("pixabay: %v", err)
	}
	if _, err := NewImageSearcher("bing", "k"); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestMultiPreservesProviderOrder(t *testing.T) {
	m := Multi{Searchers: []ImageSearcher{
		fixedSearcher{images: []models.Image{{URL: "a1"}, {URL: "a2"}}},
		fixedSearcher{images: []models.Image{{URL: "b1"}}},
	}}
	images, err := m.Search(context.Background(), "office", 9)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"a1", "a2", "b1"}
	if len(images) != len(want) {
		t.Fatalf("got %d images, want %d", len(images), len(want))
	}
	for i, url := range want {
		if images[i].URL != url {
			t.Errorf("image %d = %q, want %q", i, images[i].URL, url)
		}
	}
}

func TestMultiToleratesPartialFailure(t *testing.T) {
	m := Multi{Searchers: []ImageSearcher{
		fixedSearcher{err: errors.New("quota exceeded")},
		fixedSearcher{images: []models.Image{{URL: "b1"}}},
	}}
	images, err := m.Search(context.Background(), "office", 9)
	if err != nil {
		t.Fatalf("one healthy provider should be enough: %v", err)
	}
	if len(images) != 1 || images[0].URL != "b1" {
		t.Fatalf("images = %+v", images)
	}
}

func TestMultiFailsWhenAllFail(t *testing.T) {
	m := Multi{Searchers: []ImageSearcher{
		fixedSearcher{err: errors.New("quota exceeded")},
		fixedSearcher{err: errors.New("timeout")},
	}}
	if _, err := m.Search(context.Background(), "office", 9); err == nil {
		t.Fatal("expected error when every provider fails")
	}

	if _, err := (Multi{}).Search(context.Background(), "office", 9); err == nil {
		t.Fatal("expected error with no providers")
	}
}

func TestPexelsSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "pexels-key" {
			t.Errorf("auth header = %q", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "9" {
			t.Errorf("per_page = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"photos": []map[string]interface{}{
				{"alt": "team at work", "src": map[string]string{"original": "https://images.pexels.com/1.jpg"}},
			},
		})
	}))
	defer srv.Close()

	s := pexels.Search{ApiKey: "pexels-key", BaseURL: srv.URL}
	images, err := s.Search(context.Background(), "office", 9)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(images) != 1 || images[0].URL != "https://images.pexels.com/1.jpg" || images[0].Tags != "team at work" {
		t.Fatalf("images = %+v", images)
	}
}

func TestPixabaySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "pixabay-key" || q.Get("q") != "office" || q.Get("image_type") != "photo" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": []map[string]string{
				{"webformatURL": "https://cdn.pixabay.com/1.jpg", "tags": "office, desk"},
			},
		})
	}))
	defer srv.Close()

	s := pixabay.Search{ApiKey: "pixabay-key", BaseURL: srv.URL}
	images, err := s.Search(context.Background(), "office", 9)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(images) != 1 || images[0].URL != "https://cdn.pixabay.com/1.jpg" {
		t.Fatalf("images = %+v", images)
	}
}

func TestPexelsSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := pexels.Search{ApiKey: "k", BaseURL: srv.URL}
	if _, err := s.Search(context.Background(), "office", 9); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
