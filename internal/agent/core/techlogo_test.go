package core

import (
	"context"
	"errors"
	"testing"
)

type stubLogoStore struct {
	logos []TechLogo
	err   error
}

func (s *stubLogoStore) ListCustomLogos(ctx context.Context) ([]TechLogo, error) {
	return s.logos, s.err
}

func TestTechLogoSearchTiers(t *testing.T) {
	catalog := &stubCatalog{icons: []CatalogIcon{
		{Title: "TypeScript", Slug: "typescript"},
		{Title: "Go", Slug: "go"},
		{Title: "Google Cloud", Slug: "googlecloud"},
		{Title: "Django", Slug: "django"},
	}}
	r := NewTechLogoResolver(catalog, nil, "https://cdn.example.com/icons/")

	logos, err := r.Search(context.Background(), "go")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Exact beats prefix beats substring.
	want := []string{"Go", "Google Cloud", "Django"}
	if len(logos) != len(want) {
		t.Fatalf("got %d results, want %d: %+v", len(logos), len(want), logos)
	}
	for i, name := range want {
		if logos[i].Name != name {
			t.Errorf("result %d = %q, want %q", i, logos[i].Name, name)
		}
		if logos[i].Source != "catalog" {
			t.Errorf("result %d source = %q", i, logos[i].Source)
		}
	}
	if logos[0].LogoURL != "https://cdn.example.com/icons/go.svg" {
		t.Fatalf("logo url = %q", logos[0].LogoURL)
	}
}

func TestTechLogoCustomBeforeCatalog(t *testing.T) {
	catalog := &stubCatalog{icons: []CatalogIcon{{Title: "React", Slug: "react"}}}
	custom := &stubLogoStore{logos: []TechLogo{
		{Name: "React", LogoURL: "https://assets.example.com/react-brand.png"},
	}}
	r := NewTechLogoResolver(catalog, custom, "https://cdn.example.com/icons")

	logos, err := r.Search(context.Background(), "react")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// The custom logo wins and the catalog entry with the same name is dropped.
	if len(logos) != 1 {
		t.Fatalf("got %d results, want 1: %+v", len(logos), logos)
	}
	if logos[0].Source != "custom" {
		t.Fatalf("source = %q, want custom", logos[0].Source)
	}
	if logos[0].LogoURL != "https://assets.example.com/react-brand.png" {
		t.Fatalf("logo url = %q", logos[0].LogoURL)
	}
}

func TestTechLogoCatalogFailureToleratedWithCustomMatch(t *testing.T) {
	catalog := &stubCatalog{err: errors.New("cdn unreachable")}
	custom := &stubLogoStore{logos: []TechLogo{{Name: "Internal Platform", LogoURL: "https://assets.example.com/platform.svg"}}}
	r := NewTechLogoResolver(catalog, custom, "https://cdn.example.com/icons")

	logos, err := r.Search(context.Background(), "platform")
	if err != nil {
		t.Fatalf("custom matches should survive a catalog failure: %v", err)
	}
	if len(logos) != 1 || logos[0].Name != "Internal Platform" {
		t.Fatalf("results = %+v", logos)
	}

	if _, err := r.Search(context.Background(), "react"); err == nil {
		t.Fatal("expected error when catalog fails and nothing custom matches")
	}
}

func TestTechLogoResolve(t *testing.T) {
	catalog := &stubCatalog{icons: []CatalogIcon{{Title: "PostgreSQL", Slug: "postgresql"}}}
	r := NewTechLogoResolver(catalog, nil, "https://cdn.example.com/icons")

	logo, err := r.Resolve(context.Background(), "PostgreSQL")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if logo == nil || logo.LogoURL != "https://cdn.example.com/icons/postgresql.svg" {
		t.Fatalf("resolved = %+v", logo)
	}

	logo, err = r.Resolve(context.Background(), "Fortran")
	if err != nil {
		t.Fatalf("Resolve miss: %v", err)
	}
	if logo != nil {
		t.Fatalf("expected nil for unknown tech, got %+v", logo)
	}

	if _, err := r.Resolve(context.Background(), "   "); err != nil || logo != nil {
		t.Fatalf("blank query should resolve to nothing")
	}
}
