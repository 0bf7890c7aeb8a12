package core

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// TechLogoResolver maps technology names to icon URLs. Custom logos from the
// store win over the public catalog; catalog lookup is tiered so an exact
// title match beats a prefix match beats a substring match.
type TechLogoResolver struct {
	catalog    IconCatalog
	custom     CustomLogoStore
	cdnBaseURL string
	logger     *log.Logger
}

func NewTechLogoResolver(catalog IconCatalog, custom CustomLogoStore, cdnBaseURL string) *TechLogoResolver {
	return &TechLogoResolver{
		catalog:    catalog,
		custom:     custom,
		cdnBaseURL: strings.TrimRight(cdnBaseURL, "/"),
		logger:     log.New(log.Writer(), "[LOGOS] ", log.LstdFlags),
	}
}

// Search returns all logos matching the query, custom matches first, then
// catalog tiers in order, deduplicated by name.
func (r *TechLogoResolver) Search(ctx context.Context, query string) ([]TechLogo, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	var results []TechLogo
	seen := map[string]bool{}
	add := func(l TechLogo) {
		key := strings.ToLower(l.Name)
		if !seen[key] {
			seen[key] = true
			results = append(results, l)
		}
	}

	if r.custom != nil {
		customs, err := r.custom.ListCustomLogos(ctx)
		if err != nil {
			r.logger.Printf("custom logo lookup failed: %v", err)
		}
		for _, l := range customs {
			if strings.Contains(strings.ToLower(l.Name), q) {
				l.Source = "custom"
				add(l)
			}
		}
	}

	icons, err := r.catalog.Icons(ctx)
	if err != nil {
		if len(results) > 0 {
			return results, nil
		}
		return nil, fmt.Errorf("icon catalog: %w", err)
	}

	var exact, prefix, substring []CatalogIcon
	for _, icon := range icons {
		title := strings.ToLower(icon.Title)
		switch {
		case title == q:
			exact = append(exact, icon)
		case strings.HasPrefix(title, q):
			prefix = append(prefix, icon)
		case strings.Contains(title, q):
			substring = append(substring, icon)
		}
	}
	for _, tier := range [][]CatalogIcon{exact, prefix, substring} {
		for _, icon := range tier {
			add(TechLogo{Name: icon.Title, LogoURL: r.LogoURL(icon.Slug), Source: "catalog"})
		}
	}
	return results, nil
}

// Resolve returns the best logo for a technology name, or nil when nothing
// matches.
func (r *TechLogoResolver) Resolve(ctx context.Context, name string) (*TechLogo, error) {
	logos, err := r.Search(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(logos) == 0 {
		return nil, nil
	}
	return &logos[0], nil
}

// LogoURL builds the CDN URL for a catalog slug.
func (r *TechLogoResolver) LogoURL(slug string) string {
	return fmt.Sprintf("%s/%s.svg", r.cdnBaseURL, slug)
}
