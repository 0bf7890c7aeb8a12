package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"

	core "github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/core"
)

type Store struct {
	DB *sql.DB
}

// Proposal statuses persisted for generation tracking.
const (
	ProposalStatusDraft      = "draft"
	ProposalStatusGenerating = "generating"
	ProposalStatusReady      = "ready"
	ProposalStatusFailed     = "failed"
)

// Proposal is a persisted proposal header.
type Proposal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ClientName  string    `json:"clientName"`
	CompanyName string    `json:"companyName"`
	RFPText     string    `json:"rfpText"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Section is a persisted enriched section.
type Section struct {
	ID             string          `json:"id"`
	ProposalID     string          `json:"proposal_id"`
	Title          string          `json:"title"`
	ContentHTML    string          `json:"contentHtml"`
	OrderIndex     int             `json:"order"`
	ImageURLs      []string        `json:"image_urls"`
	ImagePlacement string          `json:"image_placement,omitempty"`
	MermaidChart   string          `json:"mermaid_chart,omitempty"`
	ChartType      string          `json:"chart_type,omitempty"`
	TechLogos      []core.TechLogo `json:"tech_logos"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// New constructs the Store from DATABASE_URL or POSTGRES_* env vars.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Proposal operations
func (s *Store) CreateProposal(ctx context.Context, userID, clientName, companyName, rfpText string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO proposals (user_id, client_name, company_name, rfp_text, status) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		userID, clientName, companyName, rfpText, ProposalStatusDraft).Scan(&id)
	return id, err
}

func (s *Store) GetProposal(ctx context.Context, id string) (Proposal, error) {
	var p Proposal
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, client_name, company_name, rfp_text, status, created_at, updated_at FROM proposals WHERE id=$1`, id).
		Scan(&p.ID, &p.UserID, &p.ClientName, &p.CompanyName, &p.RFPText, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) ListProposals(ctx context.Context, userID string) ([]Proposal, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, client_name, company_name, rfp_text, status, created_at, updated_at FROM proposals WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Proposal
	for rows.Next() {
		var p Proposal
		if err := rows.Scan(&p.ID, &p.UserID, &p.ClientName, &p.CompanyName, &p.RFPText, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProposal(ctx context.Context, id, clientName, companyName, rfpText string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE proposals SET client_name=$2, company_name=$3, rfp_text=$4, updated_at=NOW() WHERE id=$1`,
		id, clientName, companyName, rfpText)
	return err
}

func (s *Store) UpdateProposalStatus(ctx context.Context, id, status string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE proposals SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	return err
}

func (s *Store) DeleteProposal(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM proposals WHERE id=$1`, id)
	return err
}

// ReplaceSections swaps a proposal's sections for a freshly generated set
// in one transaction.
func (s *Store) ReplaceSections(ctx context.Context, proposalID string, sections []core.EnrichedSection) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE proposal_id=$1`, proposalID); err != nil {
		return err
	}
	for _, sec := range sections {
		logos, err := json.Marshal(sec.TechLogos)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sections (proposal_id, title, content_html, order_index, image_urls, image_placement, mermaid_chart, chart_type, tech_logos)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			proposalID, sec.Title, sec.ContentHTML, sec.Order, pq.Array(sec.ImageURLs),
			string(sec.ImagePlacement), sec.MermaidChart, string(sec.ChartType), logos); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Section operations
func (s *Store) ListSections(ctx context.Context, proposalID string) ([]Section, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, proposal_id, title, content_html, order_index, image_urls, image_placement, mermaid_chart, chart_type, tech_logos, created_at, updated_at
		 FROM sections WHERE proposal_id=$1 ORDER BY order_index ASC`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *Store) GetSection(ctx context.Context, id string) (Section, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, proposal_id, title, content_html, order_index, image_urls, image_placement, mermaid_chart, chart_type, tech_logos, created_at, updated_at
		 FROM sections WHERE id=$1`, id)
	return scanSection(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSection(row rowScanner) (Section, error) {
	var sec Section
	var logos []byte
	err := row.Scan(&sec.ID, &sec.ProposalID, &sec.Title, &sec.ContentHTML, &sec.OrderIndex,
		pq.Array(&sec.ImageURLs), &sec.ImagePlacement, &sec.MermaidChart, &sec.ChartType,
		&logos, &sec.CreatedAt, &sec.UpdatedAt)
	if err != nil {
		return sec, err
	}
	if len(logos) > 0 {
		if err := json.Unmarshal(logos, &sec.TechLogos); err != nil {
			return sec, err
		}
	}
	return sec, nil
}

// UpdateSectionContent writes new content, snapshotting the previous
// content into section_versions.
func (s *Store) UpdateSectionContent(ctx context.Context, id, contentHTML string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO section_versions (section_id, content_html) SELECT id, content_html FROM sections WHERE id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sections SET content_html=$2, updated_at=NOW() WHERE id=$1`, id, contentHTML); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) UpdateSectionChart(ctx context.Context, id, chart, chartType string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sections SET mermaid_chart=$2, chart_type=$3, updated_at=NOW() WHERE id=$1`, id, chart, chartType)
	return err
}

// ReorderSections rewrites order_index to match the given section id order.
func (s *Store) ReorderSections(ctx context.Context, proposalID string, sectionIDs []string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, id := range sectionIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE sections SET order_index=$3, updated_at=NOW() WHERE id=$1 AND proposal_id=$2`, id, proposalID, i+1)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("section %s not in proposal %s", id, proposalID)
		}
	}
	return tx.Commit()
}

// SectionVersion is a content snapshot taken before an update.
type SectionVersion struct {
	ID          string    `json:"id"`
	SectionID   string    `json:"section_id"`
	ContentHTML string    `json:"contentHtml"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Store) ListSectionVersions(ctx context.Context, sectionID string) ([]SectionVersion, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, section_id, content_html, created_at FROM section_versions WHERE section_id=$1 ORDER BY created_at DESC`, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SectionVersion
	for rows.Next() {
		var v SectionVersion
		if err := rows.Scan(&v.ID, &v.SectionID, &v.ContentHTML, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Custom logo operations
func (s *Store) CreateCustomLogo(ctx context.Context, name, logoURL string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO custom_logos (name, logo_url) VALUES ($1,$2) RETURNING id`, name, logoURL).Scan(&id)
	return id, err
}

func (s *Store) DeleteCustomLogo(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM custom_logos WHERE id=$1`, id)
	return err
}

// ListCustomLogos satisfies core.CustomLogoStore.
func (s *Store) ListCustomLogos(ctx context.Context) ([]core.TechLogo, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name, logo_url FROM custom_logos ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.TechLogo
	for rows.Next() {
		var l core.TechLogo
		if err := rows.Scan(&l.Name, &l.LogoURL); err != nil {
			return nil, err
		}
		l.Source = "custom"
		out = append(out, l)
	}
	return out, rows.Err()
}
