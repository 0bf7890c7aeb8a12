package server

// HTTPError is the unified error envelope.
type HTTPError struct {
	Error string `json:"error"`
}

type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ProposalCreateRequest struct {
	ClientName  string `json:"clientName"`
	CompanyName string `json:"companyName"`
	RFPText     string `json:"rfpText"`
}

type ProposalGenerateRequest struct {
	SectionTitles []string `json:"sectionTitles,omitempty"`
}

type SectionUpdateRequest struct {
	ContentHTML string `json:"contentHtml"`
}

type SectionReorderRequest struct {
	SectionIDs []string `json:"section_ids"`
}

type SectionEnhanceRequest struct {
	Instruction string   `json:"instruction"`
	Tone        string   `json:"tone,omitempty"`
	FocusPoints []string `json:"focus_points,omitempty"`
}

type ChartGenerateRequest struct {
	ChartType   string `json:"chart_type"`
	Description string `json:"description"`
}

type ChartUpdateRequest struct {
	Modification string `json:"modification"`
	Chart        string `json:"chart"`
}

type ChartFixRequest struct {
	Chart string `json:"chart"`
}

type ChartResponse struct {
	Chart     string `json:"chart"`
	ChartType string `json:"chart_type,omitempty"`
}

type CustomLogoCreateRequest struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
}
