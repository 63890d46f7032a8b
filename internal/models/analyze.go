// internal/models/analyze.go
package models

// Unknown is the literal placeholder used instead of null for any string
// field the pipeline could not determine.
const Unknown = "unknown"

// Evidence source tags.
const (
	SourceCompanySite      = "company_site"
	SourceDDGCompany       = "ddg_company"
	SourceDDGNews          = "ddg_news"
	SourceDDGHiring        = "ddg_hiring"
	SourceDDGPerson        = "ddg_person"
	SourceDDGGitHub        = "ddg_github"
	SourceLinkedInSnippet  = "linkedin_snippet"
	SourceGitHubDirect     = "github_api_direct"
	SourceSocialUser       = "social_user"
	SourceSocialDiscovered = "social_discovered"
)

// EvidenceItem is one normalized fact fragment gathered from a public source.
type EvidenceItem struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
	URL     string `json:"url,omitempty"`
}

// Confidence labels.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

type Confidence struct {
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
}

type StudyOfPerson struct {
	LikelyRoleFocus    string `json:"likely_role_focus"`
	Domain             string `json:"domain"`
	CommunicationStyle string `json:"communication_style"`
}

type Recommendations struct {
	Dress            string   `json:"dress"`
	Tone             string   `json:"tone"`
	Dos              []string `json:"dos"`
	Donts            []string `json:"donts"`
	ConnectingPoints []string `json:"connecting_points"`
	SuggestedAgenda  []string `json:"suggested_agenda"`
}

type EmailOpeners struct {
	Formal    string `json:"formal"`
	Warm      string `json:"warm"`
	Technical string `json:"technical"`
}

type CompanyProfile struct {
	Summary                string   `json:"summary"`
	LikelyProductsServices []string `json:"likely_products_services"`
	HiringSignals          []string `json:"hiring_signals"`
	RecentPublicMentions   []string `json:"recent_public_mentions"`
}

type GitHubRepo struct {
	Name            string `json:"name"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description,omitempty"`
	Language        string `json:"language,omitempty"`
	StargazersCount int    `json:"stargazers_count"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

type GitHubProfile struct {
	Username     string       `json:"username"`
	HTMLURL      string       `json:"html_url"`
	Name         string       `json:"name,omitempty"`
	Company      string       `json:"company,omitempty"`
	Location     string       `json:"location,omitempty"`
	Bio          string       `json:"bio,omitempty"`
	PublicRepos  int          `json:"public_repos"`
	Followers    int          `json:"followers"`
	Following    int          `json:"following"`
	TopLanguages []string     `json:"top_languages"`
	TopRepos     []GitHubRepo `json:"top_repos"`
}

// Social platforms and candidate sources.
const (
	PlatformInstagram = "instagram"
	PlatformX         = "x"
	PlatformMedium    = "medium"
	PlatformWebsite   = "website"

	CandidateDiscovered = "discovered"
	CandidateUser       = "user"
)

type SocialCandidate struct {
	Platform   string  `json:"platform"`
	URL        string  `json:"url"`
	Title      string  `json:"title,omitempty"`
	Snippet    string  `json:"snippet,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// AnalyzeResult is the dossier returned by the analyze pipeline.
type AnalyzeResult struct {
	InputEmail        string            `json:"input_email"`
	PersonNameGuess   string            `json:"person_name_guess"`
	CompanyDomain     string            `json:"company_domain"`
	Confidence        Confidence        `json:"confidence"`
	CompanyConfidence *Confidence       `json:"company_confidence,omitempty"`
	PersonConfidence  *Confidence       `json:"person_confidence,omitempty"`
	OneMinuteBrief    string            `json:"one_minute_brief"`
	QuestionsToAsk    []string          `json:"questions_to_ask"`
	EmailOpeners      EmailOpeners      `json:"email_openers"`
	RedFlags          []string          `json:"red_flags"`
	CompanyProfile    *CompanyProfile   `json:"company_profile,omitempty"`
	StudyOfPerson     StudyOfPerson     `json:"study_of_person"`
	Recommendations   Recommendations   `json:"recommendations"`
	Evidence          []EvidenceItem    `json:"evidence"`
	GitHubProfile     *GitHubProfile    `json:"github_profile,omitempty"`
	SocialCandidates  []SocialCandidate `json:"social_candidates"`
	SocialSelected    []SocialCandidate `json:"social_selected"`
}

// FillDefaults replaces nil slices with empty ones and empty placeholder
// strings with Unknown so the serialized dossier never carries null.
func (r *AnalyzeResult) FillDefaults() {
	orUnknown := func(s *string) {
		if *s == "" {
			*s = Unknown
		}
	}
	orEmpty := func(s *[]string) {
		if *s == nil {
			*s = []string{}
		}
	}

	orUnknown(&r.PersonNameGuess)
	orUnknown(&r.CompanyDomain)
	orUnknown(&r.OneMinuteBrief)
	orUnknown(&r.EmailOpeners.Formal)
	orUnknown(&r.EmailOpeners.Warm)
	orUnknown(&r.EmailOpeners.Technical)
	orUnknown(&r.StudyOfPerson.LikelyRoleFocus)
	orUnknown(&r.StudyOfPerson.Domain)
	orUnknown(&r.StudyOfPerson.CommunicationStyle)
	orUnknown(&r.Recommendations.Dress)
	orUnknown(&r.Recommendations.Tone)

	orEmpty(&r.QuestionsToAsk)
	orEmpty(&r.RedFlags)
	orEmpty(&r.Recommendations.Dos)
	orEmpty(&r.Recommendations.Donts)
	orEmpty(&r.Recommendations.ConnectingPoints)
	orEmpty(&r.Recommendations.SuggestedAgenda)

	if r.CompanyProfile != nil {
		orUnknown(&r.CompanyProfile.Summary)
		orEmpty(&r.CompanyProfile.LikelyProductsServices)
		orEmpty(&r.CompanyProfile.HiringSignals)
		orEmpty(&r.CompanyProfile.RecentPublicMentions)
	}
	if r.GitHubProfile != nil {
		orEmpty(&r.GitHubProfile.TopLanguages)
		if r.GitHubProfile.TopRepos == nil {
			r.GitHubProfile.TopRepos = []GitHubRepo{}
		}
	}
	if r.Evidence == nil {
		r.Evidence = []EvidenceItem{}
	}
	if r.SocialCandidates == nil {
		r.SocialCandidates = []SocialCandidate{}
	}
	if r.SocialSelected == nil {
		r.SocialSelected = []SocialCandidate{}
	}
}
