// internal/models/request.go
package models

import "strings"

type PersonName struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

// AnalyzeRequest identifies the subject by email, or by name plus company
// when email is empty.
type AnalyzeRequest struct {
	Email          string      `json:"email"`
	Name           *PersonName `json:"name,omitempty"`
	Company        string      `json:"company,omitempty"`
	LinkedInURL    string      `json:"linkedin_url,omitempty"`
	GitHubUsername string      `json:"github_username,omitempty"`
	InstagramURL   string      `json:"instagram_url,omitempty"`
	XURL           string      `json:"x_url,omitempty"`
	MediumURL      string      `json:"medium_url,omitempty"`
	OtherURLs      []string    `json:"other_urls,omitempty"`
	AllowDiscovery *bool       `json:"allow_discovery,omitempty"`
}

// DiscoveryAllowed defaults to true when the flag is absent.
func (r AnalyzeRequest) DiscoveryAllowed() bool {
	return r.AllowDiscovery == nil || *r.AllowDiscovery
}

// HasNameAndCompany reports whether the name+company identity mode is usable.
func (r AnalyzeRequest) HasNameAndCompany() bool {
	return r.Name != nil &&
		strings.TrimSpace(r.Name.First) != "" &&
		strings.TrimSpace(r.Name.Last) != "" &&
		strings.TrimSpace(r.Company) != ""
}

// SelectedProfile is a user-supplied social URL tagged with its platform.
type SelectedProfile struct {
	Platform string
	URL      string
}

// SelectedProfiles lists user-supplied social URLs in request order.
func (r AnalyzeRequest) SelectedProfiles() []SelectedProfile {
	var out []SelectedProfile
	add := func(platform, url string) {
		if url = strings.TrimSpace(url); url != "" {
			out = append(out, SelectedProfile{Platform: platform, URL: url})
		}
	}
	add(PlatformInstagram, r.InstagramURL)
	add(PlatformX, r.XURL)
	add(PlatformMedium, r.MediumURL)
	for _, u := range r.OtherURLs {
		add(PlatformWebsite, u)
	}
	return out
}
