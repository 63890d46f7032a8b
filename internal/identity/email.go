// Package identity turns request input into the normalized identity that
// drives one pipeline run and keys its cache entry.
package identity

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRe        = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	localPartClean = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

var freeDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"icloud.com":     true,
	"proton.me":      true,
	"protonmail.com": true,
}

// Identity is an immutable, parsed subject. Raw is the trimmed input
// email (or synthetic first.last@domain for name+company input).
type Identity struct {
	Raw       string
	Valid     bool
	LocalPart string
	Domain    string
	FirstName string
	LastName  string
}

// CacheKey is the case-insensitive, trimmed identity.
func (id Identity) CacheKey() string {
	return strings.ToLower(strings.TrimSpace(id.Raw))
}

// NameGuess joins the guessed first and last names, or returns "".
func (id Identity) NameGuess() string {
	return strings.TrimSpace(strings.Join(nonEmpty(id.FirstName, id.LastName), " "))
}

// CompanyHint is the first label of the domain.
func (id Identity) CompanyHint() string {
	if id.Domain == "" {
		return ""
	}
	return strings.SplitN(id.Domain, ".", 2)[0]
}

// ParseEmail validates a corporate email. Free-provider domains and
// malformed strings yield Valid=false.
func ParseEmail(email string) Identity {
	email = strings.TrimSpace(email)
	if !emailRe.MatchString(email) {
		return Identity{Raw: email}
	}

	local, domain, _ := strings.Cut(email, "@")
	if freeDomains[strings.ToLower(domain)] {
		return Identity{Raw: email, LocalPart: local, Domain: domain}
	}

	first, last := guessName(local)
	return Identity{
		Raw:       email,
		Valid:     true,
		LocalPart: local,
		Domain:    domain,
		FirstName: first,
		LastName:  last,
	}
}

// guessName reads firstname.lastname style local parts. The first
// separator present with at least two non-empty parts wins.
func guessName(local string) (string, string) {
	cleaned := localPartClean.ReplaceAllString(local, "")
	for _, sep := range []string{".", "_", "-"} {
		if !strings.Contains(cleaned, sep) {
			continue
		}
		parts := nonEmpty(strings.Split(cleaned, sep)...)
		if len(parts) >= 2 {
			return titleCase(parts[0]), titleCase(parts[1])
		}
	}
	return "", ""
}

// titleCase upper-cases a letter that follows a non-letter and lower-cases
// the rest.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
