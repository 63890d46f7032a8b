package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/search"
)

type stubSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func TestParseEmail(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		wantValid bool
		wantFirst string
		wantLast  string
	}{
		{"dotted corporate", "jane.doe@example.com", true, "Jane", "Doe"},
		{"underscore", "JANE_DOE@acme.io", true, "Jane", "Doe"},
		{"hyphen", "mary-ann@acme.io", true, "Mary", "Ann"},
		{"single token", "jane@acme.io", true, "", ""},
		{"surrounding space", "  jane.doe@acme.io ", true, "Jane", "Doe"},
		{"free provider", "jane.doe@gmail.com", false, "", ""},
		{"free provider upper", "jane.doe@GMAIL.COM", false, "", ""},
		{"no tld", "jane@acme", false, "", ""},
		{"no at", "jane.acme.com", false, "", ""},
		{"inner space", "jane doe@acme.com", false, "", ""},
		{"empty", "", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ParseEmail(tt.email)
			assert.Equal(t, tt.wantValid, id.Valid)
			assert.Equal(t, tt.wantFirst, id.FirstName)
			assert.Equal(t, tt.wantLast, id.LastName)
		})
	}
}

func TestIdentity_Helpers(t *testing.T) {
	id := ParseEmail(" Jane.Doe@Example.com ")
	assert.Equal(t, "jane.doe@example.com", id.CacheKey())
	assert.Equal(t, "Jane Doe", id.NameGuess())
	assert.Equal(t, "Example", id.CompanyHint())

	assert.Equal(t, "", ParseEmail("ops@acme.io").NameGuess())
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Jane", titleCase("jANE"))
	assert.Equal(t, "Mary2X", titleCase("mary2x"))
}

func TestIsLikelyDomain(t *testing.T) {
	assert.True(t, IsLikelyDomain("openai.com"))
	assert.True(t, IsLikelyDomain("example.co.uk"))
	assert.False(t, IsLikelyDomain("OpenAI"))
	assert.False(t, IsLikelyDomain("Acme Corp."))
	assert.False(t, IsLikelyDomain("a.b.c.d.e"))
}

func TestNormalizeAndGuess(t *testing.T) {
	assert.Equal(t, "acme", NormalizeCompanyName("Acme Corp"))
	assert.Equal(t, "microsoft", NormalizeCompanyName("Microsoft Corporation"))
	assert.Equal(t, "acme widgets", NormalizeCompanyName(" Acme Widgets Inc. "))

	assert.Equal(t, "openai.com", GuessDomain("OpenAI"))
	assert.Equal(t, "acme.com", GuessDomain("Acme Widgets LLC"))
}

func TestDomainFromURL(t *testing.T) {
	assert.Equal(t, "openai.com", DomainFromURL("https://www.openai.com/about"))
	assert.Equal(t, "example.co.uk", DomainFromURL("http://example.co.uk/"))
}

func TestResolver_ResolveDomain(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		s := &stubSearcher{}
		r := NewResolver(s, logger.NewTestLogger(t))
		res := r.ResolveDomain(context.Background(), "Acme.IO")
		assert.Equal(t, DomainResolution{Domain: "acme.io", Method: MethodDirect, Confidence: "high"}, res)
		assert.Empty(t, s.queries)
	})

	t.Run("search match", func(t *testing.T) {
		s := &stubSearcher{results: []search.Result{
			{URL: "https://en.wikipedia.org/wiki/Acme"},
			{URL: "https://www.acme.com/"},
		}}
		r := NewResolver(s, logger.NewTestLogger(t))
		res := r.ResolveDomain(context.Background(), "Acme Inc")
		assert.Equal(t, "acme.com", res.Domain)
		assert.Equal(t, MethodSearch, res.Method)
		assert.Equal(t, []string{`"Acme Inc" official website`}, s.queries)
	})

	t.Run("search error falls back to guess", func(t *testing.T) {
		s := &stubSearcher{err: errors.New("blocked")}
		r := NewResolver(s, logger.NewTestLogger(t))
		res := r.ResolveDomain(context.Background(), "Globex Corporation")
		assert.Equal(t, DomainResolution{Domain: "globex.com", Method: MethodGuess, Confidence: "low"}, res)
	})
}

func TestResolver_FromNameAndCompany(t *testing.T) {
	r := NewResolver(&stubSearcher{}, logger.NewTestLogger(t))
	id, res := r.FromNameAndCompany(context.Background(), "Jane", "Doe", "acme.com")

	assert.Equal(t, MethodDirect, res.Method)
	assert.True(t, id.Valid)
	assert.Equal(t, "jane.doe@acme.com", id.Raw)
	assert.Equal(t, "Jane Doe", id.NameGuess())
	assert.Equal(t, "acme.com", id.Domain)
}
