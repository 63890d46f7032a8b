package models

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeResult_FillDefaultsNeverSerializesNull(t *testing.T) {
	r := AnalyzeResult{InputEmail: "jane.doe@example.com"}
	r.FillDefaults()

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	for _, key := range []string{
		"input_email", "person_name_guess", "company_domain", "confidence",
		"one_minute_brief", "questions_to_ask", "email_openers", "red_flags",
		"study_of_person", "recommendations", "evidence", "social_candidates", "social_selected",
	} {
		assert.Contains(t, doc, key)
		assert.NotNil(t, doc[key], key)
	}
	assert.Equal(t, Unknown, doc["one_minute_brief"])
	assert.Equal(t, []interface{}{}, doc["evidence"])
	assert.NotContains(t, doc, "company_profile")

	recs := doc["recommendations"].(map[string]interface{})
	assert.Equal(t, Unknown, recs["dress"])
	assert.Equal(t, []interface{}{}, recs["dos"])
}

func TestAnalyzeRequest_Helpers(t *testing.T) {
	var req AnalyzeRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": {"first": "Jane", "last": "Doe"},
		"company": "Acme",
		"x_url": "https://x.com/jane",
		"other_urls": ["", "https://jane.dev"]
	}`), &req))

	assert.True(t, req.DiscoveryAllowed())
	assert.True(t, req.HasNameAndCompany())
	assert.Equal(t, []SelectedProfile{
		{Platform: PlatformX, URL: "https://x.com/jane"},
		{Platform: PlatformWebsite, URL: "https://jane.dev"},
	}, req.SelectedProfiles())

	off := false
	req.AllowDiscovery = &off
	assert.False(t, req.DiscoveryAllowed())
}

func TestAssistantSession_WithChatTrimsAndCopies(t *testing.T) {
	s := AssistantSession{SessionID: "s1"}
	for i := 0; i < MaxChatHistory+4; i++ {
		s = s.WithChat(ChatTurn{Role: "user", Content: fmt.Sprintf("m%d", i)})
	}
	require.Len(t, s.ChatHistory, MaxChatHistory)
	assert.Equal(t, "m4", s.ChatHistory[0].Content)
	assert.Equal(t, fmt.Sprintf("m%d", MaxChatHistory+3), s.ChatHistory[MaxChatHistory-1].Content)

	next := s.WithChat(ChatTurn{Role: "assistant", Content: "reply"})
	assert.Equal(t, "m4", s.ChatHistory[0].Content, "original must not change")
	assert.Equal(t, "reply", next.ChatHistory[MaxChatHistory-1].Content)
}

func TestAssistantSession_WithSnapshot(t *testing.T) {
	s := AssistantSession{SessionID: "s1", AnalyzeSnapshot: AnalyzeResult{OneMinuteBrief: "old"}}
	next := s.WithSnapshot(AnalyzeResult{OneMinuteBrief: "new"})
	assert.Equal(t, "old", s.AnalyzeSnapshot.OneMinuteBrief)
	assert.Equal(t, "new", next.AnalyzeSnapshot.OneMinuteBrief)
}
