package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "meeting-intel/internal/common/errors"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Detail  string `json:"detail"`
	Code    string `json:"code"`
	ErrorID string `json:"error_id,omitempty"`
}

// failureTexts holds the user-facing wording for one operation. An empty
// unavailable text sends provider outages to the generic 500.
type failureTexts struct {
	operation     string
	rateLimited   string
	unavailable   string
	notConfigured string
	failed        string
	tagErrorID    bool
}

const notConfiguredHint = "Mr Assistant needs an AI key configured on the backend. " +
	"Set GEMINI_API_KEY in the backend environment and restart the server."

var (
	analyzeTexts = failureTexts{
		operation:   "analyze",
		rateLimited: "The AI generation quota/rate-limit was reached. Please wait briefly and retry.",
		failed:      "Analyze failed",
	}
	bootstrapTexts = failureTexts{
		operation:     "assistant.bootstrap",
		rateLimited:   "Mr Assistant hit an AI quota/rate-limit. Please wait briefly and retry.",
		unavailable:   "Mr Assistant is temporarily busy generating results. Please retry in a few seconds (or proceed with Analysis only).",
		notConfigured: notConfiguredHint,
		failed:        "Assistant bootstrap failed",
		tagErrorID:    true,
	}
	chatTexts = failureTexts{
		operation:     "assistant.chat",
		rateLimited:   "Mr Assistant hit an AI quota/rate-limit. Please wait briefly and retry.",
		unavailable:   "Mr Assistant is temporarily busy generating results. Please retry in a few seconds.",
		notConfigured: notConfiguredHint,
		failed:        "Assistant chat failed",
		tagErrorID:    true,
	}
)

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{
		Detail: "Invalid request body: " + err.Error(),
		Code:   string(apperrors.ErrCodeInvalidRequest),
	})
}

// fail maps err to a status and user-facing detail. Internal error text
// never reaches the response; server faults carry only the error id.
func (s *Server) fail(c *gin.Context, texts failureTexts, err error) {
	handled := s.errs.Handle(texts.operation, err)
	stdErr := handled.Err

	var (
		status int
		detail string
	)
	switch {
	case stdErr.Code == apperrors.ErrCodeInvalidIdentity || stdErr.Code == apperrors.ErrCodeUnknownSession:
		status, detail = http.StatusBadRequest, stdErr.Message

	case stdErr.Code == apperrors.ErrCodeProviderNotConfigured && texts.notConfigured != "":
		status, detail = http.StatusBadRequest, texts.withID(texts.notConfigured, handled.ErrorID)

	case stdErr.Code == apperrors.ErrCodeProviderRateLimited:
		status = http.StatusTooManyRequests
		detail = texts.rateLimited
		if stdErr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(stdErr.RetryAfter))
			detail += fmt.Sprintf(" (retry_after=%ds)", stdErr.RetryAfter)
		}
		detail = texts.withID(detail, handled.ErrorID)

	case stdErr.Code == apperrors.ErrCodeProviderUnavailable && texts.unavailable != "":
		status, detail = http.StatusServiceUnavailable, texts.withID(texts.unavailable, handled.ErrorID)

	default:
		status = http.StatusInternalServerError
		detail = fmt.Sprintf("%s (error_id=%s)", texts.failed, handled.ErrorID)
	}

	c.JSON(status, errorBody{
		Detail:  detail,
		Code:    string(stdErr.Code),
		ErrorID: handled.ErrorID,
	})
}

func (t failureTexts) withID(detail, errorID string) string {
	if !t.tagErrorID || errorID == "" {
		return detail
	}
	return fmt.Sprintf("%s (error_id=%s)", detail, errorID)
}
