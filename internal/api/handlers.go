package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meeting-intel/internal/intel"
	"meeting-intel/internal/models"
)

func (s *Server) analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := s.analyzer.ResolveIdentity(c.Request.Context(), req)
	if err != nil {
		s.fail(c, analyzeTexts, err)
		return
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), intel.InputFromRequest(id, req))
	if err != nil {
		s.fail(c, analyzeTexts, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) bootstrap(c *gin.Context) {
	var req models.BootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := s.assistant.Bootstrap(c.Request.Context(), req)
	if err != nil {
		s.fail(c, bootstrapTexts, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := s.assistant.Chat(c.Request.Context(), req)
	if err != nil {
		s.fail(c, chatTexts, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
