package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type configUpdateForm struct {
	EnableOpenAIAPI *bool `json:"enable_openai_api"`
}

type urlsUpdateForm struct {
	URLs []string `json:"urls" binding:"required"`
}

type keysUpdateForm struct {
	Keys []string `json:"keys" binding:"required"`
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ENABLE_OPENAI_API": s.backends.Enabled()})
}

func (s *Server) updateConfig(c *gin.Context) {
	var form configUpdateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		respondWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "invalid request body")
		return
	}

	// A missing flag disables the API.
	enabled := form.EnableOpenAIAPI != nil && *form.EnableOpenAIAPI
	s.backends.SetEnabled(enabled)
	s.config.Logger.Info("OpenAI API enabled=%v", enabled)
	s.applyBackendChange(c)

	c.JSON(http.StatusOK, gin.H{"ENABLE_OPENAI_API": s.backends.Enabled()})
}

func (s *Server) getURLs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"OPENAI_API_BASE_URLS": s.backends.URLs()})
}

func (s *Server) updateURLs(c *gin.Context) {
	var form urlsUpdateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		respondWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "invalid request body")
		return
	}

	urls := s.backends.SetURLs(form.URLs)
	s.config.Logger.Info("Backend URLs updated: %d backends", len(urls))
	s.applyBackendChange(c)

	c.JSON(http.StatusOK, gin.H{"OPENAI_API_BASE_URLS": urls})
}

func (s *Server) getKeys(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"OPENAI_API_KEYS": s.backends.Keys()})
}

func (s *Server) updateKeys(c *gin.Context) {
	var form keysUpdateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		respondWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "invalid request body")
		return
	}

	keys := s.backends.SetKeys(form.Keys)
	s.config.Logger.Info("Backend keys updated: %d keys", len(keys))
	s.applyBackendChange(c)

	c.JSON(http.StatusOK, gin.H{"OPENAI_API_KEYS": keys})
}

// applyBackendChange persists the runtime settings, re-reads the model
// configs and rebuilds the catalog so no lookup resolves against the previous
// backend list.
func (s *Server) applyBackendChange(c *gin.Context) {
	if err := s.config.Storage.SaveSettings(s.backends.Settings()); err != nil {
		s.config.Logger.Warn("Failed to persist settings: %v", err)
	}
	if err := s.modelConfigs.Reload(); err != nil {
		s.config.Logger.Warn("Failed to reload model configs: %v", err)
	}
	catalog := s.registry.Reload(c.Request.Context())
	s.config.Logger.Info("Model catalog reloaded: %d models", catalog.Len())
}
