package server

import (
	"net/http"

	"openaigateway/internal/auth"
	"openaigateway/internal/core"

	"github.com/gin-gonic/gin"
)

func (s *Server) listModels(c *gin.Context) {
	idx, err := backendIndexParam(c)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, errTypeInvalidRequest, err.Error())
		return
	}
	if idx != nil {
		s.listBackendModels(c, *idx)
		return
	}

	catalog := s.registry.ListMergedCatalog(c.Request.Context())
	data := catalog.Data

	identity := auth.IdentityFrom(c)
	if s.config.EnableModelFilter && identity != nil && identity.Role == core.RoleUser {
		filtered := make([]core.ModelRecord, 0, len(data))
		for _, record := range data {
			if s.modelFilter[record.ID] {
				filtered = append(filtered, record)
			}
		}
		data = filtered
	}

	c.JSON(http.StatusOK, core.ModelList{Object: core.ModelListObjectType, Data: data})
}

func (s *Server) listBackendModels(c *gin.Context, idx int) {
	models, err := s.registry.ListBackendModels(c.Request.Context(), idx)
	if err != nil {
		s.config.Logger.Warn("Listing models of backend %d failed: %v", idx, err)
		respondWithGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, models)
}
