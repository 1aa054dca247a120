package handler

import (
	"net/http"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type AuditoriaHandler struct{ svc service.AuditoriaService }

func NewAuditoriaHandler(svc service.AuditoriaService) *AuditoriaHandler {
	return &AuditoriaHandler{svc: svc}
}

// Listar godoc
// @Summary Consulta el registro de auditoria (administrador nivel 3)
// @Tags auditoria
// @Produce json
// @Security BearerAuth
// @Param entidad_tipo query string false "Tipo de entidad"
// @Param entidad_id query string false "Entidad"
// @Param usuario_id query string false "Usuario"
// @Param accion query string false "Accion"
// @Success 200 {object} dto.AuditoriaListResponse
// @Router /v1/auditoria [get]
func (h *AuditoriaHandler) Listar(c *gin.Context) {
	var filter dto.AuditoriaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), actor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
