package handler

import (
	"net/http"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type GruposHandler struct{ svc service.GrupoService }

func NewGruposHandler(svc service.GrupoService) *GruposHandler {
	return &GruposHandler{svc: svc}
}

// Crear godoc
// @Summary Crea un grupo de trabajo
// @Tags grupos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearGrupoRequest true "Grupo"
// @Success 201 {object} dto.GrupoResponse
// @Failure 409 {object} apierror.APIError "invariante con involucrados"
// @Router /v1/grupos [post]
func (h *GruposHandler) Crear(c *gin.Context) {
	var req dto.CrearGrupoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *GruposHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GruposHandler) ObtenerPorID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GruposHandler) Actualizar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarGrupoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AsignarRolMiembro godoc
// @Summary Agrega un miembro o cambia su rol en el grupo
// @Tags grupos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grupo ID"
// @Param usuarioId path string true "Usuario ID"
// @Param body body dto.AsignarRolMiembroRequest true "Rol"
// @Success 200 {object} dto.GrupoResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/grupos/{id}/miembros/{usuarioId} [put]
func (h *GruposHandler) AsignarRolMiembro(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	usuarioID, ok := paramID(c, "usuarioId")
	if !ok {
		return
	}
	var req dto.AsignarRolMiembroRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AsignarRolMiembro(c.Request.Context(), actor(c), id, usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GruposHandler) QuitarMiembro(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	usuarioID, ok := paramID(c, "usuarioId")
	if !ok {
		return
	}
	resp, err := h.svc.QuitarMiembro(c.Request.Context(), actor(c), id, usuarioID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Eliminar godoc
// @Summary Elimina un grupo sin tramites
// @Tags grupos
// @Security BearerAuth
// @Param id path string true "Grupo ID"
// @Success 204
// @Failure 409 {object} apierror.APIError
// @Router /v1/grupos/{id} [delete]
func (h *GruposHandler) Eliminar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
