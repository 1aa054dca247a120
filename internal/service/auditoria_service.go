package service

import (
	"context"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"
)

// AuditoriaService queries the audit trail. Records are written through Registro.
type AuditoriaService interface {
	Listar(ctx context.Context, actor Actor, filter dto.AuditoriaFilter) (*dto.AuditoriaListResponse, error)
}

type auditoriaService struct {
	repo repository.AuditoriaRepository
}

func NewAuditoriaService(repo repository.AuditoriaRepository) AuditoriaService {
	return &auditoriaService{repo: repo}
}

func (s *auditoriaService) Listar(ctx context.Context, actor Actor, filter dto.AuditoriaFilter) (*dto.AuditoriaListResponse, error) {
	if err := requireAdminSistema(actor); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.AuditoriaResponse, len(rows))
	for i := range rows {
		data[i] = auditoriaToResponse(&rows[i])
	}
	return &dto.AuditoriaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
