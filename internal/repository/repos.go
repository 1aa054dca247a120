package repository

import "gorm.io/gorm"

// Repos bundles every repository the services depend on.
type Repos struct {
	Tx             Transactor
	Usuarios       UsuarioRepository
	Grupos         GrupoRepository
	Fichas         FichaRepository
	Tramites       TramiteRepository
	HojaRuta       HojaRutaRepository
	Documentos     DocumentoRepository
	Secuencias     SecuenciaRepository
	Notificaciones NotificacionRepository
	Auditoria      AuditoriaRepository
}

// NewGormRepos builds the PostgreSQL-backed repositories over db.
func NewGormRepos(db *gorm.DB) Repos {
	return Repos{
		Tx:             NewTransactor(db),
		Usuarios:       NewUsuarioRepository(db),
		Grupos:         NewGrupoRepository(db),
		Fichas:         NewFichaRepository(db),
		Tramites:       NewTramiteRepository(db),
		HojaRuta:       NewHojaRutaRepository(db),
		Documentos:     NewDocumentoRepository(db),
		Secuencias:     NewSecuenciaRepository(db),
		Notificaciones: NewNotificacionRepository(db),
		Auditoria:      NewAuditoriaRepository(db),
	}
}
