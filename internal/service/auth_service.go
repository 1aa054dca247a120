package service

import (
	"context"
	"errors"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/auth"
	"github.com/TabareCasalas/SiGeST-sub000/internal/config"
	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrCredencialesInvalidas = errors.New("credenciales invalidas")
	ErrTokenInvalido         = errors.New("refresh token invalido o expirado")
)

// RefreshTokenStore keeps track of issued refresh tokens by jti.
type RefreshTokenStore interface {
	Guardar(ctx context.Context, jti string, usuarioID uuid.UUID, ttl time.Duration) error
	// Consumir removes jti; ok is false if it was unknown, expired or already used.
	Consumir(ctx context.Context, jti string) (uuid.UUID, bool, error)
	Revocar(ctx context.Context, jti string) error
}

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, usuarioID uuid.UUID) (*dto.UsuarioResponse, error)
	CambiarRolActivo(ctx context.Context, actor Actor, req dto.CambiarRolActivoRequest) (*dto.LoginResponse, error)
}

type authService struct {
	repo     repository.UsuarioRepository
	tokens   RefreshTokenStore
	registro *Registro
	cfg      *config.Config
}

func NewAuthService(repo repository.UsuarioRepository, tokens RefreshTokenStore, registro *Registro, cfg *config.Config) AuthService {
	return &authService{repo: repo, tokens: tokens, registro: registro, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if domainerr.KindOf(err) == domainerr.KindNoEncontrado {
			return nil, ErrCredencialesInvalidas
		}
		return nil, err
	}
	if !user.Activo {
		return nil, ErrCredencialesInvalidas
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrCredencialesInvalidas
	}
	return s.emitir(ctx, user)
}

// Refresh rotates a refresh token: the presented one is consumed and a new pair issued.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims, err := auth.ParseToken(s.cfg.JWTSecret, refreshToken)
	if err != nil || claims.TokenType != auth.TokenRefresh || claims.ID == "" {
		return nil, ErrTokenInvalido
	}
	owner, ok, err := s.tokens.Consumir(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !ok || owner != claims.UsuarioID() {
		return nil, ErrTokenInvalido
	}
	user, err := s.repo.FindByID(ctx, owner)
	if err != nil || !user.Activo {
		return nil, ErrTokenInvalido
	}
	return s.emitir(ctx, user)
}

// Logout revokes the refresh token. Unparseable tokens are ignored.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := auth.ParseToken(s.cfg.JWTSecret, refreshToken)
	if err != nil || claims.ID == "" {
		return nil
	}
	return s.tokens.Revocar(ctx, claims.ID)
}

func (s *authService) Me(ctx context.Context, usuarioID uuid.UUID) (*dto.UsuarioResponse, error) {
	user, err := s.repo.FindByID(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	resp := usuarioToResponse(user)
	return &resp, nil
}

// CambiarRolActivo switches the role the user acts as and returns tokens that
// carry it. An empty rol clears the override.
func (s *authService) CambiarRolActivo(ctx context.Context, actor Actor, req dto.CambiarRolActivoRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByID(ctx, actor.UsuarioID)
	if err != nil {
		return nil, err
	}
	var nuevo *model.Rol
	if req.Rol != "" {
		r := model.Rol(req.Rol)
		if !user.Perfil().TieneRol(r) {
			return nil, domainerr.NoAutorizado("el rol %s no esta disponible para el usuario", r)
		}
		nuevo = &r
	}
	if err := s.repo.SetRolActivo(ctx, user.ID, nuevo); err != nil {
		return nil, err
	}
	user.RolActivo = nuevo

	s.registro.Registrar(ctx, actor, model.EntidadUsuario, user.ID, "cambiar_rol_activo", "Rol activo: "+string(user.Perfil().RolEfectivo()),
		map[string]any{"rol_activo": nuevo})
	return s.emitir(ctx, user)
}

func (s *authService) emitir(ctx context.Context, user *model.Usuario) (*dto.LoginResponse, error) {
	accessTTL := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	refreshTTL := time.Duration(s.cfg.JWTRefreshHours) * time.Hour

	accessToken, err := s.generateToken(user, auth.TokenAccess, "", accessTTL)
	if err != nil {
		return nil, err
	}
	jti := uuid.NewString()
	refreshToken, err := s.generateToken(user, auth.TokenRefresh, jti, refreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Guardar(ctx, jti, user.ID, refreshTTL); err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         usuarioToResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.Usuario, tokenType, jti string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := auth.JWTClaims{
		UserID:      user.ID.String(),
		Email:       user.Email,
		Nombre:      user.Nombre,
		Rol:         string(user.Rol),
		NivelAcceso: user.NivelAcceso,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if user.RolActivo != nil && *user.RolActivo != "" {
		r := string(*user.RolActivo)
		claims.RolActivo = &r
	}
	for _, rs := range user.RolesSecundarios {
		claims.RolesSecundarios = append(claims.RolesSecundarios, model.GrantRol{Rol: rs.Rol, NivelAcceso: rs.NivelAcceso})
	}
	return auth.Firmar(s.cfg.JWTSecret, claims)
}
