// Package jwt emite y valida los tokens de sesión de la API (HS256).
// El usuario viaja en sub; la empresa y el rol en claims propios.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken envuelve cualquier rechazo: firma, algoritmo, emisor, vigencia o claims faltantes.
var ErrInvalidToken = errors.New("jwt: token inválido")

// Identity quién hace la petición y en nombre de qué empresa.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string // "admin" | "facturador" | "tesorero"; vacío en tokens sin rol
}

// Claims forma del payload firmado.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role,omitempty"`
}

// Manager firma y valida tokens con un secreto compartido.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option ajusta un Manager.
type Option func(*Manager)

// WithClock fija el reloj usado al emitir (iat, exp).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager valida los parámetros y arma el parser: solo HS256, emisor exacto y exp obligatorio.
func NewManager(secret, issuer string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("jwt: secret vacío")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt: duración inválida %s", ttl)
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(issuer))
	}
	m := &Manager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
		parser: jwt.NewParser(parserOpts...),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue firma un token para id con la duración configurada.
func (m *Manager) Issue(id Identity) (string, error) {
	if id.UserID == "" || id.CompanyID == "" {
		return "", errors.New("jwt: user_id y company_id son obligatorios")
	}
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		CompanyID: id.CompanyID,
		Role:      id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse valida tokenString y devuelve la identidad. Todo rechazo cumple errors.Is(err, ErrInvalidToken).
func (m *Manager) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.CompanyID == "" {
		return Identity{}, fmt.Errorf("%w: faltan sub o company_id", ErrInvalidToken)
	}
	return Identity{UserID: claims.Subject, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}
