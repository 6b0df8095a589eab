package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/staff"
)

const (
	contextTokenKey = "staffToken"
	contextStaffKey = "staff"
	tokenAudience   = "Kanisa"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// authenticator issues and checks staff tokens.
type authenticator struct {
	conf *core.Config
	svc  *staff.Service
}

func newAuthenticator(conf *core.Config, svc *staff.Service) *authenticator {
	return &authenticator{conf: conf, svc: svc}
}

func (a *authenticator) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(a.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewStaffClaims returns the claims of s, valid for the configured JWT expiration delta.
// origIat is the issue time of the first token of the session; it defaults to now.
func NewStaffClaims(conf *core.Config, s staff.Staff, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   s.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     s.Username,
		Email:        s.Email,
		IsAdmin:      s.IsAdmin(),
		Roles:        s.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the staff Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) login(ctx echo.Context, creds staff.LoginCredentials) (string, error) {
	creds.Username = core.CleanString(creds.Username, true /* lower */)
	s, err := a.svc.Authenticate(ctx.Request().Context(), creds)
	if err != nil {
		if errors.Is(err, staff.ErrInvalidCredentials) {
			return "", errAuthenticationFailed
		}
		return "", errors.Wrap(err, "authenticating")
	}
	return GenerateToken(a.conf, NewStaffClaims(a.conf, s))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextStaff loads the authenticated staff once per request.
func (a *authenticator) contextStaff(ctx echo.Context) (staff.Staff, error) {
	if s, ok := ctx.Get(contextStaffKey).(staff.Staff); ok {
		return s, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "getting context claims")
	}

	s, err := a.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			return staff.Staff{}, errUnauthorized
		}
		return staff.Staff{}, errors.Wrap(err, "finding staff by ID")
	}
	if !s.IsActive {
		return staff.Staff{}, errAccountDeactivated
	}
	ctx.Set(contextStaffKey, s)
	return s, nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	s, err := a.contextStaff(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context staff")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(a.conf, NewStaffClaims(a.conf, s, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
