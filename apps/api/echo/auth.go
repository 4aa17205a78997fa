package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

var (
	contextUserKey   = "user"
	contextClaimsKey = "claims"
)

// Claims represents the authorization claims transmitted via a JWT.
// There is no role in here: the Profile is resolved from the store on every request.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64 `json:"oriat,omitempty"`
}

// TokenIssuer signs and verifies the HS256 access tokens.
type TokenIssuer struct {
	key        []byte
	issuer     string
	ttl        time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(conf *core.Config) *TokenIssuer {
	return &TokenIssuer{
		key:        []byte(conf.SecretKey),
		issuer:     conf.AppName,
		ttl:        conf.Server.JWTExpirationDelta,
		refreshTTL: conf.Server.JWTRefreshExpirationDelta,
	}
}

// Claims returns fresh claims for `acc`. origIat carries the first issue time over refreshes.
func (ti *TokenIssuer) Claims(acc user.Account, origIat ...int64) *Claims {
	now := time.Now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   acc.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (ti *TokenIssuer) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Issue is Claims + GenerateToken.
func (ti *TokenIssuer) Issue(acc user.Account) (string, error) {
	return ti.GenerateToken(ti.Claims(acc))
}

// Parse verifies signature, algorithm, issuer and expiry.
func (ti *TokenIssuer) Parse(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return ti.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(core.ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return nil, errors.Wrap(core.ErrInvalidToken, "token has no subject")
	}
	return claims, nil
}

// Refresh issues a new token for the same session, as long as the refresh window is open.
func (ti *TokenIssuer) Refresh(claims *Claims, acc user.Account) (string, error) {
	deadline := time.Unix(claims.OrigIssuedAt, 0).Add(ti.refreshTTL)
	if claims.OrigIssuedAt == 0 || time.Now().After(deadline) {
		return "", errRefreshExpired
	}
	return ti.GenerateToken(ti.Claims(acc, claims.OrigIssuedAt))
}

func bearerToken(ctx echo.Context) (string, error) {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// authMiddleware resolves the bearer token into the requesting user. It runs before any role check.
func authMiddleware(tokens *TokenIssuer, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			raw, err := bearerToken(ctx)
			if err != nil {
				return err
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				return err
			}
			usr, err := svc.Resolve(ctx.Request().Context(), claims.Subject)
			if err != nil {
				return errors.Wrap(err, "resolving token subject")
			}
			ctx.Set(contextClaimsKey, claims)
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func contextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errNoUserInContext
}

func contextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errNoUserInContext
}

// guard is the role guard of `ep`.
func (s *Server) guard(ep access.Endpoint) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := contextUser(ctx)
			if err != nil {
				return err
			}
			if err := s.authz.Authorize(ep, usr.Profile); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
