package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/auth"
)

const contextTokenKey = "principalToken"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Kind         string `json:"kind,omitempty"` // -> STUDENT or TEACHER PORTAL
	Name         string `json:"name,omitempty"`
}

func (c Claims) Principal() core.Principal {
	return core.Principal{ID: c.Subject, Kind: c.Kind, Name: c.Name}
}

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func NewClaims(conf *core.Config, p core.Principal, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   p.ID,
			Audience:  "Pondok",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Kind:         p.Kind,
		Name:         p.Name,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	jc := jwtConfig(conf)
	token := jwt.NewWithClaims(jwt.GetSigningMethod(jc.SigningMethod), claims)

	ss, err := token.SignedString(jc.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextPrincipal(ctx echo.Context) (core.Principal, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Principal{}, err
	}
	return claims.Principal(), nil
}

type authAPI struct {
	conf *core.Config
	svc  *auth.Service
	deps ServerDeps
}

func registerAuthAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := authAPI{conf: deps.Conf, svc: deps.Auth, deps: deps}

	g := v1.Group("/auth")
	g.POST("/token", api.login)
	g.POST("/token/refresh", api.refresh, jwt)
	v1.GET("/me", api.me, jwt)
}

type (
	loginInput struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	tokenResponse struct {
		Token     string         `json:"token"`
		Principal core.Principal `json:"principal"`
	}
)

func (api authAPI) login(ctx echo.Context) error {
	var in loginInput
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	if err := api.deps.Validate.Struct(in); err != nil {
		return err
	}

	p, err := api.svc.Authenticate(ctx.Request().Context(), in.Username, in.Password)
	if err != nil {
		if errors.Cause(err) == auth.ErrInvalidCredentials {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := GenerateToken(api.conf, NewClaims(api.conf, p))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, tokenResponse{Token: token, Principal: p})
}

func (api authAPI) refresh(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	// check if the account may still log in
	p, err := api.svc.Refresh(ctx.Request().Context(), claims.Principal())
	if err != nil {
		if errors.Cause(err) == auth.ErrInvalidCredentials {
			return errAccountDeactivated
		}
		return errors.Wrap(err, "refreshing principal")
	}

	token, err := GenerateToken(api.conf, NewClaims(api.conf, p, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, tokenResponse{Token: token, Principal: p})
}

func (api authAPI) me(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	resp := echo.Map{"principal": p}
	c := ctx.Request().Context()
	switch {
	case p.IsStudent():
		prof, err := api.deps.Profiles.Get(c, p.ID)
		if err != nil {
			return errors.Wrap(err, "getting profile")
		}
		resp["student"] = prof
	case p.IsTeacher():
		t, err := api.deps.Teachers.Get(c, p.ID)
		if err != nil {
			return errors.Wrap(err, "getting teacher")
		}
		resp["teacher"] = t
	}
	return ctx.JSON(http.StatusOK, resp)
}
