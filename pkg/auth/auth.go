package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "bookloans/pkg/errors"
	httputil "bookloans/pkg/http"
	"bookloans/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID  int64
	Email   string
	IsStaff bool
}

// Claims are issued by the identity service. The subject holds the integer
// user id.
type Claims struct {
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Verifier checks HS256 bearer tokens. It never issues them.
type Verifier struct {
	secret []byte
	log    *logger.Logger
}

func NewVerifier(secret string, log *logger.Logger) *Verifier {
	return &Verifier{secret: []byte(secret), log: log}
}

func (v *Verifier) Verify(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Principal{}, fmt.Errorf("%w: subject must be a positive integer user id", ErrInvalidToken)
	}

	return Principal{
		UserID:  userID,
		Email:   claims.Email,
		IsStaff: claims.IsStaff,
	}, nil
}

func (v *Verifier) authenticate(r *http.Request) (Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Principal{}, ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return Principal{}, ErrMissingToken
	}

	return v.Verify(strings.TrimSpace(token))
}

// Require rejects requests without a valid token with 401.
func (v *Verifier) Require(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		principal, err := v.authenticate(r)
		if err != nil {
			v.reject(w, r, apperrors.Unauthorized("Authentication credentials were not provided or are invalid."), err)
			return
		}
		next(w, r.WithContext(WithPrincipal(r.Context(), principal)), ps)
	}
}

// RequireStaff is Require plus a 403 for non-staff callers.
func (v *Verifier) RequireStaff(next httprouter.Handle) httprouter.Handle {
	return v.Require(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		principal, _ := PrincipalFromContext(r.Context())
		if !principal.IsStaff {
			v.reject(w, r, apperrors.Forbidden("You do not have permission to perform this action."), nil)
			return
		}
		next(w, r, ps)
	})
}

// Optional attaches a principal when a valid token is present and otherwise
// lets the request through anonymously.
func (v *Verifier) Optional(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if principal, err := v.authenticate(r); err == nil {
			r = r.WithContext(WithPrincipal(r.Context(), principal))
		}
		next(w, r, ps)
	}
}

func (v *Verifier) reject(w http.ResponseWriter, r *http.Request, appErr *apperrors.AppError, cause error) {
	v.log.Debug("request rejected by auth",
		"path", r.URL.Path,
		"method", r.Method,
		"code", appErr.Code,
		"cause", cause,
	)
	if appErr.Code == apperrors.CodeUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="bookloans"`)
	}
	if err := httputil.WriteError(w, appErr); err != nil {
		v.log.Error("failed to write error response", "handler", "auth", "operation", "WriteError", "error", err)
	}
}
