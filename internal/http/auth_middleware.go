package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/FolkodeGroup/mediapp/internal/service/auth"
	jwtpkg "github.com/FolkodeGroup/mediapp/pkg/jwt"
)

var (
	errNoAuthorization = errors.New("missing authorization header")
	errMalformedBearer = errors.New("authorization header is not a bearer token")
)

type ctxKey int

const (
	ctxKeyAuth ctxKey = iota
	ctxKeyRequestID
)

// authInfo is the caller identity attached to authenticated requests.
type authInfo struct {
	UserID   string
	Username string
	Role     string
	Claims   *jwtpkg.Claims
}

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth runs next only for requests carrying a valid access token. The
// identity is also pushed to the audit recorder so the log line names the actor.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		info, err := r.authenticate(req)
		if err != nil {
			status, msg := authFailure(err)
			r.logger.Warn("request rejected", "path", req.URL.Path, "status", status, "error", err)
			writeError(w, status, msg)
			return
		}
		ctx := context.WithValue(req.Context(), ctxKeyAuth, info)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

func (r *Router) authenticate(req *http.Request) (authInfo, error) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		return authInfo{}, err
	}
	user, claims, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		return authInfo{}, err
	}
	return authInfo{UserID: user.ID, Username: user.Username, Role: claims.Role, Claims: claims}, nil
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, errNoAuthorization), errors.Is(err, errMalformedBearer):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, auth.ErrAccountLocked):
		return http.StatusForbidden, "account disabled"
	default:
		return http.StatusUnauthorized, "invalid or expired token"
	}
}

func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(ctxKeyAuth).(authInfo)
	return info, ok
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errNoAuthorization
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.ContainsAny(token, " \t") {
		return "", errMalformedBearer
	}
	return token, nil
}
