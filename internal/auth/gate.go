package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/account/repo"
)

// Gate resolves the bearer token of a request to an active account.
//
// Authentication failures (no token, undecodable token, unknown subject)
// all produce the same 401 so a caller cannot tell which check failed.
// An inactive account gets a distinct 400: that caller already proved
// possession of a valid token.
type Gate struct {
	codec   *TokenCodec
	dir     AccountDirectory
	clock   clockwork.Clock
	logger  *zap.SugaredLogger
	metrics *Metrics
}

func NewGate(codec *TokenCodec, dir AccountDirectory, clock clockwork.Clock, logger *zap.SugaredLogger, metrics *Metrics) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gate{codec: codec, dir: dir, clock: clock, logger: logger, metrics: metrics}
}

// Authenticate runs the gate against r. Errors wrap ErrUnauthenticated
// (with the internal kind) or are ErrInactiveAccount; anything else is a
// store failure.
func (g *Gate) Authenticate(r *http.Request) (*entity.Account, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, unauthenticated(ErrMissingToken)
	}
	claims, err := g.codec.Decode(token, g.clock.Now())
	if err != nil {
		return nil, unauthenticated(err)
	}
	acc, err := g.dir.GetByID(r.Context(), claims.SubjectID())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, unauthenticated(ErrSubjectNotFound)
		}
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	if !acc.IsActive {
		return nil, ErrInactiveAccount
	}
	return acc, nil
}

// Require wraps next so it only runs with an authenticated principal in
// the request context.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, err := g.Authenticate(r)
		switch {
		case err == nil:
			g.metrics.gate("ok")
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), acc)))
		case errors.Is(err, ErrUnauthenticated):
			kind := failureKind(err)
			g.logger.Debugw("request rejected", "reason", kind, "path", r.URL.Path)
			g.metrics.gate(kind)
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		case errors.Is(err, ErrInactiveAccount):
			g.logger.Infow("inactive account rejected", "path", r.URL.Path)
			g.metrics.gate("inactive")
			writeDetail(w, http.StatusBadRequest, "Inactive user")
		default:
			g.logger.Errorw("authentication failed", "err", err)
			g.metrics.gate("error")
			writeDetail(w, http.StatusInternalServerError, "internal server error")
		}
	})
}

// RequireFunc is Require for handler funcs, convenient with http.ServeMux.HandleFunc.
func (g *Gate) RequireFunc(next http.HandlerFunc) http.HandlerFunc {
	return g.Require(next).ServeHTTP
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
