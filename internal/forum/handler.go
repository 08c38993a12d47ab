package forum

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/auth"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Handler contains dependencies for handling forum endpoints.
type Handler struct {
	svc    *Service
	gate   *auth.Gate
	logger *zap.SugaredLogger
}

// NewHandler constructs a new Handler.
func NewHandler(svc *Service, gate *auth.Gate, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, gate: gate, logger: logger}
}

// RegisterRoutes mounts the forum endpoints on mux. Writes require a bearer token.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /forum/posts", h.gate.RequireFunc(h.CreatePost))
	mux.HandleFunc("GET /forum/posts", h.ListPosts)
	mux.HandleFunc("GET /forum/posts/{id}/replies", h.ListReplies)
	mux.Handle("POST /forum/replies", h.gate.RequireFunc(h.CreateReply))
}

type PostCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r PostCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Content, validation.Required),
	)
}

type ReplyCreateRequest struct {
	Content string `json:"content"`
	PostID  int64  `json:"post_id"`
}

func (r ReplyCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.PostID, validation.Required, validation.Min(int64(1))),
	)
}

// page holds the skip/limit query parameters of the post listing.
type page struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

func (p page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Skip, validation.Min(0)),
		validation.Field(&p.Limit, validation.Required, validation.Min(1), validation.Max(maxLimit)),
	)
}

func parsePage(r *http.Request) (page, error) {
	p := page{Skip: 0, Limit: defaultLimit}
	q := r.URL.Query()
	var err error
	if v := q.Get("skip"); v != "" {
		if p.Skip, err = strconv.Atoi(v); err != nil {
			return p, validation.Errors{"skip": errors.New("must be an integer")}
		}
	}
	if v := q.Get("limit"); v != "" {
		if p.Limit, err = strconv.Atoi(v); err != nil {
			return p, validation.Errors{"limit": errors.New("must be an integer")}
		}
	}
	return p, p.Validate()
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req PostCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid payload")
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err})
		return
	}
	author := auth.PrincipalFrom(r.Context())
	post, err := h.svc.CreatePost(r.Context(), author.ID, req.Title, req.Content)
	if err != nil {
		h.logger.Errorw("create post failed", "author_id", author.ID, "err", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.logger.Infow("post created", "post_id", post.ID, "author_id", author.ID)
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err})
		return
	}
	posts, err := h.svc.ListPosts(r.Context(), p.Skip, p.Limit)
	if err != nil {
		h.logger.Errorw("list posts failed", "err", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) ListReplies(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": validation.Errors{"id": errors.New("must be an integer")}})
		return
	}
	replies, err := h.svc.ListReplies(r.Context(), postID)
	if err != nil {
		h.writeServiceError(w, "list replies failed", err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}

func (h *Handler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var req ReplyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid payload")
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err})
		return
	}
	author := auth.PrincipalFrom(r.Context())
	reply, err := h.svc.CreateReply(r.Context(), author.ID, req.PostID, req.Content)
	if err != nil {
		h.writeServiceError(w, "create reply failed", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ErrPostNotFound) {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	h.logger.Errorw(msg, "err", err)
	writeDetail(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
