package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"amicable/internal/accident/models"
	"amicable/internal/platform/metrics"
	"amicable/internal/platform/middleware"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	"amicable/pkg/platform/httputil"
	"amicable/pkg/platform/middleware/admin"
	"amicable/pkg/platform/middleware/auth"
	"amicable/pkg/platform/middleware/metadata"
	request "amicable/pkg/platform/middleware/request"
	"amicable/pkg/platform/middleware/requesttime"
	"amicable/pkg/requestcontext"
)

const (
	maxBodyBytes          = 1 << 20
	defaultMaxImageBytes  = 10 << 20
	defaultRequestTimeout = 30 * time.Second
	// multipartOverhead leaves room for boundaries and part headers around
	// the image itself.
	multipartOverhead = 64 << 10
)

// Service defines the accident workflow operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, vehicleID domain.VehicleID, reporter domain.Principal, req *models.CreateAccidentRequest) (*models.AccidentView, error)
	Get(ctx context.Context, id domain.AccidentID, viewer domain.Principal) (*models.AccidentView, error)
	ListForUser(ctx context.Context, viewer domain.Principal) ([]*models.AccidentView, error)
	ListAll(ctx context.Context, viewer domain.Principal) ([]*models.AccidentView, error)
	ListForInsurer(ctx context.Context, viewer domain.Principal) ([]*models.AccidentView, error)
	CloseCase(ctx context.Context, id domain.AccidentID, viewer domain.Principal) (*models.AccidentView, error)

	AddDriver(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.AddDriverRequest) (*models.TemporaryDriver, error)
	RemoveDriver(ctx context.Context, inviteID domain.InviteID, viewer domain.Principal) (*models.AccidentView, error)
	ListDrivers(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal) ([]*models.TemporaryDriver, error)

	AddStatement(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.StatementRequest) (*models.Statement, error)
	Update(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.StatementRequest) (*models.Statement, error)
	UpdateDamageDetection(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.DamageRequest) (*models.Statement, error)
	Complete(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal) (*models.Statement, error)

	SetSketch(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.SketchRequest) (*models.Sketch, error)
	UpdateSketch(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.SketchRequest) (*models.Sketch, error)
	AddImage(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, data []byte, contentType string) (*models.Image, error)
	ImageIDs(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal) ([]domain.ImageID, error)
	Image(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, imageID domain.ImageID) (*models.Image, []byte, error)
}

// Handler handles the accident, driver, statement and evidence endpoints.
type Handler struct {
	service        Service
	logger         *slog.Logger
	metrics        *metrics.Metrics
	resolver       auth.Resolver
	maxImageBytes  int64
	requestTimeout time.Duration
}

type Option func(*Handler)

// WithMaxImageBytes caps upload size before the body is buffered.
func WithMaxImageBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxImageBytes = n
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// New creates a new accident Handler.
func New(
	service Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	resolver auth.Resolver,
	opts ...Option) *Handler {
	h := &Handler{
		service:        service,
		logger:         logger,
		metrics:        metrics,
		resolver:       resolver,
		maxImageBytes:  defaultMaxImageBytes,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the accident routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	accidentRouter := chi.NewRouter()
	accidentRouter.Use(middleware.Recovery(h.logger))
	accidentRouter.Use(request.RequestID)
	accidentRouter.Use(metadata.ClientMetadata)
	accidentRouter.Use(requesttime.Middleware)
	accidentRouter.Use(middleware.Logger(h.logger))
	accidentRouter.Use(middleware.Timeout(h.requestTimeout))
	accidentRouter.Use(middleware.Latency(h.metrics))
	accidentRouter.Use(auth.RequireAuth(h.resolver, h.logger))

	requireAdmin := admin.RequireAdmin(h.logger)

	accidentRouter.Post("/vehicles/{vehicle_id}", h.handleCreate)
	accidentRouter.Get("/accidents", h.handleListForUser)
	accidentRouter.With(requireAdmin).Get("/accidents/all", h.handleListAll)
	accidentRouter.Get("/accidents/insurer", h.handleListForInsurer)
	accidentRouter.Route("/accidents/{accident_id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.With(requireAdmin).Post("/close", h.handleCloseCase)
		r.Post("/temporary", h.handleAddDriver)
		r.Get("/temporary", h.handleListDrivers)
		r.Post("/remove-temporary/{invite_id}", h.handleRemoveDriver)

		r.Post("/statement", h.handleAddStatement)
		r.Put("/statement", h.handleUpdateStatement)
		r.Put("/statement/detection", h.handleUpdateDamage)
		r.Put("/statement/complete", h.handleComplete)
		r.Post("/statement/sketch", h.handleSetSketch)
		r.Put("/statement/sketch", h.handleUpdateSketch)
		r.Post("/statement/image", h.handleAddImage)
		r.Get("/statement/images", h.handleImageIDs)
		r.Get("/statement/images/{image_id}", h.handleImage)
	})

	r.Mount("/", accidentRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	vehicleID, err := domain.ParseVehicleID(chi.URLParam(r, "vehicle_id"))
	if err != nil {
		h.fail(ctx, w, "invalid vehicle id", err)
		return
	}
	var req models.CreateAccidentRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.Create(ctx, vehicleID, principal, &req)
	if err != nil {
		h.fail(ctx, w, "failed to create accident", err)
		return
	}
	h.logger.InfoContext(ctx, "accident reported",
		"request_id", request.GetRequestID(ctx),
		"accident_id", view.ID,
		"user_id", principal.UserID,
	)
	httputil.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(ctx, accidentID, principal)
	if err != nil {
		h.fail(ctx, w, "failed to get accident", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListForUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "failed to list accidents", h.service.ListForUser)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "failed to list all accidents", h.service.ListAll)
}

func (h *Handler) handleListForInsurer(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "failed to list insurer accidents", h.service.ListForInsurer)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, failMsg string, fn func(context.Context, domain.Principal) ([]*models.AccidentView, error)) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	views, err := fn(ctx, principal)
	if err != nil {
		h.fail(ctx, w, failMsg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCloseCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	view, err := h.service.CloseCase(ctx, accidentID, principal)
	if err != nil {
		h.fail(ctx, w, "failed to close case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAddDriver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	var req models.AddDriverRequest
	if !h.decode(w, r, &req) {
		return
	}
	invite, err := h.service.AddDriver(ctx, accidentID, principal, &req)
	if err != nil {
		h.fail(ctx, w, "failed to add driver", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, invite)
}

func (h *Handler) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	invites, err := h.service.ListDrivers(ctx, accidentID, principal)
	if err != nil {
		h.fail(ctx, w, "failed to list drivers", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, invites)
}

// handleRemoveDriver resolves the accident from the invite. The accident id in
// the path is only checked for syntax; authorization follows the invite.
func (h *Handler) handleRemoveDriver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	inviteID, err := domain.ParseInviteID(chi.URLParam(r, "invite_id"))
	if err != nil {
		h.fail(ctx, w, "invalid invite id", err)
		return
	}

	view, err := h.service.RemoveDriver(ctx, inviteID, principal)
	if err != nil {
		h.fail(ctx, w, "failed to remove driver", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAddStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	// The body is optional: an invited driver may join with no fields set.
	var req *models.StatementRequest
	if r.ContentLength != 0 {
		req = &models.StatementRequest{}
		if !h.decodeOptional(w, r, req) {
			return
		}
	}
	st, err := h.service.AddStatement(ctx, accidentID, principal, req)
	if err != nil {
		h.fail(ctx, w, "failed to add statement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

func (h *Handler) handleUpdateStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	var req models.StatementRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.service.Update(ctx, accidentID, principal, &req)
	if err != nil {
		h.fail(ctx, w, "failed to update statement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleUpdateDamage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	var req models.DamageRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.service.UpdateDamageDetection(ctx, accidentID, principal, &req)
	if err != nil {
		h.fail(ctx, w, "failed to update damage detection", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	st, err := h.service.Complete(ctx, accidentID, principal)
	if err != nil {
		h.fail(ctx, w, "failed to complete statement", err)
		return
	}
	h.logger.InfoContext(ctx, "statement completed",
		"request_id", request.GetRequestID(ctx),
		"accident_id", accidentID,
		"statement_id", st.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleSetSketch(w http.ResponseWriter, r *http.Request) {
	h.sketch(w, r, http.StatusCreated, h.service.SetSketch)
}

func (h *Handler) handleUpdateSketch(w http.ResponseWriter, r *http.Request) {
	h.sketch(w, r, http.StatusOK, h.service.UpdateSketch)
}

func (h *Handler) sketch(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	fn func(context.Context, domain.AccidentID, domain.Principal, *models.SketchRequest) (*models.Sketch, error),
) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	var req models.SketchRequest
	if !h.decode(w, r, &req) {
		return
	}
	sk, err := fn(ctx, accidentID, principal, &req)
	if err != nil {
		h.fail(ctx, w, "failed to save sketch", err)
		return
	}
	httputil.WriteJSON(w, status, sk)
}

func (h *Handler) handleAddImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+multipartOverhead)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(ctx, w, "image upload too large", dErrors.New(dErrors.CodeValidation, "image is too large"))
			return
		}
		h.fail(ctx, w, "invalid image upload", dErrors.New(dErrors.CodeBadRequest, "multipart field \"image\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes+1))
	if err != nil {
		h.fail(ctx, w, "failed to read image upload", dErrors.New(dErrors.CodeBadRequest, "failed to read image"))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	img, err := h.service.AddImage(ctx, accidentID, principal, data, contentType)
	if err != nil {
		h.fail(ctx, w, "failed to add image", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, img)
}

type imageIDsResponse struct {
	ImageIDs []domain.ImageID `json:"image_ids"`
	Count    int              `json:"count"`
}

func (h *Handler) handleImageIDs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	ids, err := h.service.ImageIDs(ctx, accidentID, principal)
	if err != nil {
		h.fail(ctx, w, "failed to list images", err)
		return
	}
	if ids == nil {
		ids = []domain.ImageID{}
	}
	httputil.WriteJSON(w, http.StatusOK, imageIDsResponse{ImageIDs: ids, Count: len(ids)})
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, accidentID, ok := h.accidentRequest(w, r)
	if !ok {
		return
	}
	imageID, err := domain.ParseImageID(chi.URLParam(r, "image_id"))
	if err != nil {
		h.fail(ctx, w, "invalid image id", err)
		return
	}
	img, data, err := h.service.Image(ctx, accidentID, principal, imageID)
	if err != nil {
		h.fail(ctx, w, "failed to load image", err)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// principal reads the caller set by RequireAuth.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	ctx := r.Context()
	p, ok := requestcontext.Principal(ctx)
	if !ok {
		// This should never happen if RequireAuth middleware is configured correctly
		h.logger.ErrorContext(ctx, "principal missing from context despite auth middleware",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return domain.Principal{}, false
	}
	return p, true
}

func (h *Handler) accidentRequest(w http.ResponseWriter, r *http.Request) (domain.Principal, domain.AccidentID, bool) {
	p, ok := h.principal(w, r)
	if !ok {
		return domain.Principal{}, 0, false
	}
	accidentID, err := domain.ParseAccidentID(chi.URLParam(r, "accident_id"))
	if err != nil {
		h.fail(r.Context(), w, "invalid accident id", err)
		return domain.Principal{}, 0, false
	}
	return p, accidentID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.rejectBody(r.Context(), w, err)
		return false
	}
	return true
}

// decodeOptional treats an empty body as no fields.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.rejectBody(r.Context(), w, err)
		return false
	}
	return true
}

func (h *Handler) rejectBody(ctx context.Context, w http.ResponseWriter, err error) {
	h.logger.WarnContext(ctx, "invalid request body",
		"request_id", request.GetRequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
}

// fail logs client errors as warnings and server errors as errors, then
// writes the mapped response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	args := []any{
		"request_id", request.GetRequestID(ctx),
		"error", err.Error(),
	}
	if code := dErrors.CodeOf(err); httputil.StatusFor(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		if reason := dErrors.ReasonOf(err); reason != "" {
			args = append(args, "reason", reason)
		}
		h.logger.WarnContext(ctx, msg, append(args, "code", string(code))...)
	}
	httputil.WriteError(w, err)
}
