package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"amicable/internal/accident/metrics"
	"amicable/internal/accident/models"
	"amicable/internal/platform/blob"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	"amicable/pkg/platform/audit"
	"amicable/pkg/platform/sentinel"
	"amicable/pkg/requestcontext"
)

// Store is the accident aggregate persistence. Writes join the transaction
// carried by ctx when called inside AccidentTx.RunInTx.
type Store interface {
	CreateAccident(ctx context.Context, a *models.Accident) error
	Accident(ctx context.Context, id domain.AccidentID) (*models.Accident, error)
	UpdateAccident(ctx context.Context, a *models.Accident) error
	AllAccidentIDs(ctx context.Context) ([]domain.AccidentID, error)
	AccidentIDsForUser(ctx context.Context, userID domain.UserID, email string) ([]domain.AccidentID, error)
	AccidentIDsForInsurer(ctx context.Context, insuranceIDs []domain.InsuranceID, email string) ([]domain.AccidentID, error)

	CreateStatement(ctx context.Context, st *models.Statement) error
	Statements(ctx context.Context, accidentID domain.AccidentID) ([]*models.Statement, error)
	StatementFor(ctx context.Context, accidentID domain.AccidentID, userID domain.UserID) (*models.Statement, error)
	UpdateStatement(ctx context.Context, st *models.Statement) error
	CompleteStatement(ctx context.Context, st *models.Statement) error

	CreateInvite(ctx context.Context, inv *models.TemporaryDriver) error
	Invite(ctx context.Context, id domain.InviteID) (*models.TemporaryDriver, error)
	Invites(ctx context.Context, accidentID domain.AccidentID) ([]*models.TemporaryDriver, error)
	DeleteInvite(ctx context.Context, id domain.InviteID) error
	MarkInviteAnswered(ctx context.Context, inv *models.TemporaryDriver) error

	Sketch(ctx context.Context, statementID domain.StatementID) (*models.Sketch, error)
	ReplaceSketch(ctx context.Context, sk *models.Sketch) error
	UpdateSketch(ctx context.Context, sk *models.Sketch) error
	AddImage(ctx context.Context, img *models.Image) error
	ImageIDs(ctx context.Context, statementID domain.StatementID) ([]domain.ImageID, error)
	Image(ctx context.Context, statementID domain.StatementID, imageID domain.ImageID) (*models.Image, error)
}

const defaultMaxImageBytes = 10 << 20

// Service runs the accident statement workflow: the registry, the statement
// coordinator, participant admission and evidence.
type Service struct {
	store         Store
	ledger        Ledger
	tx            AccidentTx
	blobs         blob.Store
	outbox        audit.Outbox
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	maxImageBytes int64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithOutbox records workflow events. Appends run inside the accident
// transaction, so the outbox must join the transaction carried by ctx.
func WithOutbox(outbox audit.Outbox) Option {
	return func(s *Service) {
		s.outbox = outbox
	}
}

func WithBlobStore(blobs blob.Store) Option {
	return func(s *Service) {
		s.blobs = blobs
	}
}

func WithMaxImageBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// New constructs a Service. Without WithBlobStore images are kept in memory.
func New(store Store, ledger Ledger, tx AccidentTx, opts ...Option) *Service {
	s := &Service{
		store:         store,
		ledger:        ledger,
		tx:            tx,
		maxImageBytes: defaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("amicable/accident")
	}
	if s.blobs == nil {
		s.blobs = blob.NewInMemory()
	}
	return s
}

// begin opens a span and returns a finish func that records the outcome.
func (s *Service) begin(ctx context.Context, operation string, accidentID domain.AccidentID) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "accident."+operation,
		trace.WithAttributes(attribute.Int64("accident.id", int64(accidentID))))
	return ctx, func(errp *error) {
		var code string
		if err := *errp; err != nil {
			code = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, code)
		}
		span.End()
		s.metrics.ObserveOperation(operation, start, code)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	s.logAudit(ctx, event)
	if s.outbox == nil {
		return nil
	}
	if err := s.outbox.Append(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
	}
	return nil
}

// logAudit emits an audit-specific structured log.
func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	args := []any{
		"log_type", "audit",
		"event", string(event.Type),
		"accident_id", event.AccidentID,
		"actor_id", event.ActorID,
	}
	if event.StatementID != 0 {
		args = append(args, "statement_id", event.StatementID)
	}
	if event.InviteID != 0 {
		args = append(args, "invite_id", event.InviteID)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, string(event.Type), args...)
}

// storageError translates a store failure that is not a business outcome.
func storageError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage temporarily unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// notFound maps a missing row to NotFound and anything else to a storage error.
func notFound(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return storageError(err, "failed to load "+what)
}

func requireActive(p domain.Principal) error {
	if p.UserID.IsNil() || !p.IsActive {
		return dErrors.New(dErrors.CodeUnauthorized, "an active account is required")
	}
	return nil
}

// holderStatement loads the viewer's own statement. A viewer without one gets
// NotFound, so outsiders cannot probe which accidents exist.
func (s *Service) holderStatement(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal) (*models.Statement, error) {
	st, err := s.store.StatementFor(ctx, accidentID, viewer.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "accident not found")
		}
		return nil, storageError(err, "failed to load statement")
	}
	return st, nil
}
