package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/async"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/ocr"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/schema"
)

// Enqueuer accepts files for background processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// ExtractionService implements ExtractionServer on top of a core.Processor.
type ExtractionService struct {
	proc   *core.Processor
	queue  Enqueuer
	logger *slog.Logger
	now    func() time.Time
}

// NewExtractionService wires the RPC surface. queue may be nil, in which case
// async ProcessFile calls are refused.
func NewExtractionService(proc *core.Processor, queue Enqueuer, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{proc: proc, queue: queue, logger: logger, now: time.Now}
}

// ProcessDocument runs the extraction core over page texts supplied by the
// caller. Nothing is persisted unless persist is set.
func (s *ExtractionService) ProcessDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filename := strings.TrimSpace(stringField(req, "filename"))
	if filename == "" {
		return nil, common.InvalidArgumentError("filename is required")
	}
	pagesVal, ok := req.GetFields()["pages"]
	if !ok || pagesVal.GetListValue() == nil {
		return nil, common.InvalidArgumentError("pages must be a list of strings")
	}
	var texts []string
	for i, v := range pagesVal.GetListValue().GetValues() {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, common.InvalidArgumentErrorf("pages[%d] must be a string", i)
		}
		texts = append(texts, sv.StringValue)
	}

	start := s.now()
	res := s.proc.ProcessDocument(ctx, core.DocumentInput{
		Filename: filename,
		Pages:    core.TextPages(texts...),
		Signals: entity.Signals{
			HasSticker:   boolField(req, "has_sticker"),
			HasSignature: boolField(req, "has_signature"),
		},
	})
	if err := res.Validate(); err != nil {
		return nil, common.ToStatus(err)
	}
	if err := schema.ValidateResult(res); err != nil {
		s.logger.Error("server.schema.failed", "filename", filename, "error", err)
		return nil, common.InternalError("result failed schema validation")
	}
	res.Timing = entity.Timing{ProcessType: constants.ProcessSingle, Start: start, End: s.now()}

	if boolField(req, "persist") {
		store := s.proc.Store()
		if store == nil {
			return nil, status.Error(codes.FailedPrecondition, "no ledger configured")
		}
		if err := store.Upsert(ctx, entity.RowFromResult(res)); err != nil {
			s.logger.Error("server.ledger.failed", "filename", filename, "error", err)
			return nil, common.ToStatus(err)
		}
	}
	return resultStruct(res)
}

// ProcessFile processes a document already on the server's filesystem, either
// inline or through the background queue.
func (s *ExtractionService) ProcessFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(stringField(req, "path"))
	if path == "" {
		return nil, common.InvalidArgumentError("path is required")
	}
	path = filepath.Clean(path)
	if _, err := ocr.Format(path); err != nil {
		return nil, common.ToStatus(err)
	}

	if boolField(req, "async") {
		if s.queue == nil {
			return nil, status.Error(codes.Unimplemented, "async processing is not enabled")
		}
		ctx, id := common.EnsureRequestID(ctx)
		if err := s.queue.Enqueue(ctx, async.Job{Path: path, RequestID: id, SubmittedAt: s.now()}); err != nil {
			if errors.Is(err, async.ErrQueueClosed) {
				return nil, status.Error(codes.Unavailable, err.Error())
			}
			return nil, status.FromContextError(err).Err()
		}
		s.logger.Info("server.file.queued", "path", path, "request_id", id)
		return structpb.NewStruct(map[string]any{"queued": true, "request_id": id})
	}

	res, err := s.proc.ProcessFile(ctx, path, core.FileOptions{ProcessType: constants.ProcessSingle})
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return resultStruct(res)
}

// LookupLedger returns the persisted row for a filename in display form.
func (s *ExtractionService) LookupLedger(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filename := strings.TrimSpace(stringField(req, "filename"))
	if filename == "" {
		return nil, common.InvalidArgumentError("filename is required")
	}
	store := s.proc.Store()
	if store == nil {
		return nil, status.Error(codes.FailedPrecondition, "no ledger configured")
	}
	row, err := store.Lookup(ctx, filename)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("server.lookup.failed", "filename", filename, "error", err)
		}
		return nil, common.ToStatus(err)
	}
	fields := make(map[string]any, len(entity.LedgerColumns))
	for k, v := range row.Record() {
		fields[k] = v
	}
	return structpb.NewStruct(fields)
}

var _ ExtractionServer = (*ExtractionService)(nil)

func resultStruct(res entity.DocumentResult) (*structpb.Struct, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return nil, common.InternalErrorf("encode result: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, common.InternalErrorf("encode result: %v", err)
	}
	return out, nil
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}
