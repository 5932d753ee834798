package rpc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"stackit/internal/forum/model"
	"stackit/internal/forum/service"
	pkgerrors "stackit/pkg/errors"
	"stackit/pkg/utils/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// QuestionRPCServer serves questions to anonymous gRPC callers.
type QuestionRPCServer struct {
	content *service.ContentService
}

// NewQuestionRPCServer creates a new gRPC server.
func NewQuestionRPCServer(content *service.ContentService) *QuestionRPCServer {
	return &QuestionRPCServer{content: content}
}

// RegisterQuestionService registers the gRPC server.
func RegisterQuestionService(grpcServer grpc.ServiceRegistrar, content *service.ContentService) {
	grpcServer.RegisterService(&QuestionServiceDesc, NewQuestionRPCServer(content))
}

// GetQuestion returns an approved question with its answers.
func (s *QuestionRPCServer) GetQuestion(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "question id is required")
	}
	q, err := s.content.GetQuestion(ctx, model.Anonymous(), id)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(q)
}

// ListQuestions returns a page of approved questions.
func (s *QuestionRPCServer) ListQuestions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	query := service.QuestionQuery{
		Query:    fields["q"].GetStringValue(),
		Tags:     stringsField(fields, "tag"),
		Page:     intField(fields, "page", defaultPage),
		PageSize: intField(fields, "limit", defaultPageSize),
	}
	page, err := s.content.ListQuestions(ctx, model.Anonymous(), query)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(page)
}

// stringsField accepts either a string or a list of strings.
func stringsField(fields map[string]*structpb.Value, name string) []string {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	if list := v.GetListValue(); list != nil {
		out := make([]string, 0, len(list.GetValues()))
		for _, item := range list.GetValues() {
			out = append(out, item.GetStringValue())
		}
		return out
	}
	return []string{v.GetStringValue()}
}

func intField(fields map[string]*structpb.Value, name string, fallback int) int {
	v, ok := fields[name]
	if !ok {
		return fallback
	}
	if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return fallback
	}
	return int(v.GetNumberValue())
}

// toStruct renders v through its JSON form so the gRPC and HTTP shapes match.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response failed")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, "encode response failed")
	}
	return out, nil
}

func mapError(err error) error {
	customErr := pkgerrors.GetError(err)
	code := customErr.Code
	switch {
	case code == pkgerrors.QuestionNotFound, code == pkgerrors.NotFound:
		return status.Error(codes.NotFound, customErr.Error())
	case code.HTTPStatus() == 400:
		return status.Error(codes.InvalidArgument, customErr.Error())
	case code == pkgerrors.Unauthorized:
		return status.Error(codes.Unauthenticated, customErr.Error())
	case code == pkgerrors.Forbidden, code == pkgerrors.PermissionDenied:
		return status.Error(codes.PermissionDenied, customErr.Error())
	case code == pkgerrors.Timeout:
		return status.Error(codes.DeadlineExceeded, customErr.Error())
	case code == pkgerrors.ServiceUnavailable:
		return status.Error(codes.Unavailable, customErr.Error())
	default:
		return status.Error(codes.Internal, code.Message())
	}
}

// UnaryLogger logs one line per completed call.
func UnaryLogger() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info(ctx, "rpc completed",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}
