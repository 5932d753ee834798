package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "stackit.forum.v1.QuestionService"

	getQuestionMethod   = "/" + ServiceName + "/GetQuestion"
	listQuestionsMethod = "/" + ServiceName + "/ListQuestions"
)

// QuestionServiceServer is the read-only question API. Messages are protobuf
// well-known types so clients need no generated stubs.
type QuestionServiceServer interface {
	// GetQuestion takes the question id and returns the question with its answers.
	GetQuestion(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	// ListQuestions accepts q, tag (a string or list), page and limit and returns one page of approved questions.
	ListQuestions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// QuestionServiceDesc describes QuestionService for grpc.Server registration.
var QuestionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QuestionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetQuestion", Handler: getQuestionHandler},
		{MethodName: "ListQuestions", Handler: listQuestionsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stackit/forum/v1/question.proto",
}

func getQuestionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QuestionServiceServer).GetQuestion(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getQuestionMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QuestionServiceServer).GetQuestion(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listQuestionsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QuestionServiceServer).ListQuestions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listQuestionsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QuestionServiceServer).ListQuestions(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// QuestionClient calls QuestionService.
type QuestionClient struct {
	cc grpc.ClientConnInterface
}

func NewQuestionClient(cc grpc.ClientConnInterface) *QuestionClient {
	return &QuestionClient{cc: cc}
}

func (c *QuestionClient) GetQuestion(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getQuestionMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *QuestionClient) ListQuestions(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listQuestionsMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
