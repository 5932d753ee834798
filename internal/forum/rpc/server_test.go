package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"
	"stackit/internal/forum/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type rpcFixture struct {
	client   *QuestionClient
	workflow *service.Workflow
}

func newRPCFixture(t *testing.T) *rpcFixture {
	t.Helper()
	store := repository.NewMemoryGateway()
	for _, u := range []model.User{
		{ID: "admin_1", Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin, CreatedAt: time.Now()},
		{ID: "user_1", Name: "Ada", Email: "ada@example.com", Role: model.RoleUser, CreatedAt: time.Now()},
	} {
		u := u
		if err := store.CreateUser(context.Background(), &u, nil); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	workflow := service.NewWorkflow(store, service.WorkflowConfig{})
	content := service.NewContentService(store, workflow)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogger()))
	RegisterQuestionService(server, content)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &rpcFixture{client: NewQuestionClient(conn), workflow: workflow}
}

func (f *rpcFixture) submit(t *testing.T, title string, approve bool) *model.Question {
	t.Helper()
	ctx := context.Background()
	q, err := f.workflow.Submit(ctx, model.Actor{ID: "user_1", Role: model.RoleUser}, model.QuestionDraft{
		Title: title, Body: "body", Tags: []string{"grpc"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if approve {
		if q, err = f.workflow.Approve(ctx, model.Actor{ID: "admin_1", Role: model.RoleAdmin}, q.ID); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}
	return q
}

func TestGetQuestionRPC(t *testing.T) {
	f := newRPCFixture(t)
	approved := f.submit(t, "Streaming or unary?", true)
	pending := f.submit(t, "Still in the queue", false)
	ctx := context.Background()

	got, err := f.client.GetQuestion(ctx, approved.ID)
	if err != nil {
		t.Fatalf("get approved: %v", err)
	}
	fields := got.GetFields()
	if fields["id"].GetStringValue() != approved.ID || fields["status"].GetStringValue() != "approved" {
		t.Fatalf("unexpected question %v", got)
	}
	if fields["views"].GetNumberValue() != 1 {
		t.Fatalf("views = %v", fields["views"])
	}

	tests := []struct {
		name string
		id   string
		code codes.Code
	}{
		{name: "pending is hidden", id: pending.ID, code: codes.NotFound},
		{name: "missing", id: "q_missing", code: codes.NotFound},
		{name: "empty id", id: " ", code: codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.client.GetQuestion(ctx, tt.id)
			if status.Code(err) != tt.code {
				t.Fatalf("code = %v, want %v (%v)", status.Code(err), tt.code, err)
			}
		})
	}
}

func TestListQuestionsRPC(t *testing.T) {
	f := newRPCFixture(t)
	for _, title := range []string{"one", "two", "three"} {
		f.submit(t, title, true)
	}
	f.submit(t, "pending", false)
	ctx := context.Background()

	page, err := f.client.ListQuestions(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total := page.GetFields()["total"].GetNumberValue(); total != 3 {
		t.Fatalf("total = %v", total)
	}

	req, err := structpb.NewStruct(map[string]interface{}{"page": 2, "limit": 2})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	page, err = f.client.ListQuestions(ctx, req)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	items := page.GetFields()["items"].GetListValue().GetValues()
	if len(items) != 1 || page.GetFields()["total_pages"].GetNumberValue() != 2 {
		t.Fatalf("unexpected page %v", page)
	}

	for _, tt := range []struct {
		tag   interface{}
		total float64
	}{
		{tag: "GRPC", total: 3},
		{tag: []interface{}{"zig", "grpc"}, total: 3},
		{tag: "zig,rust", total: 0},
	} {
		req, err := structpb.NewStruct(map[string]interface{}{"tag": tt.tag})
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		page, err := f.client.ListQuestions(ctx, req)
		if err != nil {
			t.Fatalf("list by tag %v: %v", tt.tag, err)
		}
		if total := page.GetFields()["total"].GetNumberValue(); total != tt.total {
			t.Fatalf("tag %v: total = %v, want %v", tt.tag, total, tt.total)
		}
	}

	bad, _ := structpb.NewStruct(map[string]interface{}{"limit": 500})
	if _, err := f.client.ListQuestions(ctx, bad); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("oversized limit: %v", err)
	}
}
