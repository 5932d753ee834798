package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stackit/internal/cli/command"
	httpclient "stackit/internal/cli/http"
	"stackit/internal/cli/state"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) Prompt(label string) (string, error) {
	p.asked = append(p.asked, label)
	if len(p.answers) == 0 {
		return "", errors.New("no scripted answer")
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func newTestSession(t *testing.T, handler http.HandlerFunc) (*Session, *bytes.Buffer, *state.Session, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	session := &state.Session{}
	statePath := filepath.Join(t.TempDir(), "session.json")
	client := httpclient.New(srv.URL, time.Second, func() string { return session.AccessToken })
	s := New(client, command.Registry(), session, statePath, false)
	out := &bytes.Buffer{}
	s.SetIO(out, nil)
	return s, out, session, statePath
}

func recordInto(t *testing.T, reqs *[]recordedRequest, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.RequestURI(), Auth: r.Header.Get("Authorization")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			if err := json.Unmarshal(data, &rec.Body); err != nil {
				t.Errorf("request body is not json: %s", data)
			}
		}
		*reqs = append(*reqs, rec)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}
}

func TestLoginStoresSessionAndSendsToken(t *testing.T) {
	var reqs []recordedRequest
	reply := `{"code":10000,"message":"Success","data":{"access_token":"tok-123","expires_at":"2030-01-01T00:00:00Z","user":{"id":"user_1","name":"Ada","role":"admin"}}}`
	s, out, session, statePath := newTestSession(t, recordInto(t, &reqs, reply))
	ctx := context.Background()

	if err := s.Execute(ctx, "auth login email=ada@example.com password=secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.AccessToken != "tok-123" || session.Role != "admin" || session.UserID != "user_1" {
		t.Fatalf("session not stored: %+v", session)
	}
	saved, err := state.Load(statePath)
	if err != nil || saved.AccessToken != "tok-123" {
		t.Fatalf("session not persisted: %+v (%v)", saved, err)
	}
	if !strings.Contains(out.String(), "signed in as Ada (admin)") {
		t.Fatalf("unexpected output %q", out.String())
	}

	if err := s.Execute(ctx, `question reject id=q_1 reason="needs detail"`); err != nil {
		t.Fatalf("reject: %v", err)
	}
	last := reqs[len(reqs)-1]
	if last.Method != http.MethodPost || last.Path != "/api/v1/questions/q_1/reject" {
		t.Fatalf("unexpected request %+v", last)
	}
	if last.Auth != "Bearer tok-123" || last.Body["reason"] != "needs detail" {
		t.Fatalf("unexpected request %+v", last)
	}

	if err := s.Execute(ctx, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if session.AccessToken != "" {
		t.Fatalf("logout kept the token")
	}
}

func TestFailedLoginKeepsSession(t *testing.T) {
	var reqs []recordedRequest
	s, _, session, _ := newTestSession(t, recordInto(t, &reqs, `{"code":11000,"message":"invalid credentials"}`))
	*session = state.Session{AccessToken: "old"}

	if err := s.Execute(context.Background(), "auth login email=a@b.c password=nope"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.AccessToken != "old" {
		t.Fatalf("failed login replaced the session")
	}
}

func TestPromptsForMissingFields(t *testing.T) {
	var reqs []recordedRequest
	s, out, _, _ := newTestSession(t, recordInto(t, &reqs, `{"code":10000,"message":"Success"}`))
	prompter := &scriptedPrompter{answers: []string{"q_7", "up"}}
	s.SetIO(out, prompter)

	if err := s.Execute(context.Background(), "question vote"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if len(prompter.asked) != 2 {
		t.Fatalf("asked %v", prompter.asked)
	}
	if got := reqs[0]; got.Path != "/api/v1/questions/q_7/vote" || got.Body["direction"] != "up" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestFileFieldSatisfiesTarget(t *testing.T) {
	var reqs []recordedRequest
	s, out, _, _ := newTestSession(t, recordInto(t, &reqs, `{"code":10000,"message":"Success"}`))
	prompter := &scriptedPrompter{}
	s.SetIO(out, prompter)

	path := filepath.Join(t.TempDir(), "answer.md")
	if err := os.WriteFile(path, []byte("use a done channel"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Execute(context.Background(), "answer post question_id=q_1 body_file="+path); err != nil {
		t.Fatalf("post: %v", err)
	}
	if len(prompter.asked) != 0 {
		t.Fatalf("prompted for %v", prompter.asked)
	}
	if got := reqs[0]; got.Path != "/api/v1/questions/q_1/answers" || got.Body["body"] != "use a done channel" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestSystemCommands(t *testing.T) {
	s, out, session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	if err := s.Execute(ctx, "set token abcdefghijklmnopqrstuvwxyz"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if session.AccessToken != "abcdefghijklmnopqrstuvwxyz" {
		t.Fatalf("token not set")
	}
	out.Reset()
	if err := s.Execute(ctx, "show token"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.TrimSpace(out.String()) != "token: abcdef...wxyz" {
		t.Fatalf("unexpected output %q", out.String())
	}
	if err := s.Execute(ctx, "exit"); !errors.Is(err, errExit) {
		t.Fatalf("exit returned %v", err)
	}
	if err := s.Execute(ctx, "nosuch thing"); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if err := s.Execute(ctx, "question"); err == nil {
		t.Fatalf("expected usage error")
	}
	out.Reset()
	if err := s.Execute(ctx, "help"); err != nil || !strings.Contains(out.String(), "notification") {
		t.Fatalf("help output %q (%v)", out.String(), err)
	}
}
