package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryCoversForumRoutes(t *testing.T) {
	commands := Registry()
	want := []string{
		"auth register", "auth login",
		"question list", "question get", "question create", "question approve", "question reject", "question vote", "question tags",
		"answer post", "answer accept", "answer vote",
		"user questions", "user answers", "user stats",
		"notification list", "notification read", "notification read-all", "notification unread",
		"admin stats", "admin activity", "admin users",
		"media upload", "media confirm",
	}
	for _, key := range want {
		cmd, ok := commands[key]
		if !ok {
			t.Fatalf("missing command %q", key)
		}
		if !strings.HasPrefix(cmd.PathTemplate, "/api/v1/") {
			t.Fatalf("%s: unexpected path %s", key, cmd.PathTemplate)
		}
	}
	if len(commands) != len(want) {
		t.Fatalf("registry has %d commands, want %d", len(commands), len(want))
	}
}

func TestBuildRequest(t *testing.T) {
	commands := Registry()
	tests := []struct {
		name     string
		key      string
		params   Params
		wantPath string
		wantBody map[string]interface{}
		wantErr  string
	}{
		{
			name:     "list with filters",
			key:      "question list",
			params:   Params{"status": "pending", "q": "chan", "page": "2", "page_size": "5"},
			wantPath: "/api/v1/questions?limit=5&page=2&q=chan&status=pending",
		},
		{
			name:     "list without filters",
			key:      "question list",
			params:   Params{},
			wantPath: "/api/v1/questions",
		},
		{
			name:     "create splits tags",
			key:      "question create",
			params:   Params{"title": "T", "body": "B", "tags": "go, channels,,"},
			wantPath: "/api/v1/questions",
			wantBody: map[string]interface{}{"title": "T", "body": "B", "tags": []interface{}{"go", "channels"}},
		},
		{
			name:     "path ids are escaped",
			key:      "answer accept",
			params:   Params{"id": "a/1"},
			wantPath: "/api/v1/answers/a%2F1/accept",
			wantBody: map[string]interface{}{},
		},
		{
			name:     "notification read defaults to true",
			key:      "notification read",
			params:   Params{"id": "ntf_1"},
			wantPath: "/api/v1/notifications/ntf_1",
			wantBody: map[string]interface{}{"read": true},
		},
		{
			name:     "notification read false",
			key:      "notification read",
			params:   Params{"id": "ntf_1", "read": "false"},
			wantPath: "/api/v1/notifications/ntf_1",
			wantBody: map[string]interface{}{"read": false},
		},
		{
			name:     "media size is numeric",
			key:      "media upload",
			params:   Params{"content_type": "image/png", "size_bytes": "2048"},
			wantPath: "/api/v1/media/uploads",
			wantBody: map[string]interface{}{"content_type": "image/png", "size_bytes": float64(2048)},
		},
		{
			name:    "missing required",
			key:     "question reject",
			params:  Params{"id": "q_1"},
			wantErr: "missing parameter: reason",
		},
		{
			name:    "bad number",
			key:     "media upload",
			params:  Params{"content_type": "image/png", "size_bytes": "big"},
			wantErr: "invalid size_bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := BuildRequest(commands[tt.key], tt.params)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if spec.Path != tt.wantPath {
				t.Fatalf("path = %s, want %s", spec.Path, tt.wantPath)
			}
			if spec.Method == "GET" {
				if spec.Body != nil {
					t.Fatalf("GET carries a body: %s", spec.Body)
				}
				return
			}
			var body map[string]interface{}
			if err := json.Unmarshal(spec.Body, &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if len(body) != len(tt.wantBody) {
				t.Fatalf("body = %v, want %v", body, tt.wantBody)
			}
			for k, v := range tt.wantBody {
				got, _ := json.Marshal(body[k])
				want, _ := json.Marshal(v)
				if string(got) != string(want) {
					t.Fatalf("body[%s] = %s, want %s", k, got, want)
				}
			}
		})
	}
}

func TestBuildRequestReadsBodyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "question.md")
	if err := os.WriteFile(path, []byte("How do I close a channel twice?"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	spec, err := BuildRequest(Registry()["question create"], Params{"title": "T", "tags": "go", "body_file": path})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(spec.Body, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["body"] != "How do I close a channel twice?" {
		t.Fatalf("body = %v", body["body"])
	}
	if _, ok := body["body_file"]; ok {
		t.Fatalf("file field leaked into the payload")
	}
}

func TestParseAssignments(t *testing.T) {
	params, err := ParseAssignments([]string{"Title=a=b", "tags="})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params.Get("title") != "a=b" || !params.Has("tags") {
		t.Fatalf("unexpected params %v", params)
	}
	if _, err := ParseAssignments([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for bare token")
	}
}
