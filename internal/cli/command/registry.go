package command

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

var pageFields = []Field{
	{Name: "page", Prompt: "page", Type: FieldInt, In: InQuery},
	{Name: "limit", Aliases: []string{"page_size"}, Prompt: "limit", Type: FieldInt, In: InQuery},
}

func withPaging(fields ...Field) []Field {
	return append(fields, pageFields...)
}

func idField(prompt string) Field {
	return Field{Name: "id", Prompt: prompt, Type: FieldString, In: InPath, Required: true}
}

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "auth",
			Action:       "register",
			Method:       "POST",
			PathTemplate: "/api/v1/auth/register",
			StoresToken:  true,
			Fields: []Field{
				{Name: "name", Prompt: "name", Type: FieldString, Required: true},
				{Name: "email", Prompt: "email", Type: FieldString, Required: true},
				{Name: "password", Prompt: "password", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "auth",
			Action:       "login",
			Method:       "POST",
			PathTemplate: "/api/v1/auth/login",
			StoresToken:  true,
			Fields: []Field{
				{Name: "email", Prompt: "email", Type: FieldString, Required: true},
				{Name: "password", Prompt: "password", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "question",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/questions",
			Fields: withPaging(
				Field{Name: "status", Prompt: "status", Type: FieldString, In: InQuery},
				Field{Name: "q", Aliases: []string{"query", "search"}, Prompt: "q", Type: FieldString, In: InQuery},
				Field{Name: "tag", Aliases: []string{"tags"}, Prompt: "tags (comma separated)", Type: FieldString, In: InQuery},
			),
		},
		{
			Service:      "question",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/questions/:id",
			Fields:       []Field{idField("question_id")},
		},
		{
			Service:      "question",
			Action:       "create",
			Method:       "POST",
			PathTemplate: "/api/v1/questions",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "title", Prompt: "title", Type: FieldString, Required: true},
				{Name: "body", Prompt: "body", Type: FieldString, Required: true},
				{Name: "tags", Prompt: "tags (comma-separated)", Type: FieldStringList, Required: true},
				{Name: "body_file", Prompt: "body_file", Type: FieldFile, Target: "body"},
			},
		},
		{
			Service:      "question",
			Action:       "approve",
			Method:       "POST",
			PathTemplate: "/api/v1/questions/:id/approve",
			RequiresAuth: true,
			Fields:       []Field{idField("question_id")},
		},
		{
			Service:      "question",
			Action:       "reject",
			Method:       "POST",
			PathTemplate: "/api/v1/questions/:id/reject",
			RequiresAuth: true,
			Fields: []Field{
				idField("question_id"),
				{Name: "reason", Prompt: "reason", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "question",
			Action:       "vote",
			Method:       "POST",
			PathTemplate: "/api/v1/questions/:id/vote",
			RequiresAuth: true,
			Fields: []Field{
				idField("question_id"),
				{Name: "direction", Aliases: []string{"dir"}, Prompt: "direction (up|down)", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "question",
			Action:       "tags",
			Method:       "GET",
			PathTemplate: "/api/v1/tags",
		},
		{
			Service:      "answer",
			Action:       "post",
			Method:       "POST",
			PathTemplate: "/api/v1/questions/:id/answers",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "id", Aliases: []string{"question_id"}, Prompt: "question_id", Type: FieldString, In: InPath, Required: true},
				{Name: "body", Prompt: "body", Type: FieldString, Required: true},
				{Name: "body_file", Prompt: "body_file", Type: FieldFile, Target: "body"},
			},
		},
		{
			Service:      "answer",
			Action:       "accept",
			Method:       "POST",
			PathTemplate: "/api/v1/answers/:id/accept",
			RequiresAuth: true,
			Fields:       []Field{idField("answer_id")},
		},
		{
			Service:      "answer",
			Action:       "vote",
			Method:       "POST",
			PathTemplate: "/api/v1/answers/:id/vote",
			RequiresAuth: true,
			Fields: []Field{
				idField("answer_id"),
				{Name: "direction", Aliases: []string{"dir"}, Prompt: "direction (up|down)", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "user",
			Action:       "questions",
			Method:       "GET",
			PathTemplate: "/api/v1/users/:id/questions",
			RequiresAuth: true,
			Fields:       withPaging(idField("user_id")),
		},
		{
			Service:      "user",
			Action:       "answers",
			Method:       "GET",
			PathTemplate: "/api/v1/users/:id/answers",
			RequiresAuth: true,
			Fields:       withPaging(idField("user_id")),
		},
		{
			Service:      "user",
			Action:       "stats",
			Method:       "GET",
			PathTemplate: "/api/v1/users/:id/stats",
			Fields:       []Field{idField("user_id")},
		},
		{
			Service:      "notification",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/notifications",
			RequiresAuth: true,
			Fields:       withPaging(Field{Name: "unread", Prompt: "unread", Type: FieldBool, In: InQuery}),
		},
		{
			Service:      "notification",
			Action:       "read",
			Method:       "PATCH",
			PathTemplate: "/api/v1/notifications/:id",
			RequiresAuth: true,
			Fields: []Field{
				idField("notification_id"),
				{Name: "read", Prompt: "read", Type: FieldBool},
			},
		},
		{
			Service:      "notification",
			Action:       "read-all",
			Method:       "POST",
			PathTemplate: "/api/v1/notifications/read-all",
			RequiresAuth: true,
		},
		{
			Service:      "notification",
			Action:       "unread",
			Method:       "GET",
			PathTemplate: "/api/v1/notifications/unread-count",
			RequiresAuth: true,
		},
		{
			Service:      "admin",
			Action:       "stats",
			Method:       "GET",
			PathTemplate: "/api/v1/admin/stats",
			RequiresAuth: true,
		},
		{
			Service:      "admin",
			Action:       "activity",
			Method:       "GET",
			PathTemplate: "/api/v1/admin/activity",
			RequiresAuth: true,
			Fields:       withPaging(),
		},
		{
			Service:      "admin",
			Action:       "users",
			Method:       "GET",
			PathTemplate: "/api/v1/admin/users",
			RequiresAuth: true,
			Fields:       withPaging(),
		},
		{
			Service:      "media",
			Action:       "upload",
			Method:       "POST",
			PathTemplate: "/api/v1/media/uploads",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "content_type", Prompt: "content_type", Type: FieldString, Required: true},
				{Name: "size_bytes", Prompt: "size_bytes", Type: FieldInt64, Required: true},
			},
		},
		{
			Service:      "media",
			Action:       "confirm",
			Method:       "POST",
			PathTemplate: "/api/v1/media/uploads/confirm",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "object_key", Prompt: "object_key", Type: FieldString, Required: true},
			},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Key()] = cmd
	}
	return result
}

// Services lists the distinct services with their actions, sorted, for help and completion.
func Services(commands map[string]Command) map[string][]string {
	out := make(map[string][]string)
	for _, cmd := range commands {
		out[cmd.Service] = append(out[cmd.Service], cmd.Action)
	}
	for _, actions := range out {
		sort.Strings(actions)
	}
	return out
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	if err := loadFiles(cmd.Fields, params); err != nil {
		return RequestSpec{}, err
	}

	path := cmd.PathTemplate
	query := url.Values{}
	body := map[string]interface{}{}
	for _, field := range cmd.Fields {
		if field.Type == FieldFile {
			continue
		}
		raw := params.Get(field.Name)
		if raw == "" {
			if field.Required {
				return RequestSpec{}, fmt.Errorf("missing parameter: %s", field.Name)
			}
			continue
		}
		switch field.In {
		case InPath:
			path = strings.ReplaceAll(path, ":"+field.Name, url.PathEscape(raw))
		case InQuery:
			query.Set(field.Name, raw)
		default:
			value, err := encodeValue(field, raw)
			if err != nil {
				return RequestSpec{}, err
			}
			body[field.Name] = value
		}
	}
	if strings.Contains(path, "/:") {
		return RequestSpec{}, fmt.Errorf("unresolved path parameter in %s", path)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	spec := RequestSpec{Method: cmd.Method, Path: path}
	if cmd.Method != "GET" && cmd.Method != "DELETE" {
		if cmd.Key() == "notification read" && !params.Has("read") {
			body["read"] = true
		}
		data, err := json.Marshal(body)
		if err != nil {
			return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
		}
		spec.Body = data
	}
	return spec, nil
}

// loadFiles replaces the target of every file field with the file content.
func loadFiles(fields []Field, params Params) error {
	for _, field := range fields {
		if field.Type != FieldFile || params.Get(field.Name) == "" {
			continue
		}
		content, err := ReadFile(params.Get(field.Name))
		if err != nil {
			return err
		}
		params.Set(field.Target, content)
	}
	return nil
}

func encodeValue(field Field, raw string) (interface{}, error) {
	switch field.Type {
	case FieldInt:
		n, err := ParseInt(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", field.Name, err)
		}
		return n, nil
	case FieldInt64:
		n, err := ParseInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", field.Name, err)
		}
		return n, nil
	case FieldBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", field.Name, err)
		}
		return b, nil
	case FieldStringList:
		return ParseStringList(raw), nil
	default:
		return raw, nil
	}
}
