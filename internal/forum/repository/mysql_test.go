package repository

import (
	"reflect"
	"strings"
	"testing"

	"stackit/internal/forum/model"
)

func TestQuestionWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    model.QuestionFilter
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name: "empty",
		},
		{
			name:      "status and author",
			filter:    model.QuestionFilter{Status: model.StatusApproved, AuthorID: "u1"},
			wantWhere: " WHERE q.status = ? AND q.author_id = ?",
			wantArgs:  []interface{}{"approved", "u1"},
		},
		{
			name:      "tag",
			filter:    model.QuestionFilter{Tags: []string{"go"}},
			wantWhere: " WHERE EXISTS (SELECT 1 FROM question_tags t WHERE t.question_id = q.id AND t.tag IN (?))",
			wantArgs:  []interface{}{"go"},
		},
		{
			name:      "any of several tags",
			filter:    model.QuestionFilter{Status: model.StatusApproved, Tags: []string{"go", "rust", "zig"}},
			wantWhere: " WHERE q.status = ? AND EXISTS (SELECT 1 FROM question_tags t WHERE t.question_id = q.id AND t.tag IN (?, ?, ?))",
			wantArgs:  []interface{}{"approved", "go", "rust", "zig"},
		},
		{
			name:      "query escapes wildcards",
			filter:    model.QuestionFilter{Query: "100%_Done"},
			wantWhere: " WHERE (LOWER(q.title) LIKE ? OR LOWER(q.body) LIKE ?)",
			wantArgs:  []interface{}{`%100\%\_done%`, `%100\%\_done%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := questionWhere(tt.filter)
			if where != tt.wantWhere {
				t.Fatalf("where = %q, want %q", where, tt.wantWhere)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestSchemaDeclaresEveryTable(t *testing.T) {
	for _, table := range []string{"users", "questions", "question_tags", "answers", "notifications", "activities"} {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("schema is missing table %s", table)
		}
	}
}
