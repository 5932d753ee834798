package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stackit/internal/common/db"
	"stackit/internal/forum/model"
	pkgrepo "stackit/pkg/repository"
)

const questionColumns = "id, title, body, tags, author_id, author_name, status, created_at, updated_at, views, votes, " +
	"approved_by, approved_at, rejected_by, rejected_at, rejection_reason"

func (g *MySQLGateway) CreateQuestion(ctx context.Context, q *model.Question, note *model.Notification, activity *model.Activity) error {
	tags, err := json.Marshal(nonNilTags(q.Tags))
	if err != nil {
		return fmt.Errorf("encode tags failed: %w", err)
	}
	return g.db.Transaction(ctx, func(tx db.Transaction) error {
		query := "INSERT INTO questions (" + questionColumns + ") VALUES (" + db.Placeholders(16) + ")"
		_, err := tx.Exec(ctx, query,
			q.ID, q.Title, q.Body, string(tags), q.AuthorID, q.AuthorName, string(q.Status),
			q.CreatedAt, q.UpdatedAt, q.Views, q.Votes,
			nullString(q.ApprovedBy), nullTime(q.ApprovedAt),
			nullString(q.RejectedBy), nullTime(q.RejectedAt), nullString(q.RejectionReason),
		)
		if err != nil {
			if _, dup := db.UniqueViolation(err); dup {
				return ErrAlreadyExists
			}
			return fmt.Errorf("insert question failed: %w", err)
		}
		for _, tag := range q.Tags {
			if _, err := tx.Exec(ctx, "INSERT INTO question_tags (question_id, tag) VALUES (?, ?)", q.ID, tag); err != nil {
				return fmt.Errorf("insert question tag failed: %w", err)
			}
		}
		return insertSideEffects(ctx, tx, note, activity)
	})
}

func (g *MySQLGateway) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	q, err := scanQuestion(g.db.QueryRow(ctx, "SELECT "+questionColumns+" FROM questions WHERE id = ?", id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get question failed: %w", err)
	}
	return q, nil
}

func (g *MySQLGateway) ListQuestions(ctx context.Context, filter model.QuestionFilter, page PageRequest) (QuestionPage, error) {
	page = page.Normalize()
	where, args := questionWhere(filter)

	total, err := g.count(ctx, "SELECT COUNT(*) FROM questions q"+where, args...)
	if err != nil {
		return QuestionPage{}, err
	}

	query := "SELECT " + questionColumns + " FROM questions q" + where + " ORDER BY q.created_at DESC, q.seq DESC LIMIT ? OFFSET ?"
	rows, err := g.db.Query(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return QuestionPage{}, fmt.Errorf("list questions failed: %w", err)
	}
	defer rows.Close()

	items := make([]model.Question, 0, page.PageSize)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return QuestionPage{}, fmt.Errorf("scan question failed: %w", err)
		}
		items = append(items, *q)
	}
	if err := rows.Err(); err != nil {
		return QuestionPage{}, fmt.Errorf("iterate questions failed: %w", err)
	}
	return pkgrepo.NewPaginationResult(items, total, page), nil
}

// questionWhere renders filter as a WHERE clause over the alias q.
func questionWhere(f model.QuestionFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Status != "" {
		conds = append(conds, "q.status = ?")
		args = append(args, string(f.Status))
	}
	if f.AuthorID != "" {
		conds = append(conds, "q.author_id = ?")
		args = append(args, f.AuthorID)
	}
	if len(f.Tags) > 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM question_tags t WHERE t.question_id = q.id AND t.tag IN ("+db.Placeholders(len(f.Tags))+"))")
		for _, tag := range f.Tags {
			args = append(args, tag)
		}
	}
	if f.Query != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Query)) + "%"
		conds = append(conds, "(LOWER(q.title) LIKE ? OR LOWER(q.body) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (g *MySQLGateway) IncrementQuestionViews(ctx context.Context, id string) (int64, error) {
	return g.adjustCounter(ctx, "questions", "views", id, 1)
}

func (g *MySQLGateway) AdjustQuestionVotes(ctx context.Context, id string, delta int64) (int64, error) {
	return g.adjustCounter(ctx, "questions", "votes", id, delta)
}

// adjustCounter adds delta to table.column for the row id and returns the new value.
// table and column are always package constants.
func (g *MySQLGateway) adjustCounter(ctx context.Context, table, column, id string, delta int64) (int64, error) {
	var value int64
	err := g.db.Transaction(ctx, func(tx db.Transaction) error {
		update := fmt.Sprintf("UPDATE %s SET %s = %s + ? WHERE id = ?", table, column, column)
		res, err := tx.Exec(ctx, update, delta, id)
		if err != nil {
			return fmt.Errorf("update %s.%s failed: %w", table, column, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		selectQuery := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", column, table)
		if err := tx.QueryRow(ctx, selectQuery, id).Scan(&value); err != nil {
			if db.IsNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("read %s.%s failed: %w", table, column, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (g *MySQLGateway) TransitionQuestion(ctx context.Context, q *model.Question, expected model.QuestionStatus, note *model.Notification, activity *model.Activity) error {
	return g.db.Transaction(ctx, func(tx db.Transaction) error {
		query := "UPDATE questions SET status = ?, updated_at = ?, approved_by = ?, approved_at = ?, " +
			"rejected_by = ?, rejected_at = ?, rejection_reason = ? WHERE id = ? AND status = ?"
		res, err := tx.Exec(ctx, query,
			string(q.Status), q.UpdatedAt,
			nullString(q.ApprovedBy), nullTime(q.ApprovedAt),
			nullString(q.RejectedBy), nullTime(q.RejectedAt), nullString(q.RejectionReason),
			q.ID, string(expected),
		)
		if err != nil {
			return fmt.Errorf("transition question failed: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("transition question failed: %w", err)
		}
		if affected == 0 {
			var status string
			if err := tx.QueryRow(ctx, "SELECT status FROM questions WHERE id = ?", q.ID).Scan(&status); err != nil {
				if db.IsNoRows(err) {
					return ErrNotFound
				}
				return fmt.Errorf("read question status failed: %w", err)
			}
			return ErrConflict
		}
		return insertSideEffects(ctx, tx, note, activity)
	})
}

func (g *MySQLGateway) CountQuestionsByStatus(ctx context.Context) (map[model.QuestionStatus]int64, error) {
	rows, err := g.db.Query(ctx, "SELECT status, COUNT(*) FROM questions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count questions failed: %w", err)
	}
	defer rows.Close()

	counts := map[model.QuestionStatus]int64{}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan question count failed: %w", err)
		}
		counts[model.QuestionStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question counts failed: %w", err)
	}
	return counts, nil
}

func (g *MySQLGateway) QuestionStats(ctx context.Context, authorID string) (model.QuestionCounts, error) {
	query := "SELECT COUNT(*), " +
		"COALESCE(SUM(status = 'pending'), 0), COALESCE(SUM(status = 'approved'), 0), COALESCE(SUM(status = 'rejected'), 0), " +
		"COALESCE(SUM(views), 0), COALESCE(SUM(votes), 0) FROM questions WHERE author_id = ?"
	var c model.QuestionCounts
	err := g.db.QueryRow(ctx, query, authorID).Scan(&c.Total, &c.Pending, &c.Approved, &c.Rejected, &c.Views, &c.Votes)
	if err != nil {
		return model.QuestionCounts{}, fmt.Errorf("question stats failed: %w", err)
	}
	return c, nil
}

func (g *MySQLGateway) TagCounts(ctx context.Context, status model.QuestionStatus) ([]model.TagCount, error) {
	query := "SELECT t.tag, COUNT(*) AS n FROM question_tags t JOIN questions q ON q.id = t.question_id"
	var args []interface{}
	if status != "" {
		query += " WHERE q.status = ?"
		args = append(args, string(status))
	}
	query += " GROUP BY t.tag ORDER BY n DESC, t.tag ASC"

	rows, err := g.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count tags failed: %w", err)
	}
	defer rows.Close()

	out := make([]model.TagCount, 0)
	for rows.Next() {
		var tc model.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan tag count failed: %w", err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag counts failed: %w", err)
	}
	return out, nil
}

func scanQuestion(scanner db.Scanner) (*model.Question, error) {
	var (
		q          model.Question
		tags       string
		status     string
		approvedBy sql.NullString
		approvedAt sql.NullTime
		rejectedBy sql.NullString
		rejectedAt sql.NullTime
		reason     sql.NullString
	)
	err := scanner.Scan(
		&q.ID, &q.Title, &q.Body, &tags, &q.AuthorID, &q.AuthorName, &status,
		&q.CreatedAt, &q.UpdatedAt, &q.Views, &q.Votes,
		&approvedBy, &approvedAt, &rejectedBy, &rejectedAt, &reason,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &q.Tags); err != nil {
		return nil, fmt.Errorf("decode tags failed: %w", err)
	}
	q.Status = model.QuestionStatus(status)
	q.ApprovedBy = approvedBy.String
	q.ApprovedAt = timePtr(approvedAt)
	q.RejectedBy = rejectedBy.String
	q.RejectedAt = timePtr(rejectedAt)
	q.RejectionReason = reason.String
	return &q, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
