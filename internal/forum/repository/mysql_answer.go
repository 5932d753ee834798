package repository

import (
	"context"
	"fmt"

	"stackit/internal/common/db"
	"stackit/internal/forum/model"
	pkgrepo "stackit/pkg/repository"
)

const answerColumns = "id, question_id, author_id, author_name, body, votes, accepted, created_at, updated_at"

func (g *MySQLGateway) CreateAnswer(ctx context.Context, a *model.Answer, note *model.Notification, activity *model.Activity) error {
	return g.db.Transaction(ctx, func(tx db.Transaction) error {
		var exists int
		if err := tx.QueryRow(ctx, "SELECT 1 FROM questions WHERE id = ?", a.QuestionID).Scan(&exists); err != nil {
			if db.IsNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("check question failed: %w", err)
		}
		query := "INSERT INTO answers (" + answerColumns + ") VALUES (" + db.Placeholders(9) + ")"
		_, err := tx.Exec(ctx, query, a.ID, a.QuestionID, a.AuthorID, a.AuthorName, a.Body, a.Votes, a.Accepted, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			if _, dup := db.UniqueViolation(err); dup {
				return ErrAlreadyExists
			}
			return fmt.Errorf("insert answer failed: %w", err)
		}
		return insertSideEffects(ctx, tx, note, activity)
	})
}

func (g *MySQLGateway) GetAnswer(ctx context.Context, id string) (*model.Answer, error) {
	a, err := scanAnswer(g.db.QueryRow(ctx, "SELECT "+answerColumns+" FROM answers WHERE id = ?", id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get answer failed: %w", err)
	}
	return a, nil
}

func (g *MySQLGateway) ListAnswersByQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	query := "SELECT " + answerColumns + " FROM answers WHERE question_id = ? ORDER BY created_at ASC, seq ASC"
	return g.queryAnswers(ctx, query, questionID)
}

func (g *MySQLGateway) ListAnswersByAuthor(ctx context.Context, authorID string, page PageRequest) (AnswerPage, error) {
	page = page.Normalize()
	total, err := g.count(ctx, "SELECT COUNT(*) FROM answers WHERE author_id = ?", authorID)
	if err != nil {
		return AnswerPage{}, err
	}
	query := "SELECT " + answerColumns + " FROM answers WHERE author_id = ? ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"
	items, err := g.queryAnswers(ctx, query, authorID, page.PageSize, page.Offset())
	if err != nil {
		return AnswerPage{}, err
	}
	return pkgrepo.NewPaginationResult(items, total, page), nil
}

func (g *MySQLGateway) queryAnswers(ctx context.Context, query string, args ...interface{}) ([]model.Answer, error) {
	rows, err := g.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list answers failed: %w", err)
	}
	defer rows.Close()

	out := make([]model.Answer, 0)
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan answer failed: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers failed: %w", err)
	}
	return out, nil
}

func (g *MySQLGateway) AcceptAnswer(ctx context.Context, questionID, answerID string, activity *model.Activity) error {
	return g.db.Transaction(ctx, func(tx db.Transaction) error {
		var owner string
		if err := tx.QueryRow(ctx, "SELECT question_id FROM answers WHERE id = ? FOR UPDATE", answerID).Scan(&owner); err != nil {
			if db.IsNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("read answer failed: %w", err)
		}
		if owner != questionID {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, "UPDATE answers SET accepted = (id = ?) WHERE question_id = ?", answerID, questionID); err != nil {
			return fmt.Errorf("accept answer failed: %w", err)
		}
		return insertSideEffects(ctx, tx, nil, activity)
	})
}

func (g *MySQLGateway) AdjustAnswerVotes(ctx context.Context, id string, delta int64) (int64, error) {
	return g.adjustCounter(ctx, "answers", "votes", id, delta)
}

func (g *MySQLGateway) CountAnswers(ctx context.Context) (int64, error) {
	return g.count(ctx, "SELECT COUNT(*) FROM answers")
}

func (g *MySQLGateway) AnswerStats(ctx context.Context, authorID string) (model.AnswerCounts, error) {
	query := "SELECT COUNT(*), COALESCE(SUM(accepted), 0), COALESCE(SUM(votes), 0) FROM answers WHERE author_id = ?"
	var c model.AnswerCounts
	if err := g.db.QueryRow(ctx, query, authorID).Scan(&c.Total, &c.Accepted, &c.Votes); err != nil {
		return model.AnswerCounts{}, fmt.Errorf("answer stats failed: %w", err)
	}
	return c, nil
}

func scanAnswer(scanner db.Scanner) (*model.Answer, error) {
	var a model.Answer
	if err := scanner.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.AuthorName, &a.Body, &a.Votes, &a.Accepted, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
