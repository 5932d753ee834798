package repository

import (
	"context"
	"fmt"

	"stackit/internal/common/db"
	"stackit/internal/forum/model"
	pkgrepo "stackit/pkg/repository"
)

const notificationColumns = "id, user_id, type, title, message, is_read, payload, created_at"

func (g *MySQLGateway) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page PageRequest) (NotificationPage, error) {
	page = page.Normalize()
	where := " WHERE user_id = ?"
	if unreadOnly {
		where += " AND is_read = 0"
	}
	total, err := g.count(ctx, "SELECT COUNT(*) FROM notifications"+where, userID)
	if err != nil {
		return NotificationPage{}, err
	}

	query := "SELECT " + notificationColumns + " FROM notifications" + where + " ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"
	rows, err := g.db.Query(ctx, query, userID, page.PageSize, page.Offset())
	if err != nil {
		return NotificationPage{}, fmt.Errorf("list notifications failed: %w", err)
	}
	defer rows.Close()

	items := make([]model.Notification, 0, page.PageSize)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return NotificationPage{}, err
		}
		items = append(items, *n)
	}
	if err := rows.Err(); err != nil {
		return NotificationPage{}, fmt.Errorf("iterate notifications failed: %w", err)
	}
	return pkgrepo.NewPaginationResult(items, total, page), nil
}

func (g *MySQLGateway) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	n, err := scanNotification(g.db.QueryRow(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (g *MySQLGateway) SetNotificationRead(ctx context.Context, id string, read bool) error {
	var exists int
	if err := g.db.QueryRow(ctx, "SELECT 1 FROM notifications WHERE id = ?", id).Scan(&exists); err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("check notification failed: %w", err)
	}
	if _, err := g.db.Exec(ctx, "UPDATE notifications SET is_read = ? WHERE id = ?", read, id); err != nil {
		return fmt.Errorf("update notification failed: %w", err)
	}
	return nil
}

func (g *MySQLGateway) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res, err := g.db.Exec(ctx, "UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0", userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read failed: %w", err)
	}
	return n, nil
}

func (g *MySQLGateway) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	return g.count(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0", userID)
}

func (g *MySQLGateway) ListActivity(ctx context.Context, page PageRequest) (ActivityPage, error) {
	page = page.Normalize()
	total, err := g.count(ctx, "SELECT COUNT(*) FROM activities")
	if err != nil {
		return ActivityPage{}, err
	}
	query := "SELECT id, type, actor_id, question_id, answer_id, title, description, created_at FROM activities " +
		"ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"
	rows, err := g.db.Query(ctx, query, page.PageSize, page.Offset())
	if err != nil {
		return ActivityPage{}, fmt.Errorf("list activity failed: %w", err)
	}
	defer rows.Close()

	items := make([]model.Activity, 0, page.PageSize)
	for rows.Next() {
		var (
			a   model.Activity
			typ string
		)
		if err := rows.Scan(&a.ID, &typ, &a.ActorID, &a.QuestionID, &a.AnswerID, &a.Title, &a.Description, &a.CreatedAt); err != nil {
			return ActivityPage{}, fmt.Errorf("scan activity failed: %w", err)
		}
		a.Type = model.ActivityType(typ)
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return ActivityPage{}, fmt.Errorf("iterate activity failed: %w", err)
	}
	return pkgrepo.NewPaginationResult(items, total, page), nil
}

func scanNotification(scanner db.Scanner) (*model.Notification, error) {
	var (
		n       model.Notification
		typ     string
		payload []byte
	)
	if err := scanner.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.Read, &payload, &n.CreatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan notification failed: %w", err)
	}
	decoded, err := model.DecodeNotificationPayload(model.NotificationType(typ), payload)
	if err != nil {
		return nil, err
	}
	n.Payload = decoded
	return &n, nil
}
