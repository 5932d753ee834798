package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"stackit/internal/common/cache"
	"stackit/internal/common/db"
	"stackit/internal/forum/model"
	pkgrepo "stackit/pkg/repository"
)

//go:embed schema.sql
var schemaSQL string

// MySQLGateway persists the forum in MySQL. User lookups go through Redis when a
// cache is configured; everything else reads the database directly.
type MySQLGateway struct {
	db    db.Database
	users *userCache
}

// NewMySQLGateway wraps database. cacheClient may be nil.
func NewMySQLGateway(database db.Database, cacheClient cache.Cache) *MySQLGateway {
	g := &MySQLGateway{db: database}
	if cacheClient != nil {
		g.users = newUserCache(cacheClient)
	}
	return g
}

// Migrate creates missing tables.
func (g *MySQLGateway) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := g.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema failed: %w", err)
		}
	}
	return nil
}

func (g *MySQLGateway) Close() error {
	return g.db.Close()
}

func insertSideEffects(ctx context.Context, q db.Querier, note *model.Notification, activity *model.Activity) error {
	if note != nil {
		if err := insertNotification(ctx, q, note); err != nil {
			return err
		}
	}
	if activity != nil {
		if err := insertActivity(ctx, q, activity); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = "id, name, email, password_hash, role, created_at"

func (g *MySQLGateway) CreateUser(ctx context.Context, user *model.User, activity *model.Activity) error {
	err := g.db.Transaction(ctx, func(tx db.Transaction) error {
		query := "INSERT INTO users (" + userColumns + ") VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := tx.Exec(ctx, query, user.ID, user.Name, normalizeEmail(user.Email), user.PasswordHash, string(user.Role), user.CreatedAt); err != nil {
			if _, dup := db.UniqueViolation(err); dup {
				return ErrAlreadyExists
			}
			return fmt.Errorf("insert user failed: %w", err)
		}
		return insertSideEffects(ctx, tx, nil, activity)
	})
	if err != nil {
		return err
	}
	if g.users != nil {
		g.users.forget(ctx, user)
	}
	return nil
}

func (g *MySQLGateway) GetUser(ctx context.Context, id string) (*model.User, error) {
	load := func(ctx context.Context) (*model.User, error) {
		return g.loadUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	}
	if g.users != nil {
		return g.users.getByID(ctx, id, load)
	}
	return orNotFound(load(ctx))
}

func (g *MySQLGateway) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	load := func(ctx context.Context) (*model.User, error) {
		return g.loadUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email))
	}
	if g.users != nil {
		return g.users.getByEmail(ctx, email, load)
	}
	return orNotFound(load(ctx))
}

// loadUser returns nil without error for a missing row so the cache can record the miss.
func (g *MySQLGateway) loadUser(ctx context.Context, query string, arg string) (*model.User, error) {
	user, err := scanUser(g.db.QueryRow(ctx, query, arg))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user failed: %w", err)
	}
	return user, nil
}

func orNotFound(user *model.User, err error) (*model.User, error) {
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (g *MySQLGateway) ListUsers(ctx context.Context, page PageRequest) (UserPage, error) {
	page = page.Normalize()
	total, err := g.CountUsers(ctx)
	if err != nil {
		return UserPage{}, err
	}
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"
	rows, err := g.db.Query(ctx, query, page.PageSize, page.Offset())
	if err != nil {
		return UserPage{}, fmt.Errorf("list users failed: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, page.PageSize)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return UserPage{}, fmt.Errorf("scan user failed: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return UserPage{}, fmt.Errorf("iterate users failed: %w", err)
	}
	return pkgrepo.NewPaginationResult(users, total, page), nil
}

func (g *MySQLGateway) CountUsers(ctx context.Context) (int64, error) {
	return g.count(ctx, "SELECT COUNT(*) FROM users")
}

func (g *MySQLGateway) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := g.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

func scanUser(scanner db.Scanner) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

func insertNotification(ctx context.Context, q db.Querier, n *model.Notification) error {
	if n.Payload == nil {
		return errors.New("notification payload is required")
	}
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encode notification payload failed: %w", err)
	}
	query := "INSERT INTO notifications (id, user_id, type, title, message, is_read, payload, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := q.Exec(ctx, query, n.ID, n.UserID, string(n.Type()), n.Title, n.Message, n.Read, string(payload), n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification failed: %w", err)
	}
	return nil
}

func insertActivity(ctx context.Context, q db.Querier, a *model.Activity) error {
	query := "INSERT INTO activities (id, type, actor_id, question_id, answer_id, title, description, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := q.Exec(ctx, query, a.ID, string(a.Type), a.ActorID, a.QuestionID, a.AnswerID, a.Title, a.Description, a.CreatedAt); err != nil {
		return fmt.Errorf("insert activity failed: %w", err)
	}
	return nil
}
