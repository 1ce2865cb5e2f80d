package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	log.Println("Connected to postgres!")
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "ledger_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// CreateProfile inserts a new profile. Phone and card uniqueness are
// enforced by constraints and mapped to distinct errors by constraint
// name, so both checks happen inside the same atomic write.
func (r *Repository) CreateProfile(ctx context.Context, profile *domain.UserProfile) error {
	query := `INSERT INTO users (tag_id, name, phone_number, credit_balance, created_at)
	          VALUES ($1, $2, $3, $4, NOW())`

	_, err := r.db.ExecContext(ctx, query,
		profile.TagID,
		profile.Name,
		profile.PhoneNumber,
		profile.CreditBalance)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_phone_number_key":
				return ErrPhoneInUse
			default:
				return ErrCardLinked
			}
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *Repository) GetProfile(ctx context.Context, tagID string) (*domain.UserProfile, error) {
	query := `SELECT tag_id, name, phone_number, credit_balance, last_transaction, created_at
	          FROM users WHERE tag_id = $1`

	var profile domain.UserProfile
	var lastTx sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tagID).Scan(
		&profile.TagID,
		&profile.Name,
		&profile.PhoneNumber,
		&profile.CreditBalance,
		&lastTx,
		&profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	if lastTx.Valid {
		profile.LastTransaction = &lastTx.Time
	}

	return &profile, nil
}

// Charge performs the balance deduction and order append as one
// transaction. The profile row is locked for the duration, the balance
// is decremented by exactly the order total, the order is inserted and
// an outbox event is enqueued. Any failure rolls everything back.
func (r *Repository) Charge(ctx context.Context, tagID string, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin charge transaction: %w", err)
	}
	defer tx.Rollback()

	var balance float64
	err = tx.QueryRowContext(ctx,
		`SELECT credit_balance FROM users WHERE tag_id = $1 FOR UPDATE`,
		tagID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotRegistered
	}
	if err != nil {
		return fmt.Errorf("lock profile: %w", err)
	}

	if balance < order.TotalAmount {
		return &InsufficientFundsError{Balance: balance}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET credit_balance = credit_balance - $1, last_transaction = NOW() WHERE tag_id = $2`,
		order.TotalAmount, tagID)
	if err != nil {
		return fmt.Errorf("deduct balance: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, order_date, total_amount, item_count, order_items)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID,
		order.UserID,
		order.OrderDate,
		order.TotalAmount,
		order.ItemCount,
		itemsJSON)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":     order.ID,
		"user_id":      order.UserID,
		"items":        order.Items,
		"total_amount": order.TotalAmount,
		"item_count":   order.ItemCount,
		"completed_at": order.OrderDate,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		order.ID.String(), "order.completed", payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit charge transaction: %w", err)
	}
	return nil
}

func (r *Repository) ListOrders(ctx context.Context, tagID string) ([]*domain.Order, error) {
	query := `SELECT id, user_id, order_date, total_amount, item_count, order_items
	          FROM orders WHERE user_id = $1 ORDER BY order_date DESC`

	rows, err := r.db.QueryContext(ctx, query, tagID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		var itemsJSON []byte
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.OrderDate,
			&order.TotalAmount,
			&order.ItemCount,
			&itemsJSON,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *Repository) UnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload
	          FROM outbox_events WHERE published_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.Scan(&event.ID, &event.AggregateID, &event.EventType, &event.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET published_at = $1 WHERE id = $2`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
