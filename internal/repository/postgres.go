package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/rewards-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при сериализационных и сетевых сбоях.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// UserExists сообщает, существует ли пользователь с указанным идентификатором.
func (r *PostgresRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return exists, nil
}

// GetOrCreateAccount возвращает счёт пользователя, создавая его при первой необходимости.
func (r *PostgresRepository) GetOrCreateAccount(ctx context.Context, userID int64) (*model.PointsAccount, error) {
	var acc model.PointsAccount

	err := r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO points_accounts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}

		row := r.pool.QueryRow(ctx,
			`SELECT user_id, current_balance, pending_points, total_earned, total_redeemed, last_updated_at
			 FROM points_accounts
			 WHERE user_id = $1`,
			userID,
		)
		if err := row.Scan(&acc.UserID, &acc.CurrentBalance, &acc.PendingPoints,
			&acc.TotalEarned, &acc.TotalRedeemed, &acc.LastUpdatedAt); err != nil {
			return fmt.Errorf("select account: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &acc, nil
}

// SaveAccount сохраняет состояние счёта пользователя. Строка счёта блокируется
// для сериализации конкурентных изменений баланса.
func (r *PostgresRepository) SaveAccount(ctx context.Context, acc *model.PointsAccount) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM points_accounts WHERE user_id = $1 FOR UPDATE`, acc.UserID).Scan(&dummy)
		if err != nil {
			return fmt.Errorf("lock account for update: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE points_accounts
			 SET current_balance = $2, pending_points = $3, total_earned = $4, total_redeemed = $5, last_updated_at = $6
			 WHERE user_id = $1`,
			acc.UserID, acc.CurrentBalance, acc.PendingPoints, acc.TotalEarned, acc.TotalRedeemed, acc.LastUpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		return tx.Commit(ctx)
	})
}

// AddTransaction добавляет запись в журнал операций с баллами.
func (r *PostgresRepository) AddTransaction(ctx context.Context, t *model.PointsTransaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO points_transactions (id, user_id, points, category, origin, source_id, description, balance_after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.UserID, t.Points, string(t.Category), string(t.Origin),
		t.SourceID, t.Description, t.BalanceAfter, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

// GetTransactionsByUser возвращает журнал операций пользователя в порядке создания.
func (r *PostgresRepository) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.PointsTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, points, category, origin, source_id, description, balance_after, created_at
		 FROM points_transactions
		 WHERE user_id = $1
		 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.PointsTransaction
	for rows.Next() {
		var (
			t        model.PointsTransaction
			category string
			origin   string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Points, &category, &origin,
			&t.SourceID, &t.Description, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Category = model.TransactionCategory(category)
		t.Origin = model.TransactionOrigin(origin)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SumAwardedPointsForMonth возвращает сумму баллов, начисленных администратором
// участникам событий в указанном месяце.
func (r *PostgresRepository) SumAwardedPointsForMonth(ctx context.Context, awardedBy string, year int, month time.Month) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(points_awarded), 0)
		 FROM event_participants
		 WHERE awarded_by = $1
		   AND points_awarded IS NOT NULL
		   AND date_trunc('month', awarded_at) = make_date($2, $3, 1)`,
		awardedBy, year, int(month),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum awarded points: %w", err)
	}

	return total, nil
}

// GetInventory возвращает позицию склада для товара.
func (r *PostgresRepository) GetInventory(ctx context.Context, productID int64) (*model.InventoryItem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT product_id, quantity_available, quantity_reserved, reorder_level, last_updated
		 FROM inventory_items
		 WHERE product_id = $1`,
		productID,
	)

	var item model.InventoryItem
	err := row.Scan(&item.ProductID, &item.QuantityAvailable, &item.QuantityReserved,
		&item.ReorderLevel, &item.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryNotFound
		}
		return nil, fmt.Errorf("get inventory: %w", err)
	}

	return &item, nil
}

// SaveInventory сохраняет позицию склада, создавая её при отсутствии.
func (r *PostgresRepository) SaveInventory(ctx context.Context, item *model.InventoryItem) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO inventory_items (product_id, quantity_available, quantity_reserved, reorder_level, last_updated)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (product_id) DO UPDATE
			 SET quantity_available = EXCLUDED.quantity_available,
			     quantity_reserved = EXCLUDED.quantity_reserved,
			     reorder_level = EXCLUDED.reorder_level,
			     last_updated = EXCLUDED.last_updated`,
			item.ProductID, item.QuantityAvailable, item.QuantityReserved, item.ReorderLevel, item.LastUpdated,
		)
		if err != nil {
			return fmt.Errorf("save inventory: %w", err)
		}
		return nil
	})
}

// ListInventoryBelowReorder возвращает позиции, свободный остаток которых достиг порога дозаказа.
func (r *PostgresRepository) ListInventoryBelowReorder(ctx context.Context) ([]model.InventoryItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, quantity_available, quantity_reserved, reorder_level, last_updated
		 FROM inventory_items
		 WHERE quantity_available <= reorder_level
		 ORDER BY product_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select inventory below reorder: %w", err)
	}
	defer rows.Close()

	var res []model.InventoryItem
	for rows.Next() {
		var item model.InventoryItem
		if err := rows.Scan(&item.ProductID, &item.QuantityAvailable, &item.QuantityReserved,
			&item.ReorderLevel, &item.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		res = append(res, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateRedemption сохраняет новую заявку на обмен.
func (r *PostgresRepository) CreateRedemption(ctx context.Context, red *model.Redemption) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO redemptions (id, user_id, product_id, points_spent, quantity, status, requested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		red.ID, red.UserID, red.ProductID, red.PointsSpent, red.Quantity, string(red.Status), red.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}

	return nil
}

// GetRedemption возвращает заявку на обмен по идентификатору.
func (r *PostgresRepository) GetRedemption(ctx context.Context, id uuid.UUID) (*model.Redemption, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, product_id, points_spent, quantity, status, requested_at,
		        approved_at, approved_by, delivered_at, delivered_by, rejection_reason
		 FROM redemptions
		 WHERE id = $1`,
		id,
	)

	red, err := scanRedemption(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("get redemption: %w", err)
	}

	return red, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRedemption(row rowScanner) (*model.Redemption, error) {
	var (
		red    model.Redemption
		status string
	)
	err := row.Scan(&red.ID, &red.UserID, &red.ProductID, &red.PointsSpent, &red.Quantity,
		&status, &red.RequestedAt, &red.ApprovedAt, &red.ApprovedBy,
		&red.DeliveredAt, &red.DeliveredBy, &red.RejectionReason)
	if err != nil {
		return nil, err
	}
	red.Status = model.RedemptionStatus(status)
	return &red, nil
}

// UpdateRedemption сохраняет изменённое состояние заявки.
func (r *PostgresRepository) UpdateRedemption(ctx context.Context, red *model.Redemption) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE redemptions
		 SET status = $2, approved_at = $3, approved_by = $4, delivered_at = $5, delivered_by = $6, rejection_reason = $7
		 WHERE id = $1`,
		red.ID, string(red.Status), red.ApprovedAt, red.ApprovedBy,
		red.DeliveredAt, red.DeliveredBy, red.RejectionReason,
	)
	if err != nil {
		return fmt.Errorf("update redemption: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrRedemptionNotFound
	}

	return nil
}

// GetRedemptionsByUser возвращает заявки пользователя, новые первыми.
func (r *PostgresRepository) GetRedemptionsByUser(ctx context.Context, userID int64) ([]model.Redemption, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, product_id, points_spent, quantity, status, requested_at,
		        approved_at, approved_by, delivered_at, delivered_by, rejection_reason
		 FROM redemptions
		 WHERE user_id = $1
		 ORDER BY requested_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select redemptions: %w", err)
	}
	defer rows.Close()

	var res []model.Redemption
	for rows.Next() {
		red, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		res = append(res, *red)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// HasPendingRedemption сообщает, есть ли у пользователя необработанная заявка на этот товар.
func (r *PostgresRepository) HasPendingRedemption(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM redemptions
		   WHERE user_id = $1 AND product_id = $2 AND status = $3
		 )`,
		userID, productID, string(model.RedemptionStatusPending),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending redemption: %w", err)
	}

	return exists, nil
}

// CreateParticipant регистрирует участника события.
func (r *PostgresRepository) CreateParticipant(ctx context.Context, p *model.EventParticipant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO event_participants (id, event_id, user_id, status, registered_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.EventID, p.UserID, string(p.Status), p.RegisteredAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrParticipantExists
		}
		return fmt.Errorf("insert participant: %w", err)
	}

	return nil
}

// GetParticipant возвращает участника события по идентификатору.
func (r *PostgresRepository) GetParticipant(ctx context.Context, id uuid.UUID) (*model.EventParticipant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, event_id, user_id, status, points_awarded, event_rank,
		        registered_at, checked_in_at, awarded_at, awarded_by
		 FROM event_participants
		 WHERE id = $1`,
		id,
	)

	var (
		p      model.EventParticipant
		status string
	)
	err := row.Scan(&p.ID, &p.EventID, &p.UserID, &status, &p.PointsAwarded, &p.EventRank,
		&p.RegisteredAt, &p.CheckedInAt, &p.AwardedAt, &p.AwardedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	p.Status = model.AttendanceStatus(status)

	return &p, nil
}

// UpdateParticipant сохраняет изменённое состояние участника.
func (r *PostgresRepository) UpdateParticipant(ctx context.Context, p *model.EventParticipant) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE event_participants
		 SET status = $2, points_awarded = $3, event_rank = $4, checked_in_at = $5, awarded_at = $6, awarded_by = $7
		 WHERE id = $1`,
		p.ID, string(p.Status), p.PointsAwarded, p.EventRank, p.CheckedInAt, p.AwardedAt, p.AwardedBy,
	)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrParticipantNotFound
	}

	return nil
}
