package person

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type PersonDTO struct {
	Email    string
	Username string
	Password string
	Role     Role
}

type PersonRepo interface {
	Create(ctx context.Context, dto *PersonDTO) (int64, error)
	FindByUsername(ctx context.Context, username string) (*Person, error)
	FindPrincipal(ctx context.Context, id int64) (*Principal, error)
}

type personRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPersonRepo(db *sql.DB, logger *zap.Logger) PersonRepo {
	return &personRepo{
		db:     db,
		logger: logger,
	}
}

const (
	insertPersonQuery = `
						INSERT INTO persons (email, username, password, role, is_active, is_deleted)
						VALUES ($1, $2, $3, $4, $5, $6)
						RETURNING id, created_at, updated_at
						`
	findPersonByUsernameQuery = `
						SELECT id, email, username, password, role, is_active, is_deleted, created_at, updated_at
						FROM persons
						WHERE username = $1
						LIMIT 1
						`
	findPrincipalQuery = `
						SELECT id, username, role
						FROM persons
						WHERE id = $1 AND is_active = true AND is_deleted = false
						LIMIT 1
						`
)

func (p *personRepo) Create(ctx context.Context, dto *PersonDTO) (int64, error) {
	row := p.db.QueryRowContext(ctx,
		insertPersonQuery,
		strings.ToLower(strings.TrimSpace(dto.Email)),
		strings.TrimSpace(dto.Username),
		dto.Password,
		dto.Role,
		true,
		false,
	)

	var id int64
	var createdAt, updatedAt time.Time

	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		// context canceled/deadline
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			p.logger.Warn("create person canceled/timed out", zap.Error(err))
			return 0, err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.UniqueViolation {
				switch pgErr.ConstraintName {
				case "persons_email_key":
					p.logger.Debug("duplicate email", zap.String("email", dto.Email))
					return 0, ErrDuplicateEmail
				case "persons_username_key":
					p.logger.Debug("duplicate username", zap.String("username", dto.Username))
					return 0, ErrDuplicateUsername
				default:
					// unique index on lower(email) reports the expression in the detail
					det := strings.ToLower(pgErr.Detail)
					if strings.Contains(det, "lower(email)") || strings.Contains(det, "(email)") {
						return 0, ErrDuplicateEmail
					}
					if strings.Contains(det, "(username)") {
						return 0, ErrDuplicateUsername
					}
				}
			}
			p.logger.Error("postgres error",
				zap.String("code", pgErr.Code),
				zap.String("msg", pgErr.Message),
				zap.String("detail", pgErr.Detail),
			)
			return 0, err
		}

		p.logger.Error("driver/scan error", zap.Error(err))
		return 0, err
	}

	p.logger.Debug("person created",
		zap.Int64("id", id),
		zap.String("role", string(dto.Role)),
	)

	return id, nil
}

func (p *personRepo) FindByUsername(ctx context.Context, username string) (*Person, error) {
	row := p.db.QueryRowContext(ctx, findPersonByUsernameQuery, strings.TrimSpace(username))

	var rec Person
	err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.Username,
		&rec.Password,
		&rec.Role,
		&rec.IsActive,
		&rec.IsDeleted,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Error("failed to find person by username", zap.Error(err))
		return nil, err
	}
	return &rec, nil
}

// FindPrincipal resolves a live principal. Deactivated and deleted
// accounts do not resolve.
func (p *personRepo) FindPrincipal(ctx context.Context, id int64) (*Principal, error) {
	row := p.db.QueryRowContext(ctx, findPrincipalQuery, id)

	var pr Principal
	if err := row.Scan(&pr.ID, &pr.Username, &pr.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Error("failed to resolve principal", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return &pr, nil
}
