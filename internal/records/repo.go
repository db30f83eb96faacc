package records

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

type RecordsRepo interface {
	ListPatients(ctx context.Context) ([]Patient, error)
	ListEquipment(ctx context.Context) ([]Equipment, error)
	ListStaff(ctx context.Context) ([]StaffMember, error)
}

const (
	listPatientsQuery = `
						SELECT id, full_name, ward, admitted_at
						FROM patients
						ORDER BY admitted_at DESC
						LIMIT 500
						`
	listEquipmentQuery = `
						SELECT id, name, status, location
						FROM equipment
						ORDER BY name
						`
	listStaffQuery = `
						SELECT id, username, role
						FROM persons
						WHERE role <> 'patient' AND is_deleted = false
						ORDER BY username
						`
)

type recordsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRecordsRepo(db *sql.DB, logger *zap.Logger) RecordsRepo {
	return &recordsRepo{db: db, logger: logger}
}

func (r *recordsRepo) ListPatients(ctx context.Context) ([]Patient, error) {
	return list(ctx, r, listPatientsQuery, func(rows *sql.Rows) (Patient, error) {
		var p Patient
		err := rows.Scan(&p.ID, &p.FullName, &p.Ward, &p.AdmittedAt)
		return p, err
	})
}

func (r *recordsRepo) ListEquipment(ctx context.Context) ([]Equipment, error) {
	return list(ctx, r, listEquipmentQuery, func(rows *sql.Rows) (Equipment, error) {
		var e Equipment
		err := rows.Scan(&e.ID, &e.Name, &e.Status, &e.Location)
		return e, err
	})
}

func (r *recordsRepo) ListStaff(ctx context.Context) ([]StaffMember, error) {
	return list(ctx, r, listStaffQuery, func(rows *sql.Rows) (StaffMember, error) {
		var s StaffMember
		err := rows.Scan(&s.ID, &s.Username, &s.Role)
		return s, err
	})
}

func list[T any](ctx context.Context, r *recordsRepo, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("list query failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			r.logger.Error("failed to scan row", zap.Error(err))
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("row iteration failed", zap.Error(err))
		return nil, err
	}
	return out, nil
}
