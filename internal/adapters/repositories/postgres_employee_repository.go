package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"
)

// Postgres-backed implementation of the EmployeeRepository port.
type PostgresEmployeeRepository struct{ DB *sql.DB }

func NewPostgresEmployeeRepository(db *sql.DB) *PostgresEmployeeRepository {
	return &PostgresEmployeeRepository{DB: db}
}

// Return the employees selected by filter, ordered by id.
func (s *PostgresEmployeeRepository) ListEmployees(
	ctx context.Context,
	filter ports.EmployeeFilter,
) (_ []domain.Employee, err error) {
	defer obs.Time(ctx, "employees.List")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres employee repository: DB is nil")
	}

	query := `
	SELECT id, name, lat, lng, shift_id
	FROM employees
	`
	var args []any
	switch {
	case len(filter.IDs) > 0:
		query += "WHERE id = ANY($1::bigint[])\n"
		args = append(args, filter.IDs)
	case filter.ShiftID != nil:
		query += "WHERE shift_id = $1\n"
		args = append(args, *filter.ShiftID)
	}
	query += "ORDER BY id;"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list employees: query employees table: %w", err)
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 64)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("list employees: scan row: %w", err)
		}
		employees = append(employees, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list employees: row iteration: %w", err)
	}

	return employees, nil
}

func (s *PostgresEmployeeRepository) GetEmployee(ctx context.Context, id int64) (domain.Employee, error) {
	if s.DB == nil {
		return domain.Employee{}, errors.New("postgres employee repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `
	SELECT id, name, lat, lng, shift_id
	FROM employees
	WHERE id = $1;
	`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Employee{}, fmt.Errorf("employee %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Employee{}, fmt.Errorf("get employee %d: %w", id, err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(r scanner) (domain.Employee, error) {
	var e domain.Employee
	var shift sql.NullInt64
	if err := r.Scan(&e.ID, &e.Name, &e.Home.Lat, &e.Home.Lng, &shift); err != nil {
		return domain.Employee{}, err
	}
	if shift.Valid {
		v := shift.Int64
		e.ShiftID = &v
	}
	return e, nil
}
