package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgStore struct {
	pool querier
}

// NewPgStore accepts a *pgxpool.Pool or anything with the same methods.
func NewPgStore(pool querier) *PgStore {
	if pool == nil {
		panic("doctor: pgx pool required")
	}
	return &PgStore{pool: pool}
}

const selectDoctors = `
	SELECT id, name, specialty, to_char(work_start, 'HH24:MI'), to_char(work_end, 'HH24:MI')
	FROM doctors
`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *PgStore) List(ctx context.Context) ([]Doctor, error) {
	rows, err := s.pool.Query(ctx, selectDoctors+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("doctor: list: %w", err)
	}
	return collectDoctors(rows)
}

func (s *PgStore) Find(ctx context.Context, q Query) ([]Doctor, error) {
	var column string
	switch q.Field {
	case FieldName:
		column = "name"
	case FieldSpecialty:
		column = "specialty"
	default:
		return nil, fmt.Errorf("doctor: unsupported field %q", q.Field)
	}

	// mirrors normalize(): lower case with whitespace runs collapsed
	normalized := fmt.Sprintf(`lower(regexp_replace(btrim(%s), '\s+', ' ', 'g'))`, column)

	var (
		where string
		arg   string
	)
	if q.Mode == MatchSubstring {
		where = normalized + ` LIKE $1 ESCAPE '\'`
		arg = "%" + likeEscaper.Replace(normalize(q.Value)) + "%"
	} else {
		where = normalized + ` = $1`
		arg = normalize(q.Value)
	}

	rows, err := s.pool.Query(ctx, selectDoctors+" WHERE "+where+" ORDER BY name", arg)
	if err != nil {
		return nil, fmt.Errorf("doctor: query by %s: %w", q.Field, err)
	}
	return collectDoctors(rows)
}

func collectDoctors(rows pgx.Rows) ([]Doctor, error) {
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctor: iterate rows: %w", err)
	}

	return result, nil
}

func (s *PgStore) Specialties(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT specialty
		FROM doctors
		ORDER BY specialty
	`)
	if err != nil {
		return nil, fmt.Errorf("doctor: list specialties: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var sp string
		if err := rows.Scan(&sp); err != nil {
			return nil, err
		}
		result = append(result, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctor: iterate specialties: %w", err)
	}

	return result, nil
}

// Insert adds d to the catalog. A doctor whose name already exists is left
// as is and Insert reports false.
func (s *PgStore) Insert(ctx context.Context, d Doctor) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO doctors (id, name, specialty, work_start, work_end)
		VALUES ($1, $2, $3, $4::time, $5::time)
		ON CONFLICT DO NOTHING
	`, d.ID, d.Name, d.Specialty, d.WorkStart.String(), d.WorkEnd.String())
	if err != nil {
		return false, fmt.Errorf("doctor: insert %s: %w", d.Name, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var (
		d          Doctor
		start, end string
	)

	if err := row.Scan(&d.ID, &d.Name, &d.Specialty, &start, &end); err != nil {
		return nil, fmt.Errorf("doctor: scan: %w", err)
	}

	var err error
	if d.WorkStart, err = clock.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("doctor %s work_start: %w", d.ID, err)
	}
	if d.WorkEnd, err = clock.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("doctor %s work_end: %w", d.ID, err)
	}

	return &d, nil
}
