// Package postgres is the concrete job store adapter (C10, SPEC_FULL.md
// §4.10). It is the only part of the repository that knows the schema; the
// core planning algorithm sees only internal/store.JobStore.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/store"
)

// Store implements store.JobStore against Postgres.
type Store struct {
	db *sqlx.DB
}

// New opens a connection pool against databaseURL and verifies it with a
// ping, grounded on the teacher's repository.NewDatabase.
func New(databaseURL string, maxOpenConns, maxIdleConns int) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.JobStore = (*Store)(nil)

type technicianRow struct {
	ID          int             `db:"id"`
	VanID       sql.NullString  `db:"van_id"`
	CurrentLat  sql.NullFloat64 `db:"current_lat"`
	CurrentLng  sql.NullFloat64 `db:"current_lng"`
	HomeLat     sql.NullFloat64 `db:"home_lat"`
	HomeLng     sql.NullFloat64 `db:"home_lng"`
}

// GetActiveTechnicians returns every active technician with van id, current
// coordinate, and home coordinate joined in (spec.md §6).
func (s *Store) GetActiveTechnicians(ctx context.Context) ([]domain.Technician, error) {
	const query = `
		SELECT id, van_id, current_lat, current_lng, home_lat, home_lng
		FROM technicians
		WHERE active = true
		ORDER BY id ASC`

	var rows []technicianRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select active technicians: %w", err)
	}

	technicians := make([]domain.Technician, 0, len(rows))
	for _, row := range rows {
		tech := domain.Technician{ID: domain.TechnicianID(row.ID)}

		if row.VanID.Valid {
			parsed, err := parseUUID(row.VanID.String)
			if err != nil {
				return nil, fmt.Errorf("technician %d: van id: %w", row.ID, err)
			}
			vanID := domain.VanID(parsed)
			tech.VanID = &vanID
		}
		if row.CurrentLat.Valid && row.CurrentLng.Valid {
			tech.Current = &domain.Coordinate{Lat: row.CurrentLat.Float64, Lng: row.CurrentLng.Float64}
		}
		if row.HomeLat.Valid && row.HomeLng.Valid {
			tech.Home = &domain.Coordinate{Lat: row.HomeLat.Float64, Lng: row.HomeLng.Float64}
		}

		technicians = append(technicians, tech)
	}
	return technicians, nil
}

// GetRelevantJobs returns every job with status in
// {queued, en_route, in_progress, fixed_time} (spec.md §6).
func (s *Store) GetRelevantJobs(ctx context.Context) ([]domain.Job, error) {
	return s.getJobsByStatus(ctx, []domain.JobStatus{
		domain.StatusQueued,
		domain.StatusEnRoute,
		domain.StatusInProgress,
		domain.StatusFixedTime,
	})
}

// GetJobsByStatus is reserved per spec.md §9's Open Question; it exists so
// the store is independently testable even though the orchestrator never
// calls it.
func (s *Store) GetJobsByStatus(ctx context.Context, statuses []domain.JobStatus) ([]domain.Job, error) {
	return s.getJobsByStatus(ctx, statuses)
}

type jobRow struct {
	ID                 int            `db:"id"`
	OrderID             int            `db:"order_id"`
	Lat                 float64        `db:"lat"`
	Lng                 float64        `db:"lng"`
	Priority             int            `db:"priority"`
	DurationMinutes      int            `db:"duration_minutes"`
	ServiceCategory      string         `db:"service_category"`
	ServiceID            int            `db:"service_id"`
	Status               string         `db:"status"`
	FixedStartTime       sql.NullTime   `db:"fixed_start_time"`
	AssignedTechnician   sql.NullInt64  `db:"assigned_technician"`
	EstimatedStart       sql.NullTime   `db:"estimated_start"`
}

func (s *Store) getJobsByStatus(ctx context.Context, statuses []domain.JobStatus) ([]domain.Job, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	const query = `
		SELECT id, order_id, lat, lng, priority, duration_minutes,
		       service_category, service_id, status, fixed_start_time,
		       assigned_technician, estimated_start
		FROM jobs
		WHERE status = ANY($1)
		ORDER BY id ASC`

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("select jobs by status: %w", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for _, row := range rows {
		job := domain.Job{
			ID:              domain.JobID(row.ID),
			OrderID:         domain.OrderID(row.OrderID),
			Address:         domain.Coordinate{Lat: row.Lat, Lng: row.Lng},
			Priority:        row.Priority,
			DurationMinutes: row.DurationMinutes,
			ServiceCategory: row.ServiceCategory,
			ServiceID:       row.ServiceID,
			Status:          domain.JobStatus(row.Status),
		}
		if row.FixedStartTime.Valid {
			t := row.FixedStartTime.Time
			job.FixedStartTime = &t
		}
		if row.AssignedTechnician.Valid {
			techID := domain.TechnicianID(row.AssignedTechnician.Int64)
			job.AssignedTechnician = &techID
		}
		if row.EstimatedStart.Valid {
			t := row.EstimatedStart.Time
			job.EstimatedStart = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// GetEquipmentForVans batch-fetches equipment inventories for the given
// vans, grounded on equipment_repository.go's batch-by-ids shape.
func (s *Store) GetEquipmentForVans(ctx context.Context, vanIDs []domain.VanID) (map[domain.VanID][]domain.EquipmentItem, error) {
	result := make(map[domain.VanID][]domain.EquipmentItem, len(vanIDs))
	if len(vanIDs) == 0 {
		return result, nil
	}

	ids := make([]string, len(vanIDs))
	for i, id := range vanIDs {
		ids[i] = formatUUID(id)
	}

	const query = `
		SELECT id, van_id, model
		FROM equipment
		WHERE van_id = ANY($1)
		ORDER BY van_id ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select equipment for vans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idStr, vanIDStr, model string
		if err := rows.Scan(&idStr, &vanIDStr, &model); err != nil {
			return nil, fmt.Errorf("scan equipment row: %w", err)
		}
		parsedID, err := parseUUID(idStr)
		if err != nil {
			return nil, fmt.Errorf("equipment id: %w", err)
		}
		parsedVanID, err := parseUUID(vanIDStr)
		if err != nil {
			return nil, fmt.Errorf("equipment van id: %w", err)
		}
		vanID := domain.VanID(parsedVanID)
		result[vanID] = append(result[vanID], domain.EquipmentItem{
			ID:    domain.EquipmentID(parsedID),
			Model: model,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equipment rows: %w", err)
	}

	return result, nil
}

// GetRequiredEquipmentForJob derives a job's required equipment models from
// its (service category, service id, order's ymm id) per spec.md §6. Empty
// if undeterminable, matching the interface's documented fallback.
func (s *Store) GetRequiredEquipmentForJob(ctx context.Context, job domain.Job) ([]string, error) {
	ymmID, err := s.GetYmmIdForOrder(ctx, job.OrderID)
	if err != nil {
		return nil, fmt.Errorf("ymm id for order %d: %w", job.OrderID, err)
	}
	if ymmID == 0 {
		return nil, nil
	}

	const query = `
		SELECT model
		FROM equipment_requirements
		WHERE service_category = $1 AND service_id = $2 AND ymm_id = $3
		ORDER BY model ASC`

	var models []string
	if err := s.db.SelectContext(ctx, &models, query, job.ServiceCategory, job.ServiceID, ymmID); err != nil {
		return nil, fmt.Errorf("select equipment requirements: %w", err)
	}
	return models, nil
}

// GetYmmIdForOrder returns the integer id keying the equipment requirements
// table for an order's vehicle. Returns 0, nil when the order has none on
// file.
func (s *Store) GetYmmIdForOrder(ctx context.Context, orderID domain.OrderID) (int, error) {
	const query = `SELECT ymm_id FROM orders WHERE id = $1`

	var ymmID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, int(orderID)).Scan(&ymmID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select order ymm id: %w", err)
	}
	if !ymmID.Valid {
		return 0, nil
	}
	return int(ymmID.Int64), nil
}

// ApplyUpdates applies a batch of job updates in one transaction. Per
// spec.md §7, this single-call form is transactional by virtue of being one
// call; the per-job aggregate-failure semantics of C9 come from
// calling ApplyUpdates with one-entry batches concurrently, not from this
// method doing its own partial-failure bookkeeping.
func (s *Store) ApplyUpdates(ctx context.Context, updates []store.JobUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const query = `
		UPDATE jobs SET
			status = $2,
			assigned_technician = $3,
			estimated_start = $4
		WHERE id = $1`

	for _, u := range updates {
		var techID interface{}
		if u.AssignedTechnician != nil {
			techID = int(*u.AssignedTechnician)
		}
		var sched interface{}
		if u.EstimatedSched != nil {
			sched = *u.EstimatedSched
		}

		result, err := tx.ExecContext(ctx, query, int(u.JobID), string(u.Status), techID, sched)
		if err != nil {
			return fmt.Errorf("update job %d: %w", u.JobID, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected for job %d: %w", u.JobID, err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("job %d not found", u.JobID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
