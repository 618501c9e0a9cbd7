package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tradeworks/backoffice_api/internal/models"
)

// ScheduleRepository handles data access for schedule tasks and timesheets.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// TaskFilter holds filters for schedule task queries.
type TaskFilter struct {
	ResourceID *int
	Status     string
	From       *time.Time
	To         *time.Time
}

const taskSelect = `
        SELECT t.*, c.full_name AS resource_name
        FROM schedule_tasks t
        LEFT JOIN contacts c ON c.id = t.resource_id`

// ListTasks returns tasks matching the filter ordered by start date.
func (r *ScheduleRepository) ListTasks(filter *TaskFilter) ([]models.ScheduleTask, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.ResourceID != nil {
		where += fmt.Sprintf(` AND t.resource_id = $%d`, argIdx)
		args = append(args, *filter.ResourceID)
		argIdx++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(` AND t.status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.From != nil {
		where += fmt.Sprintf(` AND t.end_date >= $%d`, argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		where += fmt.Sprintf(` AND t.start_date <= $%d`, argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	var tasks []models.ScheduleTask
	if err := r.db.Select(&tasks, taskSelect+` `+where+` ORDER BY t.start_date, t.id`, args...); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTaskByID returns a single task by id.
func (r *ScheduleRepository) GetTaskByID(id int) (*models.ScheduleTask, error) {
	var t models.ScheduleTask
	if err := r.db.Get(&t, taskSelect+` WHERE t.id = $1 LIMIT 1`, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts a new schedule task.
func (r *ScheduleRepository) CreateTask(t *models.ScheduleTask) error {
	const q = `
        INSERT INTO schedule_tasks (title, resource_id, start_date, end_date, status, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRowx(q,
		t.Title, t.ResourceID, t.StartDate, t.EndDate, t.Status, t.Notes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// UpdateTask updates an existing schedule task.
func (r *ScheduleRepository) UpdateTask(t *models.ScheduleTask) error {
	const q = `
        UPDATE schedule_tasks
        SET title = $1, resource_id = $2, start_date = $3, end_date = $4,
            status = $5, notes = $6, updated_at = NOW()
        WHERE id = $7
        RETURNING updated_at`
	return r.db.QueryRowx(q,
		t.Title, t.ResourceID, t.StartDate, t.EndDate, t.Status, t.Notes, t.ID,
	).Scan(&t.UpdatedAt)
}

// DeleteTask removes a schedule task.
func (r *ScheduleRepository) DeleteTask(id int) error {
	res, err := r.db.Exec(`DELETE FROM schedule_tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateTimesheetEntry inserts a new timesheet entry.
func (r *ScheduleRepository) CreateTimesheetEntry(e *models.TimesheetEntry) error {
	const q = `
        INSERT INTO timesheet_entries (resource_id, work_date, start_minute, end_minute, task_id, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`
	return r.db.QueryRowx(q,
		e.ResourceID, e.WorkDate, e.StartMinute, e.EndMinute, e.TaskID, e.Notes,
	).Scan(&e.ID, &e.CreatedAt)
}

// ListTimesheetEntries returns a resource's entries for a date range.
func (r *ScheduleRepository) ListTimesheetEntries(resourceID int, from, to time.Time) ([]models.TimesheetEntry, error) {
	const q = `
        SELECT * FROM timesheet_entries
        WHERE resource_id = $1 AND work_date >= $2 AND work_date <= $3
        ORDER BY work_date, start_minute`
	var entries []models.TimesheetEntry
	if err := r.db.Select(&entries, q, resourceID, from, to); err != nil {
		return nil, err
	}
	return entries, nil
}

// FindOverlapping returns entries for the same resource and day whose time
// range intersects [startMinute, endMinute).
func (r *ScheduleRepository) FindOverlapping(resourceID int, workDate time.Time, startMinute, endMinute int) ([]models.TimesheetEntry, error) {
	const q = `
        SELECT * FROM timesheet_entries
        WHERE resource_id = $1 AND work_date = $2
          AND start_minute < $4 AND end_minute > $3
        ORDER BY start_minute`
	var entries []models.TimesheetEntry
	if err := r.db.Select(&entries, q, resourceID, workDate, startMinute, endMinute); err != nil {
		return nil, err
	}
	return entries, nil
}
