package models

import "time"

// ScheduleTaskStatus enumerates schedule task states.
type ScheduleTaskStatus string

const (
	TaskStatusPlanned    ScheduleTaskStatus = "planned"
	TaskStatusInProgress ScheduleTaskStatus = "in_progress"
	TaskStatusCompleted  ScheduleTaskStatus = "completed"
	TaskStatusCancelled  ScheduleTaskStatus = "cancelled"
)

// ScheduleTask is a dated unit of work optionally assigned to a resource
// (a contact). StartDate and EndDate are calendar dates, EndDate inclusive.
type ScheduleTask struct {
	ID         int                `db:"id" json:"id"`
	Title      string             `db:"title" json:"title"`
	ResourceID *int               `db:"resource_id" json:"resourceId,omitempty"`
	StartDate  time.Time          `db:"start_date" json:"startDate"`
	EndDate    time.Time          `db:"end_date" json:"endDate"`
	Status     ScheduleTaskStatus `db:"status" json:"status"`
	Notes      *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updatedAt"`

	ResourceName *string `db:"resource_name" json:"resourceName,omitempty"`
}

// TimesheetEntry books a resource for part of one day. Times are minutes
// from midnight so entries compare without timezone arithmetic.
type TimesheetEntry struct {
	ID          int       `db:"id" json:"id"`
	ResourceID  int       `db:"resource_id" json:"resourceId"`
	WorkDate    time.Time `db:"work_date" json:"workDate"`
	StartMinute int       `db:"start_minute" json:"startMinute"`
	EndMinute   int       `db:"end_minute" json:"endMinute"`
	TaskID      *int      `db:"task_id" json:"taskId,omitempty"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
