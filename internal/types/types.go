package types

import (
	"time"
)

type User struct {
	Id        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	Password  string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Project struct {
	Id          int           `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	OwnerId     int           `json:"owner_id"`
	IsActive    bool          `json:"is_active"`
	Stats       *ProjectStats `json:"stats,omitempty"`
	CreatedAt   time.Time     `json:"created_at,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at,omitempty"`
}

type ProjectStats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"in_progress"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
}

type Member struct {
	ProjectId int       `json:"project_id"`
	UserId    int       `json:"user_id"`
	Role      string    `json:"role"`
	UserName  string    `json:"user_name,omitempty"`
	UserEmail string    `json:"user_email,omitempty"`
	JoinedAt  time.Time `json:"joined_at,omitempty"`
}

type Task struct {
	Id            int        `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	ProjectId     int        `json:"project_id"`
	AssignedTo    *int       `json:"assigned_to"`
	CreatedBy     int        `json:"created_by"`
	DueDate       *time.Time `json:"due_date"`
	IsOverdue     bool       `json:"is_overdue"`
	CommentsCount int        `json:"comments_count"`
	Comments      []Comment  `json:"comments,omitempty"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty"`
}

type Comment struct {
	Id          int       `json:"id"`
	TaskId      int       `json:"task_id"`
	UserId      int       `json:"user_id"`
	CommentText string    `json:"comment_text"`
	AuthorName  string    `json:"author_name,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type DashboardStats struct {
	TotalProjects  int     `json:"total_projects"`
	TotalTasks     int     `json:"total_tasks"`
	AssignedTasks  int     `json:"assigned_tasks"`
	CreatedTasks   int     `json:"created_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	OverdueTasks   int     `json:"overdue_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

var taskStatuses = map[string]struct{}{
	StatusPending:    {},
	StatusInProgress: {},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

var taskPriorities = map[string]struct{}{
	PriorityLow:      {},
	PriorityMedium:   {},
	PriorityHigh:     {},
	PriorityCritical: {},
}

func ValidTaskStatus(status string) bool {
	_, ok := taskStatuses[status]
	return ok
}

func ValidTaskPriority(priority string) bool {
	_, ok := taskPriorities[priority]
	return ok
}

// IsOverdue reports whether a task with the given due date and status is
// past due. Completed and cancelled tasks are never overdue.
func IsOverdue(dueDate *time.Time, status string) bool {
	if dueDate == nil {
		return false
	}
	if status == StatusCompleted || status == StatusCancelled {
		return false
	}
	return time.Now().UTC().After(*dueDate)
}
