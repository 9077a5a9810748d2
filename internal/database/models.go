package database

import "time"

type User struct {
	Id           int
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Project struct {
	Id          int
	Name        string
	Description string
	OwnerId     int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProjectMember struct {
	ProjectId int
	UserId    int
	Role      string
	UserName  string
	UserEmail string
	JoinedAt  time.Time
}

type Task struct {
	Id            int
	Title         string
	Description   string
	Status        string
	Priority      string
	ProjectId     int
	AssignedTo    *int
	CreatedBy     int
	DueDate       *time.Time
	CommentsCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Comment struct {
	Id          int
	TaskId      int
	UserId      int
	CommentText string
	AuthorName  string
	CreatedAt   time.Time
}

type ProjectStats struct {
	Total      int
	Completed  int
	InProgress int
	Pending    int
}

type DashboardStats struct {
	TotalProjects  int
	TotalTasks     int
	AssignedTasks  int
	CreatedTasks   int
	CompletedTasks int
	OverdueTasks   int
}

type CreateAccountParams struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	FullName     string
	PasswordHash string
}

type CreateProjectParams struct {
	Name        string
	Description string
	OwnerId     int
}

type UpdateProjectParams struct {
	ProjectId   int
	Name        string
	Description string
}

type CreateTaskParams struct {
	Title       string
	Description string
	ProjectId   int
	CreatedBy   int
	AssignedTo  *int
	Priority    string
	DueDate     *time.Time
}

type UpdateTaskParams struct {
	TaskId      int
	Title       string
	Description string
	Priority    string
	AssignedTo  *int
	DueDate     *time.Time
}

type CreateCommentParams struct {
	TaskId      int
	UserId      int
	CommentText string
}

type TaskFilter struct {
	// ProjectId narrows the listing to one project. When zero,
	// AccessibleTo scopes the listing to the projects that account
	// owns or is a member of.
	ProjectId    int
	AccessibleTo int
	AssignedTo   int
	Status       string
	Priority     string
	Limit        int
	Offset       int
}
