package database

type TaskhiveRepository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)

	CreateProject(params CreateProjectParams) (Project, error)
	GetProjectById(projectId int) (Project, error)
	UpdateProject(params UpdateProjectParams) (Project, error)
	DeleteProject(projectId int) error
	ListAccessibleProjects(accountId int) ([]Project, error)
	GetProjectStats(projectId int) (ProjectStats, error)

	GetMember(projectId, accountId int) (ProjectMember, error)
	ListMembers(projectId int) ([]ProjectMember, error)
	AddMember(projectId, accountId int, role string) (bool, error)
	RemoveMember(projectId, accountId int) (bool, error)

	CreateTask(params CreateTaskParams) (Task, error)
	GetTaskById(taskId int) (Task, error)
	UpdateTask(params UpdateTaskParams) (Task, error)
	UpdateTaskStatus(taskId int, status string) (Task, error)
	DeleteTask(taskId int) error
	ListTasks(filter TaskFilter) ([]Task, error)
	ListRecentTasks(accountId, limit int) ([]Task, error)
	GetDashboardStats(accountId int) (DashboardStats, error)

	CreateComment(params CreateCommentParams) (Comment, error)
	GetCommentById(commentId int) (Comment, error)
	UpdateComment(commentId int, commentText string) (Comment, error)
	DeleteComment(commentId int) error
	ListComments(taskId int) ([]Comment, error)
}
