package database

import (
	"github.com/stretchr/testify/mock"
)

type MockTaskhiveRepository struct {
	mock.Mock
}

func (m *MockTaskhiveRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockTaskhiveRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTaskhiveRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTaskhiveRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTaskhiveRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTaskhiveRepository) CreateProject(params CreateProjectParams) (Project, error) {
	args := m.Called(params)
	return args.Get(0).(Project), args.Error(1)
}
func (m *MockTaskhiveRepository) GetProjectById(projectId int) (Project, error) {
	args := m.Called(projectId)
	return args.Get(0).(Project), args.Error(1)
}
func (m *MockTaskhiveRepository) UpdateProject(params UpdateProjectParams) (Project, error) {
	args := m.Called(params)
	return args.Get(0).(Project), args.Error(1)
}
func (m *MockTaskhiveRepository) DeleteProject(projectId int) error {
	args := m.Called(projectId)
	return args.Error(0)
}
func (m *MockTaskhiveRepository) ListAccessibleProjects(accountId int) ([]Project, error) {
	args := m.Called(accountId)
	if projects, ok := args.Get(0).([]Project); ok {
		return projects, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockTaskhiveRepository) GetProjectStats(projectId int) (ProjectStats, error) {
	args := m.Called(projectId)
	return args.Get(0).(ProjectStats), args.Error(1)
}
func (m *MockTaskhiveRepository) GetMember(projectId, accountId int) (ProjectMember, error) {
	args := m.Called(projectId, accountId)
	return args.Get(0).(ProjectMember), args.Error(1)
}
func (m *MockTaskhiveRepository) ListMembers(projectId int) ([]ProjectMember, error) {
	args := m.Called(projectId)
	if members, ok := args.Get(0).([]ProjectMember); ok {
		return members, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockTaskhiveRepository) AddMember(projectId, accountId int, role string) (bool, error) {
	args := m.Called(projectId, accountId, role)
	return args.Bool(0), args.Error(1)
}
func (m *MockTaskhiveRepository) RemoveMember(projectId, accountId int) (bool, error) {
	args := m.Called(projectId, accountId)
	return args.Bool(0), args.Error(1)
}
func (m *MockTaskhiveRepository) CreateTask(params CreateTaskParams) (Task, error) {
	args := m.Called(params)
	return args.Get(0).(Task), args.Error(1)
}
func (m *MockTaskhiveRepository) GetTaskById(taskId int) (Task, error) {
	args := m.Called(taskId)
	return args.Get(0).(Task), args.Error(1)
}
func (m *MockTaskhiveRepository) UpdateTask(params UpdateTaskParams) (Task, error) {
	args := m.Called(params)
	return args.Get(0).(Task), args.Error(1)
}
func (m *MockTaskhiveRepository) UpdateTaskStatus(taskId int, status string) (Task, error) {
	args := m.Called(taskId, status)
	return args.Get(0).(Task), args.Error(1)
}
func (m *MockTaskhiveRepository) DeleteTask(taskId int) error {
	args := m.Called(taskId)
	return args.Error(0)
}
func (m *MockTaskhiveRepository) ListTasks(filter TaskFilter) ([]Task, error) {
	args := m.Called(filter)
	if tasks, ok := args.Get(0).([]Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockTaskhiveRepository) ListRecentTasks(accountId, limit int) ([]Task, error) {
	args := m.Called(accountId, limit)
	if tasks, ok := args.Get(0).([]Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockTaskhiveRepository) GetDashboardStats(accountId int) (DashboardStats, error) {
	args := m.Called(accountId)
	return args.Get(0).(DashboardStats), args.Error(1)
}
func (m *MockTaskhiveRepository) CreateComment(params CreateCommentParams) (Comment, error) {
	args := m.Called(params)
	return args.Get(0).(Comment), args.Error(1)
}
func (m *MockTaskhiveRepository) GetCommentById(commentId int) (Comment, error) {
	args := m.Called(commentId)
	return args.Get(0).(Comment), args.Error(1)
}
func (m *MockTaskhiveRepository) UpdateComment(commentId int, commentText string) (Comment, error) {
	args := m.Called(commentId, commentText)
	return args.Get(0).(Comment), args.Error(1)
}
func (m *MockTaskhiveRepository) DeleteComment(commentId int) error {
	args := m.Called(commentId)
	return args.Error(0)
}
func (m *MockTaskhiveRepository) ListComments(taskId int) ([]Comment, error) {
	args := m.Called(taskId)
	if comments, ok := args.Get(0).([]Comment); ok {
		return comments, args.Error(1)
	}
	return nil, args.Error(1)
}
