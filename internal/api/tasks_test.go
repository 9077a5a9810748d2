package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tboucheau/taskhive/internal/database"
	"github.com/tboucheau/taskhive/internal/types"
)

func intPtr(i int) *int { return &i }

func TestListTasks(t *testing.T) {
	project := database.Project{Id: 10, OwnerId: 1, IsActive: true}

	t.Run("returns project tasks with filters applied", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetProjectById", 10).Return(project, nil).Once()
		db.On("ListTasks", database.TaskFilter{
			ProjectId: 10, Status: types.StatusPending, Limit: 5,
		}).Return([]database.Task{
			{Id: 1, Title: "a", ProjectId: 10, Status: types.StatusPending, Priority: types.PriorityMedium},
		}, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/api/tasks?project_id=10&status=pending&limit=5", nil, 1)
		app.listTasks(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var tasks []types.Task
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&tasks))
		assert.Len(t, tasks, 1)
	})

	t.Run("rejects an invalid status filter", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetProjectById", 10).Return(project, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/api/tasks?project_id=10&status=bogus", nil, 1)
		app.listTasks(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("lists tasks across accessible projects when no project is given", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("ListTasks", database.TaskFilter{
			AccessibleTo: 1, AssignedTo: 1,
		}).Return([]database.Task{
			{Id: 1, Title: "a", ProjectId: 10, AssignedTo: intPtr(1), Priority: types.PriorityMedium},
			{Id: 2, Title: "b", ProjectId: 11, AssignedTo: intPtr(1), Priority: types.PriorityHigh},
		}, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/api/tasks?assigned_to=1", nil, 1)
		app.listTasks(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var tasks []types.Task
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&tasks))
		assert.Len(t, tasks, 2)
	})

	t.Run("rejects a malformed project id", func(t *testing.T) {
		app := newTestApp(t, &database.MockTaskhiveRepository{})
		rr := httptest.NewRecorder()
		app.listTasks(rr, authedRequest(http.MethodGet, "/api/tasks?project_id=ten", nil, 1))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCreateTask(t *testing.T) {
	project := database.Project{Id: 10, OwnerId: 1, IsActive: true}

	t.Run("member creates a task with an assignee", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetProjectById", 10).Return(project, nil).Once()
		db.On("GetMember", 10, 2).Return(database.ProjectMember{
			ProjectId: 10, UserId: 2, Role: "member",
		}, nil).Once()
		// assignee must exist and belong to the project
		db.On("GetAccountById", 3).Return(database.User{Id: 3, Username: "carol"}, nil).Once()
		db.On("GetMember", 10, 3).Return(database.ProjectMember{
			ProjectId: 10, UserId: 3, Role: "member",
		}, nil).Once()
		db.On("CreateTask", database.CreateTaskParams{
			Title: "ship it", ProjectId: 10, CreatedBy: 2, AssignedTo: intPtr(3), Priority: types.PriorityHigh,
		}).Return(database.Task{
			Id: 5, Title: "ship it", ProjectId: 10, CreatedBy: 2, AssignedTo: intPtr(3),
			Status: types.StatusPending, Priority: types.PriorityHigh,
		}, nil).Once()
		db.On("GetAccountById", 2).Return(database.User{Id: 2, Username: "bob"}, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		body := jsonBody(t, CreateTaskRequest{
			Title: "ship it", ProjectId: 10, AssignedTo: intPtr(3), Priority: types.PriorityHigh,
		})
		app.createTask(rr, authedRequest(http.MethodPost, "/api/tasks", body, 2))

		assert.Equal(t, http.StatusCreated, rr.Code)
		var task types.Task
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&task))
		assert.Equal(t, types.StatusPending, task.Status)
	})

	t.Run("any project role may create tasks", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetProjectById", 10).Return(project, nil).Once()
		db.On("GetMember", 10, 4).Return(database.ProjectMember{
			ProjectId: 10, UserId: 4, Role: "viewer",
		}, nil).Once()
		db.On("CreateTask", database.CreateTaskParams{
			Title: "triage", ProjectId: 10, CreatedBy: 4, Priority: types.PriorityMedium,
		}).Return(database.Task{
			Id: 6, Title: "triage", ProjectId: 10, CreatedBy: 4,
			Status: types.StatusPending, Priority: types.PriorityMedium,
		}, nil).Once()
		db.On("GetAccountById", 4).Return(database.User{Id: 4, Username: "dana"}, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		body := jsonBody(t, CreateTaskRequest{Title: "triage", ProjectId: 10})
		app.createTask(rr, authedRequest(http.MethodPost, "/api/tasks", body, 4))

		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("outsider cannot create tasks", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetProjectById", 10).Return(project, nil).Once()
		db.On("GetMember", 10, 9).Return(database.ProjectMember{}, sql.ErrNoRows).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		body := jsonBody(t, CreateTaskRequest{Title: "nope", ProjectId: 10})
		app.createTask(rr, authedRequest(http.MethodPost, "/api/tasks", body, 9))

		assert.Equal(t, http.StatusForbidden, rr.Code)
		db.AssertNotCalled(t, "CreateTask")
	})

	t.Run("assignee outside the project is rejected", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetProjectById", 10).Return(project, nil).Once()
		db.On("GetAccountById", 9).Return(database.User{Id: 9}, nil).Once()
		db.On("GetMember", 10, 9).Return(database.ProjectMember{}, sql.ErrNoRows).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		body := jsonBody(t, CreateTaskRequest{Title: "ship it", ProjectId: 10, AssignedTo: intPtr(9)})
		app.createTask(rr, authedRequest(http.MethodPost, "/api/tasks", body, 1))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		db.AssertNotCalled(t, "CreateTask")
	})

	t.Run("invalid priority is rejected", func(t *testing.T) {
		app := newTestApp(t, &database.MockTaskhiveRepository{})
		rr := httptest.NewRecorder()
		body := jsonBody(t, CreateTaskRequest{Title: "ship it", ProjectId: 10, Priority: "urgent"})
		app.createTask(rr, authedRequest(http.MethodPost, "/api/tasks", body, 1))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetTask(t *testing.T) {
	task := database.Task{Id: 5, Title: "ship it", ProjectId: 10, CreatedBy: 1, Status: types.StatusPending}

	t.Run("returns the task with comments", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetTaskById", 5).Return(task, nil).Once()
		db.On("GetProjectById", 10).Return(database.Project{Id: 10, OwnerId: 1, IsActive: true}, nil).Once()
		db.On("ListComments", 5).Return([]database.Comment{
			{Id: 7, TaskId: 5, UserId: 1, CommentText: "done?", AuthorName: "Alice A"},
		}, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		app.getTask(rr, pathRequest(http.MethodGet, "/api/tasks/5", nil, 1, t, map[string]string{"id": "5"}))

		assert.Equal(t, http.StatusOK, rr.Code)
		var got types.Task
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Len(t, got.Comments, 1)
	})

	t.Run("missing task", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetTaskById", 99).Return(database.Task{}, sql.ErrNoRows).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		app.getTask(rr, pathRequest(http.MethodGet, "/api/tasks/99", nil, 1, t, map[string]string{"id": "99"}))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUpdateTaskStatus(t *testing.T) {
	task := database.Task{Id: 5, Title: "ship it", ProjectId: 10, CreatedBy: 2, Status: types.StatusPending}

	t.Run("creator moves the task", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetTaskById", 5).Return(task, nil).Once()
		db.On("UpdateTaskStatus", 5, types.StatusInProgress).Return(database.Task{
			Id: 5, Title: "ship it", ProjectId: 10, CreatedBy: 2, Status: types.StatusInProgress,
		}, nil).Once()
		db.On("GetAccountById", 2).Return(database.User{Id: 2, Username: "bob"}, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		body := UpdateTaskStatusRequest{Status: types.StatusInProgress}
		app.updateTaskStatus(rr, pathRequest(http.MethodPut, "/api/tasks/5/status", body, 2, t, map[string]string{"id": "5"}))

		assert.Equal(t, http.StatusOK, rr.Code)
		var got types.Task
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, types.StatusInProgress, got.Status)
	})

	t.Run("invalid status", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetTaskById", 5).Return(task, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		body := UpdateTaskStatusRequest{Status: "archived"}
		app.updateTaskStatus(rr, pathRequest(http.MethodPut, "/api/tasks/5/status", body, 2, t, map[string]string{"id": "5"}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		db.AssertNotCalled(t, "UpdateTaskStatus")
	})

	t.Run("bystander cannot move the task", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetTaskById", 5).Return(task, nil).Once()
		db.On("GetProjectById", 10).Return(database.Project{Id: 10, OwnerId: 1, IsActive: true}, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		body := UpdateTaskStatusRequest{Status: types.StatusCompleted}
		app.updateTaskStatus(rr, pathRequest(http.MethodPut, "/api/tasks/5/status", body, 3, t, map[string]string{"id": "5"}))

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestUpdateTask(t *testing.T) {
	task := database.Task{
		Id: 5, Title: "ship it", ProjectId: 10, CreatedBy: 2,
		Status: types.StatusPending, Priority: types.PriorityMedium,
	}

	t.Run("assignee edits the task", func(t *testing.T) {
		assignedTask := task
		assignedTask.AssignedTo = intPtr(3)

		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetTaskById", 5).Return(assignedTask, nil).Once()
		db.On("GetProjectById", 10).Return(database.Project{Id: 10, OwnerId: 1, IsActive: true}, nil).Once()
		db.On("GetAccountById", 3).Return(database.User{Id: 3, Username: "carol"}, nil)
		db.On("GetMember", 10, 3).Return(database.ProjectMember{
			ProjectId: 10, UserId: 3, Role: "member",
		}, nil).Once()
		db.On("UpdateTask", database.UpdateTaskParams{
			TaskId: 5, Title: "ship it soon", Priority: types.PriorityMedium, AssignedTo: intPtr(3),
		}).Return(database.Task{
			Id: 5, Title: "ship it soon", ProjectId: 10, CreatedBy: 2, AssignedTo: intPtr(3),
			Status: types.StatusPending, Priority: types.PriorityMedium,
		}, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		body := UpdateTaskRequest{Title: "ship it soon", AssignedTo: intPtr(3)}
		app.updateTask(rr, pathRequest(http.MethodPut, "/api/tasks/5", body, 3, t, map[string]string{"id": "5"}))

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("title is required", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetTaskById", 5).Return(task, nil).Once()

		app := newTestApp(t, db)
		rr := httptest.NewRecorder()
		body := UpdateTaskRequest{}
		app.updateTask(rr, pathRequest(http.MethodPut, "/api/tasks/5", body, 2, t, map[string]string{"id": "5"}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDeleteTask(t *testing.T) {
	task := database.Task{Id: 5, Title: "ship it", ProjectId: 10, CreatedBy: 2, AssignedTo: intPtr(3)}

	tcases := []struct {
		name         string
		userId       int
		loadProject  bool
		expectedCode int
	}{
		{
			name:         "creator deletes",
			userId:       2,
			expectedCode: http.StatusNoContent,
		},
		{
			name:         "assignee deletes",
			userId:       3,
			expectedCode: http.StatusNoContent,
		},
		{
			name:         "project owner deletes",
			userId:       1,
			loadProject:  true,
			expectedCode: http.StatusNoContent,
		},
		{
			name:         "unrelated member cannot delete",
			userId:       7,
			loadProject:  true,
			expectedCode: http.StatusForbidden,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTaskhiveRepository{}
			defer db.AssertExpectations(t)
			db.On("GetTaskById", 5).Return(task, nil).Once()
			if tc.loadProject {
				db.On("GetProjectById", 10).Return(database.Project{Id: 10, OwnerId: 1, IsActive: true}, nil).Once()
			}
			if tc.expectedCode == http.StatusNoContent {
				db.On("DeleteTask", 5).Return(nil).Once()
				db.On("GetAccountById", tc.userId).Return(database.User{Id: tc.userId}, nil).Once()
			}

			app := newTestApp(t, db)
			rr := httptest.NewRecorder()
			app.deleteTask(rr, pathRequest(http.MethodDelete, "/api/tasks/5", nil, tc.userId, t, map[string]string{"id": "5"}))

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func TestDashboardStats(t *testing.T) {
	db := &database.MockTaskhiveRepository{}
	defer db.AssertExpectations(t)
	db.On("GetDashboardStats", 1).Return(database.DashboardStats{
		TotalProjects: 2, TotalTasks: 10, AssignedTasks: 4, CreatedTasks: 6, CompletedTasks: 5, OverdueTasks: 1,
	}, nil).Once()

	app := newTestApp(t, db)
	rr := httptest.NewRecorder()
	app.dashboardStats(rr, authedRequest(http.MethodGet, "/api/dashboard/stats", nil, 1))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got types.DashboardStats
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, 10, got.TotalTasks)
	assert.Equal(t, 50.0, got.CompletionRate)
}

func TestRecentTasks(t *testing.T) {
	due := time.Now().UTC().Add(-time.Hour)

	db := &database.MockTaskhiveRepository{}
	defer db.AssertExpectations(t)
	db.On("ListRecentTasks", 1, 10).Return([]database.Task{
		{Id: 5, Title: "late", ProjectId: 10, Status: types.StatusPending, DueDate: &due},
	}, nil).Once()

	app := newTestApp(t, db)
	rr := httptest.NewRecorder()
	app.recentTasks(rr, authedRequest(http.MethodGet, "/api/dashboard/recent", nil, 1))

	assert.Equal(t, http.StatusOK, rr.Code)
	var tasks []types.Task
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&tasks))
	assert.Len(t, tasks, 1)
	assert.True(t, tasks[0].IsOverdue, "expected a past-due pending task to be flagged overdue")
}
