package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tboucheau/taskhive/internal/database"
	"github.com/tboucheau/taskhive/internal/policy"
	"github.com/tboucheau/taskhive/internal/types"
)

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ProjectId   int        `json:"project_id"`
	AssignedTo  *int       `json:"assigned_to"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  *int       `json:"assigned_to"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

func (s *TaskhiveApp) loadTask(w http.ResponseWriter, taskId int) (database.Task, bool) {
	task, err := s.db.GetTaskById(taskId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeError(w, errResp)
		return database.Task{}, false
	}

	return task, true
}

// validAssignee reports whether the user may be assigned tasks in the
// project, i.e. has any role in it.
func (s *TaskhiveApp) validAssignee(assigneeId int, project database.Project) (bool, error) {
	if _, err := s.db.GetAccountById(assigneeId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	role, err := s.policy.EffectiveRole(assigneeId, project)
	if err != nil {
		return false, err
	}

	return role != policy.RoleNone, nil
}

func (s *TaskhiveApp) listTasks(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var filter database.TaskFilter
	if projectIdStr := r.URL.Query().Get("project_id"); projectIdStr != "" {
		projectId, err := strconv.Atoi(projectIdStr)
		if err != nil {
			s.writeError(w, NewBadRequestError())
			return
		}

		project, ok := s.loadProject(w, projectId)
		if !ok {
			return
		}

		canView, err := s.policy.CanViewProject(userId, project)
		if err != nil {
			s.writeError(w, NewInternalServerError(err))
			return
		}
		if !canView {
			s.writeError(w, NewForbiddenError())
			return
		}

		filter.ProjectId = projectId
	} else {
		// no project scope: search everything the caller can view
		filter.AccessibleTo = userId
	}

	if status := r.URL.Query().Get("status"); status != "" {
		if !types.ValidTaskStatus(status) {
			s.writeError(w, NewBadRequestError())
			return
		}
		filter.Status = status
	}

	if priority := r.URL.Query().Get("priority"); priority != "" {
		if !types.ValidTaskPriority(priority) {
			s.writeError(w, NewBadRequestError())
			return
		}
		filter.Priority = priority
	}

	if assignedTo := r.URL.Query().Get("assigned_to"); assignedTo != "" {
		n, err := strconv.Atoi(assignedTo)
		if err != nil {
			s.writeError(w, NewBadRequestError())
			return
		}
		filter.AssignedTo = n
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			s.writeError(w, NewBadRequestError())
			return
		}
		filter.Limit = n
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil {
			s.writeError(w, NewBadRequestError())
			return
		}
		filter.Offset = n
	}

	dbTasks, err := s.db.ListTasks(filter)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	tasks := make([]types.Task, 0, len(dbTasks))
	for _, t := range dbTasks {
		tasks = append(tasks, apiTask(t))
	}

	s.writeJson(w, http.StatusOK, tasks)
}

func (s *TaskhiveApp) createTask(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Title == "" || req.ProjectId == 0 {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Priority == "" {
		req.Priority = types.PriorityMedium
	}
	if !types.ValidTaskPriority(req.Priority) {
		s.writeError(w, NewBadRequestError())
		return
	}

	project, ok := s.loadProject(w, req.ProjectId)
	if !ok {
		return
	}

	canView, err := s.policy.CanViewProject(userId, project)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !canView {
		s.writeError(w, NewForbiddenError())
		return
	}

	if req.AssignedTo != nil {
		valid, err := s.validAssignee(*req.AssignedTo, project)
		if err != nil {
			s.writeError(w, NewInternalServerError(err))
			return
		}
		if !valid {
			s.writeError(w, NewBadRequestError())
			return
		}
	}

	newTask, err := s.db.CreateTask(database.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		ProjectId:   req.ProjectId,
		CreatedBy:   userId,
		AssignedTo:  req.AssignedTo,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	t := apiTask(newTask)
	s.dispatcher.TaskCreated(t, s.actor(userId))

	s.writeJson(w, http.StatusCreated, t)
}

func (s *TaskhiveApp) getTask(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	taskId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	task, ok := s.loadTask(w, taskId)
	if !ok {
		return
	}

	canView, err := s.policy.CanViewTask(userId, task)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !canView {
		s.writeError(w, NewForbiddenError())
		return
	}

	dbComments, err := s.db.ListComments(taskId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	t := apiTask(task)
	for _, c := range dbComments {
		t.Comments = append(t.Comments, apiComment(c))
	}

	s.writeJson(w, http.StatusOK, t)
}

func (s *TaskhiveApp) updateTask(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	taskId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	task, ok := s.loadTask(w, taskId)
	if !ok {
		return
	}

	canEdit, err := s.policy.CanEditTask(userId, task)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !canEdit {
		s.writeError(w, NewForbiddenError())
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Title == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Priority == "" {
		req.Priority = task.Priority
	}
	if !types.ValidTaskPriority(req.Priority) {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.AssignedTo != nil {
		project, ok := s.loadProject(w, task.ProjectId)
		if !ok {
			return
		}

		valid, err := s.validAssignee(*req.AssignedTo, project)
		if err != nil {
			s.writeError(w, NewInternalServerError(err))
			return
		}
		if !valid {
			s.writeError(w, NewBadRequestError())
			return
		}
	}

	changes := make(map[string]any)
	if req.Title != task.Title {
		changes["title"] = req.Title
	}
	if req.Description != task.Description {
		changes["description"] = req.Description
	}
	if req.Priority != task.Priority {
		changes["priority"] = req.Priority
	}

	assigneeChanged := !equalIntPtr(req.AssignedTo, task.AssignedTo)
	if assigneeChanged {
		changes["assigned_to"] = req.AssignedTo
	}

	updated, err := s.db.UpdateTask(database.UpdateTaskParams{
		TaskId:      taskId,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	t := apiTask(updated)
	actor := s.actor(userId)
	s.dispatcher.TaskUpdated(t, actor, changes)
	if assigneeChanged {
		s.dispatcher.TaskAssigned(t, actor)
	}

	s.writeJson(w, http.StatusOK, t)
}

func (s *TaskhiveApp) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	taskId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	task, ok := s.loadTask(w, taskId)
	if !ok {
		return
	}

	canEdit, err := s.policy.CanEditTask(userId, task)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !canEdit {
		s.writeError(w, NewForbiddenError())
		return
	}

	var req UpdateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if !types.ValidTaskStatus(req.Status) {
		s.writeError(w, NewBadRequestError())
		return
	}

	updated, err := s.db.UpdateTaskStatus(taskId, req.Status)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	t := apiTask(updated)
	if req.Status != task.Status {
		s.dispatcher.TaskStatusChanged(t, task.Status, s.actor(userId))
	}

	s.writeJson(w, http.StatusOK, t)
}

func (s *TaskhiveApp) deleteTask(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	taskId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	task, ok := s.loadTask(w, taskId)
	if !ok {
		return
	}

	// deletion rights match edit rights: creator, assignee or project owner
	canEdit, err := s.policy.CanEditTask(userId, task)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !canEdit {
		s.writeError(w, NewForbiddenError())
		return
	}

	if err := s.db.DeleteTask(taskId); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.dispatcher.TaskDeleted(taskId, task.ProjectId, task.Title, s.actor(userId))

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *TaskhiveApp) dashboardStats(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	dbStats, err := s.db.GetDashboardStats(userId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	resp := types.DashboardStats{
		TotalProjects:  dbStats.TotalProjects,
		TotalTasks:     dbStats.TotalTasks,
		AssignedTasks:  dbStats.AssignedTasks,
		CreatedTasks:   dbStats.CreatedTasks,
		CompletedTasks: dbStats.CompletedTasks,
		OverdueTasks:   dbStats.OverdueTasks,
	}
	if resp.TotalTasks > 0 {
		resp.CompletionRate = float64(resp.CompletedTasks) / float64(resp.TotalTasks) * 100
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *TaskhiveApp) recentTasks(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			s.writeError(w, NewBadRequestError())
			return
		}
	}

	dbTasks, err := s.db.ListRecentTasks(userId, limit)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	tasks := make([]types.Task, 0, len(dbTasks))
	for _, t := range dbTasks {
		tasks = append(tasks, apiTask(t))
	}

	s.writeJson(w, http.StatusOK, tasks)
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
