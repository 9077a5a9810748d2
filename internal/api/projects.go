package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tboucheau/taskhive/internal/database"
	"github.com/tboucheau/taskhive/internal/policy"
	"github.com/tboucheau/taskhive/internal/types"
)

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AddMemberRequest struct {
	UserId int    `json:"user_id"`
	Role   string `json:"role"`
}

// loadProject fetches a project and writes the appropriate error response
// when it doesn't exist. The bool result reports whether the caller may
// proceed.
func (s *TaskhiveApp) loadProject(w http.ResponseWriter, projectId int) (database.Project, bool) {
	project, err := s.db.GetProjectById(projectId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeError(w, errResp)
		return database.Project{}, false
	}

	return project, true
}

func (s *TaskhiveApp) actor(userId int) types.User {
	user, err := s.db.GetAccountById(userId)
	if err != nil {
		s.log.Println("GetAccountById:", err)
		return types.User{Id: userId}
	}

	return apiUser(user)
}

func (s *TaskhiveApp) listProjects(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	dbProjects, err := s.policy.AccessibleProjects(userId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	projects := make([]types.Project, 0, len(dbProjects))
	for _, p := range dbProjects {
		projects = append(projects, apiProject(p))
	}

	s.writeJson(w, http.StatusOK, projects)
}

func (s *TaskhiveApp) createProject(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Name == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	newProject, err := s.db.CreateProject(database.CreateProjectParams{
		Name:        req.Name,
		Description: req.Description,
		OwnerId:     userId,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, apiProject(newProject))
}

func (s *TaskhiveApp) getProject(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	projectId, err := pathId(r, "id")
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

	dbStats, err := s.db.GetProjectStats(projectId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	p := apiProject(project)
	p.Stats = &types.ProjectStats{
		Total:      dbStats.Total,
		Completed:  dbStats.Completed,
		InProgress: dbStats.InProgress,
		Pending:    dbStats.Pending,
	}
	if dbStats.Total > 0 {
		p.Stats.CompletionRate = float64(dbStats.Completed) / float64(dbStats.Total) * 100
	}

	s.writeJson(w, http.StatusOK, p)
}

func (s *TaskhiveApp) updateProject(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	projectId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	project, ok := s.loadProject(w, projectId)
	if !ok {
		return
	}

	canEdit, err := s.policy.CanEditProject(userId, project)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !canEdit {
		s.writeError(w, NewForbiddenError())
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Name == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	changes := make(map[string]any)
	if req.Name != project.Name {
		changes["name"] = req.Name
	}
	if req.Description != project.Description {
		changes["description"] = req.Description
	}

	updated, err := s.db.UpdateProject(database.UpdateProjectParams{
		ProjectId:   projectId,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	p := apiProject(updated)
	s.dispatcher.ProjectUpdated(p, s.actor(userId), changes)

	s.writeJson(w, http.StatusOK, p)
}

func (s *TaskhiveApp) deleteProject(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	projectId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	project, ok := s.loadProject(w, projectId)
	if !ok {
		return
	}

	if !s.policy.CanDeleteProject(userId, project) {
		s.writeError(w, NewForbiddenError())
		return
	}

	if err := s.db.DeleteProject(projectId); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.dispatcher.ProjectDeleted(projectId, project.Name, s.actor(userId))

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *TaskhiveApp) listMembers(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	projectId, err := pathId(r, "id")
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

	dbMembers, err := s.db.ListMembers(projectId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	// the owner has no membership row; synthesize one so clients see the
	// full roster
	members := make([]types.Member, 0, len(dbMembers)+1)
	if owner, err := s.db.GetAccountById(project.OwnerId); err == nil {
		members = append(members, types.Member{
			ProjectId: projectId,
			UserId:    owner.Id,
			Role:      string(policy.RoleOwner),
			UserName:  owner.Username,
			UserEmail: owner.Email,
			JoinedAt:  project.CreatedAt,
		})
	}

	for _, m := range dbMembers {
		members = append(members, apiMember(m))
	}

	s.writeJson(w, http.StatusOK, members)
}

func (s *TaskhiveApp) addMember(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	projectId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	project, ok := s.loadProject(w, projectId)
	if !ok {
		return
	}

	canManage, err := s.policy.CanManageMembers(userId, project)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !canManage {
		s.writeError(w, NewForbiddenError())
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if !policy.ValidMemberRole(req.Role) {
		s.writeError(w, NewBadRequestError())
		return
	}

	newMember, err := s.db.GetAccountById(req.UserId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeError(w, errResp)
		return
	}

	added, err := s.db.AddMember(projectId, req.UserId, req.Role)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !added {
		// already a member, or the owner
		s.writeError(w, NewConflictError())
		return
	}

	member := types.Member{
		ProjectId: projectId,
		UserId:    newMember.Id,
		Role:      req.Role,
		UserName:  newMember.Username,
		UserEmail: newMember.Email,
	}

	s.dispatcher.MemberAdded(member, apiProject(project), s.actor(userId))

	s.writeJson(w, http.StatusCreated, member)
}

func (s *TaskhiveApp) removeMember(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	projectId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	memberId, err := pathId(r, "userId")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	project, ok := s.loadProject(w, projectId)
	if !ok {
		return
	}

	// managers can remove anyone; members can remove themselves
	if memberId != userId {
		canManage, err := s.policy.CanManageMembers(userId, project)
		if err != nil {
			s.writeError(w, NewInternalServerError(err))
			return
		}
		if !canManage {
			s.writeError(w, NewForbiddenError())
			return
		}
	}

	if memberId == project.OwnerId {
		// the owner cannot be removed from their own project
		s.writeError(w, NewBadRequestError())
		return
	}

	removed, err := s.db.RemoveMember(projectId, memberId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !removed {
		s.writeError(w, NewNotFoundError())
		return
	}

	s.dispatcher.MemberRemoved(projectId, memberId, apiProject(project), s.actor(userId))

	s.writeJson(w, http.StatusNoContent, nil)
}
