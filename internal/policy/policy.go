// Package policy is the single authorization checkpoint for taskhive. Every
// permission question about projects, tasks and comments is answered here;
// no other component encodes role semantics.
package policy

import (
	"database/sql"
	"errors"

	"github.com/tboucheau/taskhive/internal/database"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
	// RoleNone means the user has no access to the project at all.
	RoleNone Role = ""
)

// ValidMemberRole reports whether role may be stored on a membership row.
// The owner role is derived from projects.owner_id and is never storable.
func ValidMemberRole(role string) bool {
	switch Role(role) {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

type Engine struct {
	db database.TaskhiveRepository
}

func NewEngine(db database.TaskhiveRepository) *Engine {
	return &Engine{db: db}
}

// EffectiveRole resolves a user's role in a project: the owner column wins,
// otherwise the membership row decides, otherwise RoleNone. Denial is not an
// error; the error return carries storage failures only.
func (e *Engine) EffectiveRole(userId int, project database.Project) (Role, error) {
	if project.OwnerId == userId {
		return RoleOwner, nil
	}

	member, err := e.db.GetMember(project.Id, userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RoleNone, nil
		}
		return RoleNone, err
	}

	return Role(member.Role), nil
}

// AccessibleProjects returns every project the user owns or is a member of,
// deduplicated by project id. Ordering is not guaranteed.
func (e *Engine) AccessibleProjects(userId int) ([]database.Project, error) {
	return e.db.ListAccessibleProjects(userId)
}

func (e *Engine) CanViewProject(userId int, project database.Project) (bool, error) {
	role, err := e.EffectiveRole(userId, project)
	if err != nil {
		return false, err
	}

	return role != RoleNone, nil
}

func (e *Engine) CanEditProject(userId int, project database.Project) (bool, error) {
	role, err := e.EffectiveRole(userId, project)
	if err != nil {
		return false, err
	}

	return role == RoleOwner || role == RoleAdmin, nil
}

func (e *Engine) CanDeleteProject(userId int, project database.Project) bool {
	return project.OwnerId == userId
}

func (e *Engine) CanManageMembers(userId int, project database.Project) (bool, error) {
	role, err := e.EffectiveRole(userId, project)
	if err != nil {
		return false, err
	}

	return role == RoleOwner || role == RoleAdmin, nil
}

func (e *Engine) CanViewTask(userId int, task database.Task) (bool, error) {
	project, err := e.db.GetProjectById(task.ProjectId)
	if err != nil {
		return false, err
	}

	return e.CanViewProject(userId, project)
}

// CanEditTask allows the task's creator, its assignee and the project owner.
// Project admins and members who are neither creator nor assignee cannot
// edit a task even though they can view it; this is narrower than
// CanEditProject and intentional.
func (e *Engine) CanEditTask(userId int, task database.Task) (bool, error) {
	if task.CreatedBy == userId {
		return true, nil
	}
	if task.AssignedTo != nil && *task.AssignedTo == userId {
		return true, nil
	}

	project, err := e.db.GetProjectById(task.ProjectId)
	if err != nil {
		return false, err
	}

	return project.OwnerId == userId, nil
}

func (e *Engine) CanEditComment(userId int, comment database.Comment) bool {
	return comment.UserId == userId
}

// CanDeleteComment escalates delete rights outward along the containment
// chain: the comment's author, the parent task's creator and the project
// owner may all delete.
func (e *Engine) CanDeleteComment(userId int, comment database.Comment) (bool, error) {
	if comment.UserId == userId {
		return true, nil
	}

	task, err := e.db.GetTaskById(comment.TaskId)
	if err != nil {
		return false, err
	}
	if task.CreatedBy == userId {
		return true, nil
	}

	project, err := e.db.GetProjectById(task.ProjectId)
	if err != nil {
		return false, err
	}

	return project.OwnerId == userId, nil
}
