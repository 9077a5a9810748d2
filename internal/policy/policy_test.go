package policy

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tboucheau/taskhive/internal/database"
)

func intPtr(i int) *int { return &i }

func TestValidMemberRole(t *testing.T) {
	tcases := []struct {
		role  string
		valid bool
	}{
		{"admin", true},
		{"member", true},
		{"viewer", true},
		{"owner", false},
		{"", false},
		{"superuser", false},
	}

	for _, tc := range tcases {
		t.Run(tc.role, func(t *testing.T) {
			assert.Equal(t, tc.valid, ValidMemberRole(tc.role))
		})
	}
}

func TestEffectiveRole(t *testing.T) {
	project := database.Project{Id: 1, OwnerId: 10}

	t.Run("owner column wins", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)

		e := NewEngine(db)
		role, err := e.EffectiveRole(10, project)
		assert.NoError(t, err)
		assert.Equal(t, RoleOwner, role)
		db.AssertNotCalled(t, "GetMember")
	})

	t.Run("membership row decides", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetMember", 1, 20).Return(database.ProjectMember{
			ProjectId: 1, UserId: 20, Role: "admin",
		}, nil)

		e := NewEngine(db)
		role, err := e.EffectiveRole(20, project)
		assert.NoError(t, err)
		assert.Equal(t, RoleAdmin, role)
	})

	t.Run("no membership means no role", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetMember", 1, 30).Return(database.ProjectMember{}, sql.ErrNoRows)

		e := NewEngine(db)
		role, err := e.EffectiveRole(30, project)
		assert.NoError(t, err, "missing membership is not an error")
		assert.Equal(t, RoleNone, role)
	})

	t.Run("storage errors are propagated", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetMember", 1, 30).Return(database.ProjectMember{}, errors.New("db down"))

		e := NewEngine(db)
		role, err := e.EffectiveRole(30, project)
		assert.Error(t, err)
		assert.Equal(t, RoleNone, role)
	})
}

func TestProjectPermissions(t *testing.T) {
	project := database.Project{Id: 1, OwnerId: 10}

	tcases := []struct {
		name       string
		userId     int
		memberRole string
		canView    bool
		canEdit    bool
		canManage  bool
	}{
		{
			name:      "owner",
			userId:    10,
			canView:   true,
			canEdit:   true,
			canManage: true,
		},
		{
			name:       "admin",
			userId:     20,
			memberRole: "admin",
			canView:    true,
			canEdit:    true,
			canManage:  true,
		},
		{
			name:       "member",
			userId:     21,
			memberRole: "member",
			canView:    true,
			canEdit:    false,
			canManage:  false,
		},
		{
			name:       "viewer",
			userId:     22,
			memberRole: "viewer",
			canView:    true,
			canEdit:    false,
			canManage:  false,
		},
		{
			name:    "outsider",
			userId:  30,
			canView: false,
			canEdit: false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTaskhiveRepository{}
			if tc.userId != project.OwnerId {
				if tc.memberRole != "" {
					db.On("GetMember", project.Id, tc.userId).Return(database.ProjectMember{
						ProjectId: project.Id, UserId: tc.userId, Role: tc.memberRole,
					}, nil)
				} else {
					db.On("GetMember", project.Id, tc.userId).Return(database.ProjectMember{}, sql.ErrNoRows)
				}
			}

			e := NewEngine(db)

			canView, err := e.CanViewProject(tc.userId, project)
			assert.NoError(t, err)
			assert.Equal(t, tc.canView, canView, "CanViewProject")

			canEdit, err := e.CanEditProject(tc.userId, project)
			assert.NoError(t, err)
			assert.Equal(t, tc.canEdit, canEdit, "CanEditProject")

			canManage, err := e.CanManageMembers(tc.userId, project)
			assert.NoError(t, err)
			assert.Equal(t, tc.canManage, canManage, "CanManageMembers")
		})
	}
}

func TestCanDeleteProject(t *testing.T) {
	e := NewEngine(&database.MockTaskhiveRepository{})
	project := database.Project{Id: 1, OwnerId: 10}

	assert.True(t, e.CanDeleteProject(10, project), "owner can delete")
	assert.False(t, e.CanDeleteProject(20, project), "non-owner cannot delete")
}

func TestCanEditTask(t *testing.T) {
	task := database.Task{Id: 5, ProjectId: 1, CreatedBy: 20, AssignedTo: intPtr(21)}

	tcases := []struct {
		name        string
		userId      int
		loadProject bool
		ownerId     int
		canEdit     bool
	}{
		{
			name:    "creator",
			userId:  20,
			canEdit: true,
		},
		{
			name:    "assignee",
			userId:  21,
			canEdit: true,
		},
		{
			name:        "project owner",
			userId:      10,
			loadProject: true,
			ownerId:     10,
			canEdit:     true,
		},
		{
			name:        "project admin cannot edit tasks",
			userId:      22,
			loadProject: true,
			ownerId:     10,
			canEdit:     false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTaskhiveRepository{}
			defer db.AssertExpectations(t)
			if tc.loadProject {
				db.On("GetProjectById", task.ProjectId).Return(database.Project{
					Id: task.ProjectId, OwnerId: tc.ownerId,
				}, nil)
			}

			e := NewEngine(db)
			canEdit, err := e.CanEditTask(tc.userId, task)
			assert.NoError(t, err)
			assert.Equal(t, tc.canEdit, canEdit)
		})
	}
}

func TestCanViewTask(t *testing.T) {
	task := database.Task{Id: 5, ProjectId: 1, CreatedBy: 20}

	t.Run("member of project can view", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetProjectById", 1).Return(database.Project{Id: 1, OwnerId: 10}, nil)
		db.On("GetMember", 1, 21).Return(database.ProjectMember{
			ProjectId: 1, UserId: 21, Role: "viewer",
		}, nil)

		e := NewEngine(db)
		canView, err := e.CanViewTask(21, task)
		assert.NoError(t, err)
		assert.True(t, canView)
	})

	t.Run("outsider cannot view", func(t *testing.T) {
		db := &database.MockTaskhiveRepository{}
		defer db.AssertExpectations(t)
		db.On("GetProjectById", 1).Return(database.Project{Id: 1, OwnerId: 10}, nil)
		db.On("GetMember", 1, 30).Return(database.ProjectMember{}, sql.ErrNoRows)

		e := NewEngine(db)
		canView, err := e.CanViewTask(30, task)
		assert.NoError(t, err)
		assert.False(t, canView)
	})
}

func TestCanEditComment(t *testing.T) {
	e := NewEngine(&database.MockTaskhiveRepository{})
	comment := database.Comment{Id: 1, TaskId: 5, UserId: 20}

	assert.True(t, e.CanEditComment(20, comment), "author can edit")
	assert.False(t, e.CanEditComment(21, comment), "only the author can edit")
}

func TestCanDeleteComment(t *testing.T) {
	comment := database.Comment{Id: 1, TaskId: 5, UserId: 20}

	tcases := []struct {
		name      string
		userId    int
		loadTask  bool
		loadProj  bool
		canDelete bool
	}{
		{
			name:      "author",
			userId:    20,
			canDelete: true,
		},
		{
			name:      "task creator",
			userId:    25,
			loadTask:  true,
			canDelete: true,
		},
		{
			name:      "project owner",
			userId:    10,
			loadTask:  true,
			loadProj:  true,
			canDelete: true,
		},
		{
			name:      "unrelated member",
			userId:    30,
			loadTask:  true,
			loadProj:  true,
			canDelete: false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTaskhiveRepository{}
			defer db.AssertExpectations(t)
			if tc.loadTask {
				db.On("GetTaskById", comment.TaskId).Return(database.Task{
					Id: 5, ProjectId: 1, CreatedBy: 25,
				}, nil)
			}
			if tc.loadProj {
				db.On("GetProjectById", 1).Return(database.Project{Id: 1, OwnerId: 10}, nil)
			}

			e := NewEngine(db)
			canDelete, err := e.CanDeleteComment(tc.userId, comment)
			assert.NoError(t, err)
			assert.Equal(t, tc.canDelete, canDelete)
		})
	}
}
