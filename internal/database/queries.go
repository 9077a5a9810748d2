package database

import (
	"fmt"
	"strings"
	"time"
)

const taskColumns = "t.id, t.title, t.description, t.status, t.priority, t.project_id, " +
	"t.assigned_to, t.created_by, t.due_date, t.created_at, t.updated_at, " +
	"(SELECT COUNT(*) FROM task_comments c WHERE c.task_id = t.id)"

func (db *PgTaskhiveRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, full_name, is_active, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, TRUE, $5, $5) RETURNING id, username, email, full_name, is_active, created_at, updated_at",
		params.Username,
		params.Email,
		params.PasswordHash,
		params.FullName,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgTaskhiveRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, full_name = $3, password_hash = $4, updated_at = $5 "+
			"WHERE id = $1 RETURNING id, username, email, full_name, is_active, created_at, updated_at",
		params.UserId,
		params.Username,
		params.FullName,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgTaskhiveRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, full_name, is_active, created_at, updated_at "+
			"FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgTaskhiveRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, full_name, is_active, created_at, updated_at "+
			"FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgTaskhiveRepository) CreateProject(params CreateProjectParams) (Project, error) {
	res := db.conn.QueryRow(
		"INSERT INTO projects (name, description, owner_id, is_active, created_at, updated_at) "+
			"VALUES ($1, $2, $3, TRUE, $4, $4) RETURNING id, name, description, owner_id, is_active, created_at, updated_at",
		params.Name,
		params.Description,
		params.OwnerId,
		time.Now().UTC(),
	)

	var p Project
	err := res.Scan(
		&p.Id,
		&p.Name,
		&p.Description,
		&p.OwnerId,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return p, err
}

func (db *PgTaskhiveRepository) GetProjectById(projectId int) (Project, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, description, owner_id, is_active, created_at, updated_at "+
			"FROM projects WHERE id = $1 LIMIT 1",
		projectId,
	)

	var p Project
	err := row.Scan(
		&p.Id,
		&p.Name,
		&p.Description,
		&p.OwnerId,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return p, err
}

func (db *PgTaskhiveRepository) UpdateProject(params UpdateProjectParams) (Project, error) {
	res := db.conn.QueryRow(
		"UPDATE projects SET name = $2, description = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, name, description, owner_id, is_active, created_at, updated_at",
		params.ProjectId,
		params.Name,
		params.Description,
		time.Now().UTC(),
	)

	var p Project
	err := res.Scan(
		&p.Id,
		&p.Name,
		&p.Description,
		&p.OwnerId,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return p, err
}

// DeleteProject removes the project's tasks, comments and memberships and
// marks the project row inactive, all in a single transaction. The project
// row itself is never physically removed.
func (db *PgTaskhiveRepository) DeleteProject(projectId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(
		"DELETE FROM task_comments WHERE task_id IN (SELECT id FROM tasks WHERE project_id = $1)",
		projectId,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM tasks WHERE project_id = $1", projectId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM project_members WHERE project_id = $1", projectId)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		"UPDATE projects SET is_active = FALSE, updated_at = $2 WHERE id = $1",
		projectId,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgTaskhiveRepository) ListAccessibleProjects(accountId int) ([]Project, error) {
	rows, err := db.conn.Query(
		"SELECT DISTINCT p.id, p.name, p.description, p.owner_id, p.is_active, p.created_at, p.updated_at "+
			"FROM projects p LEFT JOIN project_members m ON m.project_id = p.id "+
			"WHERE p.is_active = TRUE AND (p.owner_id = $1 OR m.user_id = $1)",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err = rows.Scan(&p.Id, &p.Name, &p.Description, &p.OwnerId, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}

		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (db *PgTaskhiveRepository) GetProjectStats(projectId int) (ProjectStats, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*), "+
			"COUNT(*) FILTER (WHERE status = 'completed'), "+
			"COUNT(*) FILTER (WHERE status = 'in_progress'), "+
			"COUNT(*) FILTER (WHERE status = 'pending') "+
			"FROM tasks WHERE project_id = $1",
		projectId,
	)

	var stats ProjectStats
	err := row.Scan(&stats.Total, &stats.Completed, &stats.InProgress, &stats.Pending)

	return stats, err
}

func (db *PgTaskhiveRepository) GetMember(projectId, accountId int) (ProjectMember, error) {
	row := db.conn.QueryRow(
		"SELECT m.project_id, m.user_id, m.role, m.joined_at, a.username, a.email "+
			"FROM project_members m JOIN accounts a ON a.id = m.user_id "+
			"WHERE m.project_id = $1 AND m.user_id = $2 LIMIT 1",
		projectId,
		accountId,
	)

	var m ProjectMember
	err := row.Scan(&m.ProjectId, &m.UserId, &m.Role, &m.JoinedAt, &m.UserName, &m.UserEmail)

	return m, err
}

func (db *PgTaskhiveRepository) ListMembers(projectId int) ([]ProjectMember, error) {
	rows, err := db.conn.Query(
		"SELECT m.project_id, m.user_id, m.role, m.joined_at, a.username, a.email "+
			"FROM project_members m JOIN accounts a ON a.id = m.user_id "+
			"WHERE m.project_id = $1 ORDER BY m.joined_at",
		projectId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []ProjectMember
	for rows.Next() {
		var m ProjectMember
		if err = rows.Scan(&m.ProjectId, &m.UserId, &m.Role, &m.JoinedAt, &m.UserName, &m.UserEmail); err != nil {
			return nil, err
		}

		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember inserts a membership row. It reports false without inserting
// when the target user is the project owner or is already a member.
func (db *PgTaskhiveRepository) AddMember(projectId, accountId int, role string) (bool, error) {
	var ownerId int
	if err := db.conn.QueryRow("SELECT owner_id FROM projects WHERE id = $1", projectId).Scan(&ownerId); err != nil {
		return false, err
	}

	if ownerId == accountId {
		return false, nil
	}

	res, err := db.conn.Exec(
		"INSERT INTO project_members (project_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (project_id, user_id) DO NOTHING",
		projectId,
		accountId,
		role,
		time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// RemoveMember deletes a membership row. It reports false for the project
// owner, whose access is not revocable through membership.
func (db *PgTaskhiveRepository) RemoveMember(projectId, accountId int) (bool, error) {
	var ownerId int
	if err := db.conn.QueryRow("SELECT owner_id FROM projects WHERE id = $1", projectId).Scan(&ownerId); err != nil {
		return false, err
	}

	if ownerId == accountId {
		return false, nil
	}

	res, err := db.conn.Exec(
		"DELETE FROM project_members WHERE project_id = $1 AND user_id = $2",
		projectId,
		accountId,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (db *PgTaskhiveRepository) CreateTask(params CreateTaskParams) (Task, error) {
	res := db.conn.QueryRow(
		"INSERT INTO tasks (title, description, status, priority, project_id, assigned_to, created_by, due_date, created_at, updated_at) "+
			"VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7, $8, $8) "+
			"RETURNING id, title, description, status, priority, project_id, assigned_to, created_by, due_date, created_at, updated_at",
		params.Title,
		params.Description,
		params.Priority,
		params.ProjectId,
		params.AssignedTo,
		params.CreatedBy,
		params.DueDate,
		time.Now().UTC(),
	)

	var t Task
	err := res.Scan(
		&t.Id,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.ProjectId,
		&t.AssignedTo,
		&t.CreatedBy,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	return t, err
}

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	err := row.Scan(
		&t.Id,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.ProjectId,
		&t.AssignedTo,
		&t.CreatedBy,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CommentsCount,
	)
	return t, err
}

func (db *PgTaskhiveRepository) GetTaskById(taskId int) (Task, error) {
	row := db.conn.QueryRow(
		"SELECT "+taskColumns+" FROM tasks t WHERE t.id = $1 LIMIT 1",
		taskId,
	)

	return scanTask(row)
}

func (db *PgTaskhiveRepository) UpdateTask(params UpdateTaskParams) (Task, error) {
	res := db.conn.QueryRow(
		"UPDATE tasks t SET title = $2, description = $3, priority = $4, assigned_to = $5, due_date = $6, updated_at = $7 "+
			"WHERE t.id = $1 RETURNING "+taskColumns,
		params.TaskId,
		params.Title,
		params.Description,
		params.Priority,
		params.AssignedTo,
		params.DueDate,
		time.Now().UTC(),
	)

	return scanTask(res)
}

func (db *PgTaskhiveRepository) UpdateTaskStatus(taskId int, status string) (Task, error) {
	res := db.conn.QueryRow(
		"UPDATE tasks t SET status = $2, updated_at = $3 WHERE t.id = $1 RETURNING "+taskColumns,
		taskId,
		status,
		time.Now().UTC(),
	)

	return scanTask(res)
}

// DeleteTask removes the task and its comments in a single transaction.
func (db *PgTaskhiveRepository) DeleteTask(taskId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM task_comments WHERE task_id = $1", taskId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM tasks WHERE id = $1", taskId)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgTaskhiveRepository) ListTasks(filter TaskFilter) ([]Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks t"

	var conds []string
	var args []any
	addCond := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ProjectId > 0 {
		addCond("t.project_id = $%d", filter.ProjectId)
	} else if filter.AccessibleTo > 0 {
		addCond("t.project_id IN ("+
			"SELECT DISTINCT p.id FROM projects p "+
			"LEFT JOIN project_members m ON m.project_id = p.id "+
			"WHERE p.is_active = TRUE AND (p.owner_id = $%[1]d OR m.user_id = $%[1]d))", filter.AccessibleTo)
	}
	if filter.AssignedTo > 0 {
		addCond("t.assigned_to = $%d", filter.AssignedTo)
	}
	if filter.Status != "" {
		addCond("t.status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		addCond("t.priority = $%d", filter.Priority)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// critical tasks first, then newest
	query += " ORDER BY CASE t.priority " +
		"WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, " +
		"t.created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

const accessibleProjectsCTE = "WITH accessible AS (" +
	"SELECT DISTINCT p.id FROM projects p " +
	"LEFT JOIN project_members m ON m.project_id = p.id " +
	"WHERE p.is_active = TRUE AND (p.owner_id = $1 OR m.user_id = $1)) "

func (db *PgTaskhiveRepository) ListRecentTasks(accountId, limit int) ([]Task, error) {
	rows, err := db.conn.Query(
		accessibleProjectsCTE+
			"SELECT "+taskColumns+" FROM tasks t "+
			"WHERE t.project_id IN (SELECT id FROM accessible) "+
			"AND (t.assigned_to = $1 OR t.created_by = $1) "+
			"ORDER BY t.updated_at DESC LIMIT $2",
		accountId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *PgTaskhiveRepository) GetDashboardStats(accountId int) (DashboardStats, error) {
	row := db.conn.QueryRow(
		accessibleProjectsCTE+
			"SELECT (SELECT COUNT(*) FROM accessible), "+
			"COUNT(t.id), "+
			"COUNT(t.id) FILTER (WHERE t.assigned_to = $1), "+
			"COUNT(t.id) FILTER (WHERE t.created_by = $1), "+
			"COUNT(t.id) FILTER (WHERE t.assigned_to = $1 AND t.status = 'completed'), "+
			"COUNT(t.id) FILTER (WHERE t.assigned_to = $1 AND t.due_date < $2 AND t.status NOT IN ('completed', 'cancelled')) "+
			"FROM tasks t WHERE t.project_id IN (SELECT id FROM accessible)",
		accountId,
		time.Now().UTC(),
	)

	var stats DashboardStats
	err := row.Scan(
		&stats.TotalProjects,
		&stats.TotalTasks,
		&stats.AssignedTasks,
		&stats.CreatedTasks,
		&stats.CompletedTasks,
		&stats.OverdueTasks,
	)

	return stats, err
}

func (db *PgTaskhiveRepository) CreateComment(params CreateCommentParams) (Comment, error) {
	res := db.conn.QueryRow(
		"INSERT INTO task_comments (task_id, user_id, comment_text, created_at) "+
			"VALUES ($1, $2, $3, $4) "+
			"RETURNING id, task_id, user_id, comment_text, created_at, "+
			"(SELECT full_name FROM accounts WHERE id = $2)",
		params.TaskId,
		params.UserId,
		params.CommentText,
		time.Now().UTC(),
	)

	var c Comment
	err := res.Scan(&c.Id, &c.TaskId, &c.UserId, &c.CommentText, &c.CreatedAt, &c.AuthorName)

	return c, err
}

func (db *PgTaskhiveRepository) GetCommentById(commentId int) (Comment, error) {
	row := db.conn.QueryRow(
		"SELECT c.id, c.task_id, c.user_id, c.comment_text, c.created_at, a.full_name "+
			"FROM task_comments c JOIN accounts a ON a.id = c.user_id "+
			"WHERE c.id = $1 LIMIT 1",
		commentId,
	)

	var c Comment
	err := row.Scan(&c.Id, &c.TaskId, &c.UserId, &c.CommentText, &c.CreatedAt, &c.AuthorName)

	return c, err
}

func (db *PgTaskhiveRepository) UpdateComment(commentId int, commentText string) (Comment, error) {
	res := db.conn.QueryRow(
		"UPDATE task_comments c SET comment_text = $2 WHERE c.id = $1 "+
			"RETURNING c.id, c.task_id, c.user_id, c.comment_text, c.created_at, "+
			"(SELECT full_name FROM accounts WHERE id = c.user_id)",
		commentId,
		commentText,
	)

	var c Comment
	err := res.Scan(&c.Id, &c.TaskId, &c.UserId, &c.CommentText, &c.CreatedAt, &c.AuthorName)

	return c, err
}

func (db *PgTaskhiveRepository) DeleteComment(commentId int) error {
	_, err := db.conn.Exec("DELETE FROM task_comments WHERE id = $1", commentId)

	return err
}

func (db *PgTaskhiveRepository) ListComments(taskId int) ([]Comment, error) {
	rows, err := db.conn.Query(
		"SELECT c.id, c.task_id, c.user_id, c.comment_text, c.created_at, a.full_name "+
			"FROM task_comments c JOIN accounts a ON a.id = c.user_id "+
			"WHERE c.task_id = $1 ORDER BY c.created_at ASC",
		taskId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err = rows.Scan(&c.Id, &c.TaskId, &c.UserId, &c.CommentText, &c.CreatedAt, &c.AuthorName); err != nil {
			return nil, err
		}

		comments = append(comments, c)
	}
	return comments, rows.Err()
}
