package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/tboucheau/taskhive/internal/config"
	"github.com/tboucheau/taskhive/internal/database"
	"github.com/tboucheau/taskhive/internal/policy"
	"github.com/tboucheau/taskhive/internal/server"
	"github.com/tboucheau/taskhive/internal/stats"
	"github.com/tboucheau/taskhive/internal/types"
	"github.com/teris-io/shortid"
)

type TaskhiveApp struct {
	log               *log.Logger
	db                database.TaskhiveRepository
	policy            *policy.Engine
	mux               *http.Server
	ts                *server.TaskServer
	dispatcher        *server.EventDispatcher
	stats             stats.StatsProvider
	signingKey        []byte
	allowedOrigins    []string
	generateSessionId func() (string, error)
}

func NewTaskhiveApp(logger *log.Logger, ts *server.TaskServer, dispatcher *server.EventDispatcher,
	db database.TaskhiveRepository, pol *policy.Engine, su stats.StatsProvider,
	mux *http.ServeMux, cfg *config.Config) *TaskhiveApp {
	s := &TaskhiveApp{
		log:               logger,
		db:                db,
		policy:            pol,
		ts:                ts,
		dispatcher:        dispatcher,
		stats:             su,
		signingKey:        cfg.SigningKey,
		allowedOrigins:    cfg.AllowedOrigins,
		generateSessionId: shortid.Generate,
	}

	mux.HandleFunc("GET /api/healthz", s.healthz)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))

	mux.Handle("GET /api/projects", s.authMiddleware(s.listProjects))
	mux.Handle("POST /api/projects", s.authMiddleware(s.createProject))
	mux.Handle("GET /api/projects/{id}", s.authMiddleware(s.getProject))
	mux.Handle("PUT /api/projects/{id}", s.authMiddleware(s.updateProject))
	mux.Handle("DELETE /api/projects/{id}", s.authMiddleware(s.deleteProject))
	mux.Handle("GET /api/projects/{id}/members", s.authMiddleware(s.listMembers))
	mux.Handle("POST /api/projects/{id}/members", s.authMiddleware(s.addMember))
	mux.Handle("DELETE /api/projects/{id}/members/{userId}", s.authMiddleware(s.removeMember))

	mux.Handle("GET /api/tasks", s.authMiddleware(s.listTasks))
	mux.Handle("POST /api/tasks", s.authMiddleware(s.createTask))
	mux.Handle("GET /api/tasks/{id}", s.authMiddleware(s.getTask))
	mux.Handle("PUT /api/tasks/{id}", s.authMiddleware(s.updateTask))
	mux.Handle("PUT /api/tasks/{id}/status", s.authMiddleware(s.updateTaskStatus))
	mux.Handle("DELETE /api/tasks/{id}", s.authMiddleware(s.deleteTask))
	mux.Handle("GET /api/tasks/{id}/comments", s.authMiddleware(s.listComments))
	mux.Handle("POST /api/tasks/{id}/comments", s.authMiddleware(s.createComment))
	mux.Handle("PUT /api/comments/{id}", s.authMiddleware(s.updateComment))
	mux.Handle("DELETE /api/comments/{id}", s.authMiddleware(s.deleteComment))

	mux.Handle("GET /api/dashboard/stats", s.authMiddleware(s.dashboardStats))
	mux.Handle("GET /api/dashboard/recent", s.authMiddleware(s.recentTasks))

	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *TaskhiveApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *TaskhiveApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *TaskhiveApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *TaskhiveApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.Err != nil {
		s.log.Println(errResp.Error())
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

// pathId parses a numeric path segment such as {id}.
func pathId(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.PathValue(name))
}

type contextKey string

const userIdKey contextKey = "user-id"

func WithUserId(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, userIdKey, userId)
}

func UserId(ctx context.Context) (int, bool) {
	userId, ok := ctx.Value(userIdKey).(int)

	return userId, ok
}

func apiUser(u database.User) types.User {
	return types.User{
		Id:        u.Id,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func apiProject(p database.Project) types.Project {
	return types.Project{
		Id:          p.Id,
		Name:        p.Name,
		Description: p.Description,
		OwnerId:     p.OwnerId,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func apiMember(m database.ProjectMember) types.Member {
	return types.Member{
		ProjectId: m.ProjectId,
		UserId:    m.UserId,
		Role:      m.Role,
		UserName:  m.UserName,
		UserEmail: m.UserEmail,
		JoinedAt:  m.JoinedAt,
	}
}

func apiTask(t database.Task) types.Task {
	return types.Task{
		Id:            t.Id,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		Priority:      t.Priority,
		ProjectId:     t.ProjectId,
		AssignedTo:    t.AssignedTo,
		CreatedBy:     t.CreatedBy,
		DueDate:       t.DueDate,
		IsOverdue:     types.IsOverdue(t.DueDate, t.Status),
		CommentsCount: t.CommentsCount,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func apiComment(c database.Comment) types.Comment {
	return types.Comment{
		Id:          c.Id,
		TaskId:      c.TaskId,
		UserId:      c.UserId,
		CommentText: c.CommentText,
		AuthorName:  c.AuthorName,
		CreatedAt:   c.CreatedAt,
	}
}
