package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tboucheau/taskhive/internal/database"
	"github.com/tboucheau/taskhive/internal/types"
)

type CommentRequest struct {
	CommentText string `json:"comment_text"`
}

func (s *TaskhiveApp) loadComment(w http.ResponseWriter, commentId int) (database.Comment, bool) {
	comment, err := s.db.GetCommentById(commentId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeError(w, errResp)
		return database.Comment{}, false
	}

	return comment, true
}

func (s *TaskhiveApp) listComments(w http.ResponseWriter, r *http.Request) {
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

	comments := make([]types.Comment, 0, len(dbComments))
	for _, c := range dbComments {
		comments = append(comments, apiComment(c))
	}

	s.writeJson(w, http.StatusOK, comments)
}

func (s *TaskhiveApp) createComment(w http.ResponseWriter, r *http.Request) {
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

	// anyone who can view the task may comment on it
	canView, err := s.policy.CanViewTask(userId, task)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !canView {
		s.writeError(w, NewForbiddenError())
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.CommentText == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	newComment, err := s.db.CreateComment(database.CreateCommentParams{
		TaskId:      taskId,
		UserId:      userId,
		CommentText: req.CommentText,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	c := apiComment(newComment)
	s.dispatcher.CommentAdded(c, apiTask(task), s.actor(userId))

	s.writeJson(w, http.StatusCreated, c)
}

func (s *TaskhiveApp) updateComment(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	commentId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	comment, ok := s.loadComment(w, commentId)
	if !ok {
		return
	}

	if !s.policy.CanEditComment(userId, comment) {
		s.writeError(w, NewForbiddenError())
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.CommentText == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	// resolve the parent task before committing anything
	task, ok := s.loadTask(w, comment.TaskId)
	if !ok {
		return
	}

	updated, err := s.db.UpdateComment(commentId, req.CommentText)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	c := apiComment(updated)
	s.dispatcher.CommentUpdated(c, apiTask(task), s.actor(userId))

	s.writeJson(w, http.StatusOK, c)
}

func (s *TaskhiveApp) deleteComment(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	commentId, err := pathId(r, "id")
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	comment, ok := s.loadComment(w, commentId)
	if !ok {
		return
	}

	canDelete, err := s.policy.CanDeleteComment(userId, comment)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if !canDelete {
		s.writeError(w, NewForbiddenError())
		return
	}

	task, ok := s.loadTask(w, comment.TaskId)
	if !ok {
		return
	}

	if err := s.db.DeleteComment(commentId); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.dispatcher.CommentDeleted(commentId, apiTask(task), s.actor(userId))

	s.writeJson(w, http.StatusNoContent, nil)
}
