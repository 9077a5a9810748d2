package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tboucheau/taskhive/internal/types"
)

// Room name layout is relied on by both the registry and the dispatcher:
// integer ids, colon separated, nothing else.
func ProjectRoom(projectId int) string {
	return fmt.Sprintf("project:%d", projectId)
}

func UserRoom(userId int) string {
	return fmt.Sprintf("user:%d", userId)
}

const (
	EventTaskCreated       = "task_created"
	EventTaskUpdated       = "task_updated"
	EventTaskStatusChanged = "task_status_changed"
	EventTaskDeleted       = "task_deleted"
	EventCommentAdded      = "comment_added"
	EventCommentUpdated    = "comment_updated"
	EventCommentDeleted    = "comment_deleted"
	EventProjectUpdated    = "project_updated"
	EventProjectDeleted    = "project_deleted"
	EventMemberAdded       = "member_added"
	EventMemberRemoved     = "member_removed"
	EventUserConnected     = "user_connected"
	EventUserDisconnected  = "user_disconnected"
	EventUserTyping        = "user_typing"
	EventNotification      = "notification"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Join        *Join        `json:"join,omitempty"`
	Leave       *Leave       `json:"leave,omitempty"`
	Typing      *Typing      `json:"typing,omitempty"`
	OnlineUsers *OnlineUsers `json:"online_users,omitempty"`
	Ping        *Ping        `json:"ping,omitempty"`
	UserId      int          `json:"-"`
	client      *Client
}

type Join struct {
	ProjectId int `json:"project_id"`
}

type Leave struct {
	ProjectId int `json:"project_id"`
}

type Typing struct {
	TaskId   int  `json:"task_id"`
	IsTyping bool `json:"is_typing"`
}

type OnlineUsers struct {
	ProjectId int `json:"project_id"`
}

type Ping struct{}

type ServerMessage struct {
	BaseMessage
	Response   *Response `json:"response,omitempty"`
	Event      *Event    `json:"event,omitempty"`
	SkipClient *Client   `json:"-"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// Event is the payload fanned out to rooms after a committed mutation. It
// carries a snapshot of the affected entity, never a diff, except for the
// optional caller-supplied changes map.
type Event struct {
	Kind      string         `json:"kind"`
	Project   *types.Project `json:"project,omitempty"`
	Task      *types.Task    `json:"task,omitempty"`
	Comment   *types.Comment `json:"comment,omitempty"`
	Member    *types.Member  `json:"member,omitempty"`
	User      *types.User    `json:"user,omitempty"`
	Actor     *types.User    `json:"actor,omitempty"`
	Changes   map[string]any `json:"changes,omitempty"`
	OldStatus string         `json:"old_status,omitempty"`
	NewStatus string         `json:"new_status,omitempty"`
	ProjectId int            `json:"project_id,omitempty"`
	TaskId    int            `json:"task_id,omitempty"`
	CommentId int            `json:"comment_id,omitempty"`
	UserId    int            `json:"user_id,omitempty"`
	Title     string         `json:"title,omitempty"`
	IsTyping  bool           `json:"is_typing,omitempty"`
	Type      string         `json:"type,omitempty"`
	Message   string         `json:"message,omitempty"`
}

type OnlineUser struct {
	UserId       int       `json:"user_id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrProjectNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "project not found",
		},
	}
}

func ErrTaskNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "task not found",
		},
	}
}

func ErrAccessDenied(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusForbidden,
			Error:        "access denied",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
