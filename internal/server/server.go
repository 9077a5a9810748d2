package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/tboucheau/taskhive/internal/database"
	"github.com/tboucheau/taskhive/internal/policy"
	"github.com/tboucheau/taskhive/internal/stats"
)

// TaskServer is the connection registry. All client and room state is owned
// by the Run goroutine and mutated only there; every other component talks
// to it through channels.
type TaskServer struct {
	log            *log.Logger
	db             database.TaskhiveRepository
	policy         *policy.Engine
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	rooms          map[string]map[*Client]struct{}
	RegisterChan   chan *Client
	deregisterChan chan *Client
	joinChan       chan *ClientMessage
	leaveChan      chan *ClientMessage
	clientMsgChan  chan *ClientMessage
	broadcastChan  chan *broadcastReq
	stop           chan stopReq
}

type broadcastReq struct {
	room string
	msg  *ServerMessage
}

type stopReq struct {
	done chan struct{}
}

func NewTaskServer(logger *log.Logger, db database.TaskhiveRepository, pol *policy.Engine, su stats.StatsProvider) (*TaskServer, error) {
	ts := &TaskServer{
		log:            logger,
		db:             db,
		policy:         pol,
		stats:          su,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deregisterChan: make(chan *Client),
		joinChan:       make(chan *ClientMessage, 256),
		leaveChan:      make(chan *ClientMessage, 256),
		clientMsgChan:  make(chan *ClientMessage, 256),
		broadcastChan:  make(chan *broadcastReq, 256),
		stop:           make(chan stopReq),
	}

	ts.stats.RegisterMetric("NumConnections")
	ts.stats.RegisterMetric("NumRooms")
	ts.stats.RegisterMetric("NumEventsDispatched")
	ts.stats.RegisterMetric("NumEventsDropped")

	return ts, nil
}

func (ts *TaskServer) Run() {
	for {
		select {
		case client := <-ts.RegisterChan:
			ts.log.Printf("adding connection %q from %q", client.id, client.user.Username)
			ts.handleRegister(client)
		case client := <-ts.deregisterChan:
			ts.log.Printf("removing connection %q from %q", client.id, client.user.Username)
			ts.handleDeregister(client)
		case msg := <-ts.joinChan:
			ts.handleJoin(msg)
		case msg := <-ts.leaveChan:
			ts.handleLeave(msg)
		case msg := <-ts.clientMsgChan:
			switch {
			case msg.Typing != nil:
				ts.handleTyping(msg)
			case msg.OnlineUsers != nil:
				ts.handleOnlineUsers(msg)
			case msg.Ping != nil:
				ts.handlePing(msg)
			}
		case req := <-ts.broadcastChan:
			ts.broadcast(req.room, req.msg)
		case req := <-ts.stop:
			ts.log.Println("stopping clients")
			for c := range ts.clients {
				c.stopClient()
			}
			close(req.done)
			return
		}
	}
}

// handleRegister adds the session to the registry and auto-joins the user's
// personal room plus the room of every project the user can currently view.
// Presence is announced to each of those project rooms.
func (ts *TaskServer) handleRegister(c *Client) {
	ts.clients[c] = struct{}{}
	ts.stats.Incr("NumConnections")

	ts.addToRoom(c, UserRoom(c.user.Id))

	projects, err := ts.policy.AccessibleProjects(c.user.Id)
	if err != nil {
		ts.log.Println("AccessibleProjects:", err)
		c.queueMessage(ErrInternalError(0))
		return
	}

	for _, p := range projects {
		room := ProjectRoom(p.Id)
		firstSession := !ts.userInRoom(c.user.Id, room)
		ts.addToRoom(c, room)

		if firstSession {
			ts.broadcast(room, ts.presenceMessage(EventUserConnected, c, room))
		}
	}

	c.queueMessage(NoErrOK(0, map[string]any{
		"session_id": c.id,
		"user_id":    c.user.Id,
		"username":   c.user.Username,
	}))
}

// handleDeregister removes the session from every room it occupies. Rooms
// where this was the user's last session get a user_disconnected broadcast.
func (ts *TaskServer) handleDeregister(c *Client) {
	if _, ok := ts.clients[c]; !ok {
		return
	}

	delete(ts.clients, c)
	ts.stats.Decr("NumConnections")

	for room := range c.rooms {
		ts.removeFromRoom(c, room)

		if strings.HasPrefix(room, "project:") && !ts.userInRoom(c.user.Id, room) {
			ts.broadcast(room, ts.presenceMessage(EventUserDisconnected, c, room))
		}
	}
}

func (ts *TaskServer) handleJoin(msg *ClientMessage) {
	c := msg.client
	project, err := ts.db.GetProjectById(msg.Join.ProjectId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.queueMessage(ErrProjectNotFound(msg.Id))
		} else {
			ts.log.Println("GetProjectById:", err)
			c.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	ok, err := ts.policy.CanViewProject(c.user.Id, project)
	if err != nil {
		ts.log.Println("CanViewProject:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}
	if !ok {
		c.queueMessage(ErrAccessDenied(msg.Id))
		return
	}

	room := ProjectRoom(project.Id)
	firstSession := !ts.userInRoom(c.user.Id, room)
	ts.addToRoom(c, room)

	c.queueMessage(NoErrOK(msg.Id, map[string]any{
		"room":       room,
		"project_id": project.Id,
	}))

	if firstSession {
		ts.broadcast(room, &ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Event: &Event{
				Kind:      EventUserConnected,
				ProjectId: project.Id,
				User:      &c.user,
			},
			SkipClient: c,
		})
	}
}

func (ts *TaskServer) handleLeave(msg *ClientMessage) {
	c := msg.client
	room := ProjectRoom(msg.Leave.ProjectId)

	if _, ok := c.rooms[room]; !ok {
		// leaving a room you're not in is a no-op
		c.queueMessage(NoErrOK(msg.Id, nil))
		return
	}

	ts.removeFromRoom(c, room)
	c.queueMessage(NoErrOK(msg.Id, nil))

	if !ts.userInRoom(c.user.Id, room) {
		ts.broadcast(room, ts.presenceMessage(EventUserDisconnected, c, room))
	}
}

// handleTyping relays a typing indicator to the task's project room,
// excluding the sender. Failures are dropped silently; a missed indicator
// is not worth an error round trip.
func (ts *TaskServer) handleTyping(msg *ClientMessage) {
	c := msg.client
	task, err := ts.db.GetTaskById(msg.Typing.TaskId)
	if err != nil {
		ts.log.Println("GetTaskById:", err)
		return
	}

	room := ProjectRoom(task.ProjectId)
	if _, ok := c.rooms[room]; !ok {
		return
	}

	ts.broadcast(room, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			Kind:      EventUserTyping,
			TaskId:    task.Id,
			ProjectId: task.ProjectId,
			IsTyping:  msg.Typing.IsTyping,
			User:      &c.user,
		},
		SkipClient: c,
	})
}

func (ts *TaskServer) handleOnlineUsers(msg *ClientMessage) {
	c := msg.client
	project, err := ts.db.GetProjectById(msg.OnlineUsers.ProjectId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.queueMessage(ErrProjectNotFound(msg.Id))
		} else {
			ts.log.Println("GetProjectById:", err)
			c.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	ok, err := ts.policy.CanViewProject(c.user.Id, project)
	if err != nil {
		ts.log.Println("CanViewProject:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}
	if !ok {
		c.queueMessage(ErrAccessDenied(msg.Id))
		return
	}

	users := ts.onlineUsers(ProjectRoom(project.Id))
	c.queueMessage(NoErrOK(msg.Id, map[string]any{
		"project_id": project.Id,
		"users":      users,
		"count":      len(users),
	}))
}

func (ts *TaskServer) handlePing(msg *ClientMessage) {
	msg.client.lastActivity = Now()
	msg.client.queueMessage(NoErrOK(msg.Id, map[string]any{
		"pong": msg.client.lastActivity,
	}))
}

// onlineUsers lists the distinct users present in a room. A user with
// several sessions appears once, with the earliest connect time and the
// most recent activity.
func (ts *TaskServer) onlineUsers(room string) []OnlineUser {
	byUser := make(map[int]*OnlineUser)
	for c := range ts.rooms[room] {
		ou, ok := byUser[c.user.Id]
		if !ok {
			byUser[c.user.Id] = &OnlineUser{
				UserId:       c.user.Id,
				Username:     c.user.Username,
				FullName:     c.user.FullName,
				ConnectedAt:  c.connectedAt,
				LastActivity: c.lastActivity,
			}
			continue
		}

		if c.connectedAt.Before(ou.ConnectedAt) {
			ou.ConnectedAt = c.connectedAt
		}
		if c.lastActivity.After(ou.LastActivity) {
			ou.LastActivity = c.lastActivity
		}
	}

	users := make([]OnlineUser, 0, len(byUser))
	for _, ou := range byUser {
		users = append(users, *ou)
	}

	return users
}

func (ts *TaskServer) addToRoom(c *Client, room string) {
	if ts.rooms[room] == nil {
		ts.rooms[room] = make(map[*Client]struct{})
		ts.stats.Incr("NumRooms")
	}

	ts.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (ts *TaskServer) removeFromRoom(c *Client, room string) {
	clients, ok := ts.rooms[room]
	if !ok {
		return
	}

	delete(clients, c)
	delete(c.rooms, room)

	if len(clients) == 0 {
		delete(ts.rooms, room)
		ts.stats.Decr("NumRooms")
	}
}

func (ts *TaskServer) userInRoom(userId int, room string) bool {
	for c := range ts.rooms[room] {
		if c.user.Id == userId {
			return true
		}
	}

	return false
}

func (ts *TaskServer) presenceMessage(kind string, c *Client, room string) *ServerMessage {
	var projectId int
	if id, ok := strings.CutPrefix(room, "project:"); ok {
		projectId, _ = strconv.Atoi(id)
	}

	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			Kind:      kind,
			ProjectId: projectId,
			User:      &c.user,
		},
		SkipClient: c,
	}
}

func (ts *TaskServer) broadcast(room string, msg *ServerMessage) {
	for client := range ts.rooms[room] {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}

// Shutdown stops all client connections and exits the run loop. It returns
// early with ctx's error if the run loop doesn't acknowledge in time.
func (ts *TaskServer) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case ts.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
