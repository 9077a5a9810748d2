package server

import (
	"fmt"
	"log"

	"github.com/tboucheau/taskhive/internal/stats"
	"github.com/tboucheau/taskhive/internal/types"
)

// EventDispatcher translates committed mutations into room broadcasts. It
// is called by the API layer after the database write succeeds, never
// before; a dropped event cannot roll back anything.
//
// Dispatch is fire and forget: if the broadcast channel is full the event
// is counted as dropped and the HTTP request proceeds unaffected.
type EventDispatcher struct {
	ts    *TaskServer
	log   *log.Logger
	stats stats.StatsProvider
}

func NewEventDispatcher(ts *TaskServer, logger *log.Logger, su stats.StatsProvider) *EventDispatcher {
	return &EventDispatcher{
		ts:    ts,
		log:   logger,
		stats: su,
	}
}

func (d *EventDispatcher) publish(room string, event *Event) {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event:       event,
	}

	select {
	case d.ts.broadcastChan <- &broadcastReq{room: room, msg: msg}:
		d.stats.Incr("NumEventsDispatched")
	default:
		d.stats.Incr("NumEventsDropped")
		d.log.Printf("broadcast channel full, dropping %q event for room %q", event.Kind, room)
	}
}

// notify delivers a targeted notification to the recipient's personal room.
// Users are never notified about their own actions.
func (d *EventDispatcher) notify(recipientId, actorId int, notificationType, message string, taskId, projectId int) {
	if recipientId == actorId {
		return
	}

	d.publish(UserRoom(recipientId), &Event{
		Kind:      EventNotification,
		Type:      notificationType,
		Message:   message,
		TaskId:    taskId,
		ProjectId: projectId,
	})
}

func (d *EventDispatcher) TaskCreated(task types.Task, actor types.User) {
	d.publish(ProjectRoom(task.ProjectId), &Event{
		Kind:  EventTaskCreated,
		Task:  &task,
		Actor: &actor,
	})

	if task.AssignedTo != nil {
		d.notify(*task.AssignedTo, actor.Id, "task_assigned",
			fmt.Sprintf("%s assigned you the task %q", actor.FullName, task.Title),
			task.Id, task.ProjectId)
	}
}

func (d *EventDispatcher) TaskUpdated(task types.Task, actor types.User, changes map[string]any) {
	d.publish(ProjectRoom(task.ProjectId), &Event{
		Kind:    EventTaskUpdated,
		Task:    &task,
		Actor:   &actor,
		Changes: changes,
	})
}

// TaskAssigned notifies a newly assigned user. The caller decides when an
// update actually changed the assignee.
func (d *EventDispatcher) TaskAssigned(task types.Task, actor types.User) {
	if task.AssignedTo == nil {
		return
	}

	d.notify(*task.AssignedTo, actor.Id, "task_assigned",
		fmt.Sprintf("%s assigned you the task %q", actor.FullName, task.Title),
		task.Id, task.ProjectId)
}

func (d *EventDispatcher) TaskStatusChanged(task types.Task, oldStatus string, actor types.User) {
	d.publish(ProjectRoom(task.ProjectId), &Event{
		Kind:      EventTaskStatusChanged,
		Task:      &task,
		Actor:     &actor,
		OldStatus: oldStatus,
		NewStatus: task.Status,
	})

	if task.AssignedTo != nil {
		d.notify(*task.AssignedTo, actor.Id, "task_status_changed",
			fmt.Sprintf("%s moved %q to %s", actor.FullName, task.Title, task.Status),
			task.Id, task.ProjectId)
	}
}

func (d *EventDispatcher) TaskDeleted(taskId, projectId int, title string, actor types.User) {
	d.publish(ProjectRoom(projectId), &Event{
		Kind:      EventTaskDeleted,
		TaskId:    taskId,
		ProjectId: projectId,
		Title:     title,
		Actor:     &actor,
	})
}

func (d *EventDispatcher) CommentAdded(comment types.Comment, task types.Task, actor types.User) {
	d.publish(ProjectRoom(task.ProjectId), &Event{
		Kind:    EventCommentAdded,
		Comment: &comment,
		TaskId:  task.Id,
		Actor:   &actor,
	})

	if task.AssignedTo != nil {
		d.notify(*task.AssignedTo, actor.Id, "comment_added",
			fmt.Sprintf("%s commented on %q", actor.FullName, task.Title),
			task.Id, task.ProjectId)
	}
}

func (d *EventDispatcher) CommentUpdated(comment types.Comment, task types.Task, actor types.User) {
	d.publish(ProjectRoom(task.ProjectId), &Event{
		Kind:    EventCommentUpdated,
		Comment: &comment,
		TaskId:  task.Id,
		Actor:   &actor,
	})
}

func (d *EventDispatcher) CommentDeleted(commentId int, task types.Task, actor types.User) {
	d.publish(ProjectRoom(task.ProjectId), &Event{
		Kind:      EventCommentDeleted,
		CommentId: commentId,
		TaskId:    task.Id,
		ProjectId: task.ProjectId,
		Actor:     &actor,
	})
}

func (d *EventDispatcher) ProjectUpdated(project types.Project, actor types.User, changes map[string]any) {
	d.publish(ProjectRoom(project.Id), &Event{
		Kind:    EventProjectUpdated,
		Project: &project,
		Actor:   &actor,
		Changes: changes,
	})
}

func (d *EventDispatcher) ProjectDeleted(projectId int, name string, actor types.User) {
	d.publish(ProjectRoom(projectId), &Event{
		Kind:      EventProjectDeleted,
		ProjectId: projectId,
		Title:     name,
		Actor:     &actor,
	})
}

func (d *EventDispatcher) MemberAdded(member types.Member, project types.Project, actor types.User) {
	d.publish(ProjectRoom(project.Id), &Event{
		Kind:    EventMemberAdded,
		Member:  &member,
		Project: &project,
		Actor:   &actor,
	})

	d.notify(member.UserId, actor.Id, "member_added",
		fmt.Sprintf("%s added you to the project %q", actor.FullName, project.Name),
		0, project.Id)
}

func (d *EventDispatcher) MemberRemoved(projectId, userId int, project types.Project, actor types.User) {
	d.publish(ProjectRoom(projectId), &Event{
		Kind:      EventMemberRemoved,
		ProjectId: projectId,
		UserId:    userId,
		Actor:     &actor,
	})

	d.notify(userId, actor.Id, "member_removed",
		fmt.Sprintf("%s removed you from the project %q", actor.FullName, project.Name),
		0, projectId)
}
