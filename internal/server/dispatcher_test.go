package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tboucheau/taskhive/internal/database"
	"github.com/tboucheau/taskhive/internal/stats"
	"github.com/tboucheau/taskhive/internal/testutil"
	"github.com/tboucheau/taskhive/internal/types"
)

func intPtr(i int) *int { return &i }

func newTestDispatcher(t *testing.T, su *stats.MockStatsUpdater) (*EventDispatcher, *TaskServer) {
	ts := newTestTaskServer(t, &database.MockTaskhiveRepository{}, su)
	return NewEventDispatcher(ts, testutil.TestLogger(t), su), ts
}

func receiveBroadcast(t *testing.T, ts *TaskServer) *broadcastReq {
	t.Helper()
	select {
	case req := <-ts.broadcastChan:
		return req
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected a broadcast request")
		return nil
	}
}

func assertNoBroadcast(t *testing.T, ts *TaskServer) {
	t.Helper()
	select {
	case req := <-ts.broadcastChan:
		t.Fatalf("expected no broadcast, got %q event for room %q", req.msg.Event.Kind, req.room)
	default:
	}
}

func TestTaskCreated(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", "NumEventsDispatched").Times(2)

	d, ts := newTestDispatcher(t, su)

	actor := types.User{Id: 1, FullName: "Alice A"}
	task := types.Task{Id: 5, Title: "ship it", ProjectId: 10, CreatedBy: 1, AssignedTo: intPtr(2)}

	d.TaskCreated(task, actor)

	req := receiveBroadcast(t, ts)
	assert.Equal(t, ProjectRoom(10), req.room)
	assert.Equal(t, EventTaskCreated, req.msg.Event.Kind)
	assert.Equal(t, 5, req.msg.Event.Task.Id)
	assert.Equal(t, 1, req.msg.Event.Actor.Id)

	req = receiveBroadcast(t, ts)
	assert.Equal(t, UserRoom(2), req.room, "expected assignment notification in the assignee's room")
	assert.Equal(t, EventNotification, req.msg.Event.Kind)
	assert.Equal(t, "task_assigned", req.msg.Event.Type)
	assert.Equal(t, 5, req.msg.Event.TaskId)
}

func TestTaskCreatedSelfAssignmentNotNotified(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", "NumEventsDispatched").Once()

	d, ts := newTestDispatcher(t, su)

	actor := types.User{Id: 1, FullName: "Alice A"}
	task := types.Task{Id: 5, ProjectId: 10, CreatedBy: 1, AssignedTo: intPtr(1)}

	d.TaskCreated(task, actor)

	req := receiveBroadcast(t, ts)
	assert.Equal(t, ProjectRoom(10), req.room)
	assertNoBroadcast(t, ts)
}

func TestTaskStatusChanged(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)

	d, ts := newTestDispatcher(t, su)

	actor := types.User{Id: 1, FullName: "Alice A"}
	task := types.Task{Id: 5, Title: "ship it", ProjectId: 10, Status: types.StatusCompleted, AssignedTo: intPtr(2)}

	d.TaskStatusChanged(task, types.StatusInProgress, actor)

	req := receiveBroadcast(t, ts)
	assert.Equal(t, EventTaskStatusChanged, req.msg.Event.Kind)
	assert.Equal(t, types.StatusInProgress, req.msg.Event.OldStatus)
	assert.Equal(t, types.StatusCompleted, req.msg.Event.NewStatus)

	req = receiveBroadcast(t, ts)
	assert.Equal(t, UserRoom(2), req.room)
	assert.Equal(t, "task_status_changed", req.msg.Event.Type)
}

func TestTaskAssigned(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)

	d, ts := newTestDispatcher(t, su)
	actor := types.User{Id: 1, FullName: "Alice A"}

	t.Run("unassigned task is a no-op", func(t *testing.T) {
		d.TaskAssigned(types.Task{Id: 5, ProjectId: 10}, actor)
		assertNoBroadcast(t, ts)
	})

	t.Run("assignee is notified", func(t *testing.T) {
		d.TaskAssigned(types.Task{Id: 5, ProjectId: 10, AssignedTo: intPtr(2)}, actor)
		req := receiveBroadcast(t, ts)
		assert.Equal(t, UserRoom(2), req.room)
		assert.Equal(t, "task_assigned", req.msg.Event.Type)
	})
}

func TestCommentAdded(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)

	d, ts := newTestDispatcher(t, su)

	actor := types.User{Id: 2, FullName: "Bob B"}
	task := types.Task{Id: 5, Title: "ship it", ProjectId: 10, AssignedTo: intPtr(3)}
	comment := types.Comment{Id: 7, TaskId: 5, UserId: 2, CommentText: "done?"}

	d.CommentAdded(comment, task, actor)

	req := receiveBroadcast(t, ts)
	assert.Equal(t, ProjectRoom(10), req.room)
	assert.Equal(t, EventCommentAdded, req.msg.Event.Kind)
	assert.Equal(t, 7, req.msg.Event.Comment.Id)

	req = receiveBroadcast(t, ts)
	assert.Equal(t, UserRoom(3), req.room)
	assert.Equal(t, "comment_added", req.msg.Event.Type)
}

func TestMemberAdded(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)

	d, ts := newTestDispatcher(t, su)

	actor := types.User{Id: 1, FullName: "Alice A"}
	project := types.Project{Id: 10, Name: "roadmap"}
	member := types.Member{ProjectId: 10, UserId: 2, Role: "member"}

	d.MemberAdded(member, project, actor)

	req := receiveBroadcast(t, ts)
	assert.Equal(t, ProjectRoom(10), req.room)
	assert.Equal(t, EventMemberAdded, req.msg.Event.Kind)

	req = receiveBroadcast(t, ts)
	assert.Equal(t, UserRoom(2), req.room)
	assert.Equal(t, "member_added", req.msg.Event.Type)
}

func TestMemberRemoved(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)

	d, ts := newTestDispatcher(t, su)

	actor := types.User{Id: 1, FullName: "Alice A"}
	project := types.Project{Id: 10, Name: "roadmap"}

	d.MemberRemoved(10, 2, project, actor)

	req := receiveBroadcast(t, ts)
	assert.Equal(t, EventMemberRemoved, req.msg.Event.Kind)
	assert.Equal(t, 2, req.msg.Event.UserId)

	req = receiveBroadcast(t, ts)
	assert.Equal(t, UserRoom(2), req.room)
	assert.Equal(t, "member_removed", req.msg.Event.Type)
}

func TestProjectDeleted(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)

	d, ts := newTestDispatcher(t, su)

	d.ProjectDeleted(10, "roadmap", types.User{Id: 1})

	req := receiveBroadcast(t, ts)
	assert.Equal(t, ProjectRoom(10), req.room)
	assert.Equal(t, EventProjectDeleted, req.msg.Event.Kind)
	assert.Equal(t, "roadmap", req.msg.Event.Title)
}

func TestPublishDropsWhenChannelFull(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", "NumEventsDispatched").Times(256)
	su.On("Incr", "NumEventsDropped").Once()

	d, _ := newTestDispatcher(t, su)

	// fill the broadcast channel, then one more
	for i := 0; i < 256; i++ {
		d.publish(ProjectRoom(10), &Event{Kind: EventTaskUpdated})
	}
	d.publish(ProjectRoom(10), &Event{Kind: EventTaskUpdated})
}
