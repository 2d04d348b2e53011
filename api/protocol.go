package api

import (
	"encoding/json"

	"github.com/ellevenagent/project-dashboard/domain"
)

const postTaskMaxSize = 64 * 1024 // 64 KiB

// Mutation actions accepted on POST /api/tasks.
const (
	ActionAdd    = "add"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Realtime channel events. Server to client: session, tasks:update,
// clawd:task. Client to server: the task:* mutations. dev:status and
// activity:broadcast are relayed in both directions.
const (
	EventSession           = "session"
	EventTasksUpdate       = "tasks:update"
	EventClawdTask         = "clawd:task"
	EventTaskAdd           = "task:add"
	EventTaskUpdate        = "task:update"
	EventTaskDelete        = "task:delete"
	EventDevStatus         = "dev:status"
	EventActivityBroadcast = "activity:broadcast"
)

type tasksResponse struct {
	Tasks     []domain.Task `json:"tasks"`
	Timestamp int64         `json:"timestamp"`
	Source    string        `json:"source"`
}

type mutationRequest struct {
	Action string            `json:"action"`
	Task   *domain.TaskPatch `json:"task,omitempty"`
	TaskID int64             `json:"taskId,omitempty"`
}

type mutationResponse struct {
	Success   bool  `json:"success"`
	Timestamp int64 `json:"timestamp"`
}

type columnCounts struct {
	Backlog  int `json:"backlog"`
	Progress int `json:"progress"`
	Done     int `json:"done"`
	Paused   int `json:"paused"`
}

type statusResponse struct {
	Status    string       `json:"status"`
	Timestamp int64        `json:"timestamp"`
	Source    string       `json:"source"`
	Total     int          `json:"total"`
	ByColumn  columnCounts `json:"byColumn"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Postgres  bool   `json:"postgres"`
	WebSocket bool   `json:"websocket"`
	Clients   int    `json:"clients"`
	Timestamp int64  `json:"timestamp"`
}

// emitRequest is the inbound leg of the realtime channel: one event posted
// against an open session.
type emitRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type sessionPayload struct {
	ID string `json:"id"`
}

// relayPayload wraps a free-form signaling event with its originating
// session and a timestamp before fan-out. The inner payload is untouched.
type relayPayload struct {
	From      string          `json:"from"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type assignedNotification struct {
	Task    domain.Task `json:"task"`
	Message string      `json:"message"`
}
