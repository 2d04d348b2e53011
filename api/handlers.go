package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/ellevenagent/project-dashboard/domain"
	"github.com/ellevenagent/project-dashboard/storage"
)

// Server owns the process-scoped request state: the active store, the
// session hub and the broadcaster. It is built once at startup and torn
// down on shutdown; handlers carry no ambient globals.
type Server struct {
	store  Storage
	hub    *Hub
	caster *Broadcaster
	logger *log.Logger
}

func NewServer(store Storage, logger *log.Logger) *Server {
	hub := NewHub()
	return &Server{
		store:  store,
		hub:    hub,
		caster: NewBroadcaster(store, hub, logger),
		logger: logger,
	}
}

// Register wires up all API routes on the provided Echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/api/tasks", s.getTasks)
	e.POST("/api/tasks", s.postTasks)
	e.GET("/api/status", s.getStatus)
	e.GET("/api/health", s.getHealth)
	e.GET("/api/events", s.streamEvents)
	e.POST("/api/events/:session", s.emitEvent)
}

// Shutdown drains the broadcaster.
func (s *Server) Shutdown() {
	s.caster.Shutdown()
}

func (s *Server) getTasks(c echo.Context) (err error) {
	ctx := c.Request().Context()
	metrics, spanCtx := newTaskRequestMetrics(ctx, s.logger)
	if spanCtx != nil {
		c.SetRequest(c.Request().WithContext(spanCtx))
		ctx = spanCtx
	}
	defer func() {
		metrics.Log(c.Response().Status, err)
	}()

	fetchStart := time.Now()
	tasks, fetchErr := s.store.List(ctx)
	metrics.ObserveFetch(time.Since(fetchStart))
	if fetchErr != nil {
		// Storage failures degrade to an empty board, they never fail the
		// request.
		metrics.SetErrorStage("storage")
		s.logger.Errorf("list tasks: %v", fetchErr)
		tasks = []domain.Task{}
	}
	metrics.SetTasksReturned(len(tasks))
	metrics.SetSource(s.store.Kind())

	encodeStart := time.Now()
	err = c.JSON(http.StatusOK, tasksResponse{
		Tasks:     tasks,
		Timestamp: domain.NextTimestamp(),
		Source:    s.store.Kind(),
	})
	metrics.ObserveEncode(time.Since(encodeStart))
	if err != nil {
		metrics.SetErrorStage("encode_response")
	}
	return err
}

func (s *Server) postTasks(c echo.Context) error {
	lr := io.LimitReader(c.Request().Body, postTaskMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)

	var req mutationRequest
	if err := dec.Decode(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}

	ok := s.applyMutation(c.Request().Context(), req)
	return c.JSON(http.StatusOK, mutationResponse{
		Success:   ok,
		Timestamp: domain.NextTimestamp(),
	})
}

// applyMutation validates and executes one mutation action, then runs the
// post-commit broadcast. Unknown actions and missing required fields are
// quiet no-ops reported as success:false, same as today's clients expect.
// Shared verbatim by the HTTP handler and the realtime channel.
func (s *Server) applyMutation(ctx context.Context, req mutationRequest) bool {
	switch req.Action {
	case ActionAdd:
		if req.Task == nil || req.Task.Title == nil || *req.Task.Title == "" {
			return false
		}
		patch := *req.Task
		patch.ID = 0 // ids are store-assigned, never client-supplied on add
		task, created, err := s.store.Upsert(ctx, patch)
		if err != nil {
			s.logger.Errorf("add task: %v", err)
			return false
		}
		s.afterMutation()
		if created && domain.AssignedToClawd(task.Assignee) {
			s.caster.TaskAssigned(task)
		}
		return true

	case ActionUpdate:
		if req.Task == nil || !req.Task.IsUpdate() {
			return false
		}
		if _, _, err := s.store.Upsert(ctx, *req.Task); err != nil {
			s.logger.Errorf("update task %d: %v", req.Task.ID, err)
			return false
		}
		s.afterMutation()
		return true

	case ActionDelete:
		if req.TaskID <= 0 {
			return false
		}
		if err := s.store.Delete(ctx, req.TaskID); err != nil {
			s.logger.Errorf("delete task %d: %v", req.TaskID, err)
			return false
		}
		s.afterMutation()
		return true
	}
	return false
}

// afterMutation triggers the full-list broadcast. Only the durable backend
// does; file-backed writes stay silent, matching the current system.
func (s *Server) afterMutation() {
	if s.store.Kind() == storage.KindPostgres {
		s.caster.TasksChanged()
	}
}

func (s *Server) getStatus(c echo.Context) error {
	tasks, err := s.store.List(c.Request().Context())
	if err != nil {
		s.logger.Errorf("status list: %v", err)
		tasks = nil
	}

	var counts columnCounts
	for _, t := range tasks {
		// Tasks in any other column land in no bucket.
		switch t.Column {
		case domain.ColumnBacklog:
			counts.Backlog++
		case domain.ColumnProgress:
			counts.Progress++
		case domain.ColumnDone:
			counts.Done++
		case domain.ColumnPaused:
			counts.Paused++
		}
	}

	return c.JSON(http.StatusOK, statusResponse{
		Status:    "ok",
		Timestamp: domain.NextTimestamp(),
		Source:    s.store.Kind(),
		Total:     len(tasks),
		ByColumn:  counts,
	})
}

func (s *Server) getHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		Postgres:  s.store.Kind() == storage.KindPostgres,
		WebSocket: true,
		Clients:   s.hub.Count(),
		Timestamp: domain.NextTimestamp(),
	})
}
