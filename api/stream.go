package api

import (
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/ellevenagent/project-dashboard/domain"
)

// streamEvents is the push leg of the realtime channel. Each connection
// becomes a session: the server assigns an id, sends it as a `session`
// event, pushes the current task list to this session alone, then relays
// hub envelopes until the client goes away.
func (s *Server) streamEvents(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}

	ctx := c.Request().Context()
	id, ch := s.hub.Register()
	defer s.hub.Unregister(id)

	hello, err := sonic.Marshal(sessionPayload{ID: id})
	if err != nil {
		return err
	}
	if err := writeFrame(c.Response(), EventSession, hello); err != nil {
		return nil
	}

	tasks, err := s.store.List(ctx)
	if err != nil {
		s.logger.Errorf("initial snapshot: %v", err)
		tasks = []domain.Task{}
	}
	snapshot, err := sonic.Marshal(tasks)
	if err != nil {
		s.logger.Errorf("snapshot encode: %v", err)
		return nil
	}
	if err := writeFrame(c.Response(), EventTasksUpdate, snapshot); err != nil {
		return nil
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-ch:
			if err := writeFrame(c.Response(), env.event, env.data); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeFrame(w io.Writer, event string, data []byte) error {
	if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n\n"))
	return err
}

// emitEvent is the inbound leg: clients post events against their session.
// task:* events run the same store + broadcast path as POST /api/tasks,
// with no echo suppression for the originator. dev:status and
// activity:broadcast are relayed to everyone verbatim, tagged with the
// originating session and a timestamp; nothing is persisted or retried.
func (s *Server) emitEvent(c echo.Context) error {
	id := c.Param("session")
	if !s.hub.Has(id) {
		return c.NoContent(http.StatusNotFound)
	}

	lr := io.LimitReader(c.Request().Body, postTaskMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)

	var req emitRequest
	if err := dec.Decode(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}

	ctx := c.Request().Context()
	switch req.Event {
	case EventTaskAdd, EventTaskUpdate:
		var patch domain.TaskPatch
		if len(req.Data) > 0 {
			if err := sonic.Unmarshal(req.Data, &patch); err != nil {
				return c.String(http.StatusBadRequest, "invalid task")
			}
		}
		action := ActionAdd
		if req.Event == EventTaskUpdate {
			action = ActionUpdate
		}
		ok := s.applyMutation(ctx, mutationRequest{Action: action, Task: &patch})
		return c.JSON(http.StatusOK, mutationResponse{Success: ok, Timestamp: domain.NextTimestamp()})

	case EventTaskDelete:
		var body struct {
			TaskID int64 `json:"taskId"`
		}
		if len(req.Data) > 0 {
			if err := sonic.Unmarshal(req.Data, &body); err != nil {
				return c.String(http.StatusBadRequest, "invalid task id")
			}
		}
		ok := s.applyMutation(ctx, mutationRequest{Action: ActionDelete, TaskID: body.TaskID})
		return c.JSON(http.StatusOK, mutationResponse{Success: ok, Timestamp: domain.NextTimestamp()})

	case EventDevStatus, EventActivityBroadcast:
		payload := relayPayload{
			From:      id,
			Timestamp: domain.NextTimestamp(),
			Data:      req.Data,
		}
		data, err := sonic.Marshal(payload)
		if err != nil {
			s.logger.Errorf("relay encode: %v", err)
			return c.JSON(http.StatusOK, mutationResponse{Success: false, Timestamp: domain.NextTimestamp()})
		}
		s.hub.Broadcast(req.Event, data)
		return c.JSON(http.StatusOK, mutationResponse{Success: true, Timestamp: domain.NextTimestamp()})
	}

	return c.JSON(http.StatusOK, mutationResponse{Success: false, Timestamp: domain.NextTimestamp()})
}
