// Package server exposes the orchestration engine over HTTP: a REST
// endpoint that plans a query into a task, and a per-task WebSocket that
// drives execution and streams live status frames back to the client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vishva-ai/vishva/internal/config"
	"github.com/vishva-ai/vishva/internal/executor"
	"github.com/vishva-ai/vishva/internal/orchestrator"
	"github.com/vishva-ai/vishva/pkg/models"
)

// Planner is the query-to-task surface the server needs.
type Planner interface {
	ConvertQueryToTask(ctx context.Context, query string) (*models.Task, error)
	ResolveDependencies(ctx context.Context, task *models.Task) error
}

// TaskRunner is the orchestrator surface the server needs.
type TaskRunner interface {
	AddTask(task *models.Task)
	TaskSnapshot(id string) (*models.Task, error)
	ExecuteTask(ctx context.Context, task *models.Task, callback executor.StatusCallback) (*models.TaskResult, error)
}

// Server serves the REST and WebSocket API.
type Server struct {
	cfg      config.ServerConfig
	planner  Planner
	runner   TaskRunner
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*taskConn
}

// taskConn is one live WebSocket with serialized writes.
type taskConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (tc *taskConn) send(frame any) error {
	tc.writeMu.Lock()
	defer tc.writeMu.Unlock()
	return tc.conn.WriteJSON(frame)
}

// New creates the server and registers its routes.
func New(cfg config.ServerConfig, p Planner, runner TaskRunner) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE"}
	corsCfg.AllowHeaders = []string{"*"}
	engine.Use(cors.New(corsCfg))

	s := &Server{
		cfg:     cfg,
		planner: p,
		runner:  runner,
		engine:  engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser origins are already filtered by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*taskConn),
	}

	engine.GET("/", s.handleHealth)
	engine.POST("/api/process-query", s.handleProcessQuery)
	engine.GET("/api/tasks/:task_id", s.handleGetTask)
	engine.GET("/api/task-execution/:task_id", s.handleTaskExecution)

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	log.Printf("vishva API listening on %s", s.cfg.Addr())
	return s.engine.Run(s.cfg.Addr())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Vishva API is running",
	})
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

func (s *Server) handleProcessQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.planner.ConvertQueryToTask(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.runner.AddTask(task)
	c.JSON(http.StatusOK, task)
}

// handleGetTask serializes a snapshot, never the live task: execution
// mutates subtasks concurrently with this handler.
func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.runner.TaskSnapshot(c.Param("task_id"))
	if err != nil {
		if errors.Is(err, orchestrator.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

// wsFrame is the envelope for every WebSocket message in both directions.
type wsFrame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

const (
	frameStartExecution  = "START_EXECUTION"
	frameExecutionStatus = "EXECUTION_STATUS"
	frameSubtaskStatus   = "SUBTASK_STATUS"
)

func (s *Server) handleTaskExecution(c *gin.Context) {
	taskID := c.Param("task_id")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	tc := &taskConn{conn: conn}
	s.register(taskID, tc)
	defer s.unregister(taskID, tc)

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		if frame.Type != frameStartExecution {
			continue
		}

		s.executeForConn(c.Request.Context(), taskID, tc, frame)
	}
}

// register stores the connection for the task, closing any previous one so
// a reconnecting client takes over cleanly.
func (s *Server) register(taskID string, tc *taskConn) {
	s.mu.Lock()
	prev := s.conns[taskID]
	s.conns[taskID] = tc
	s.mu.Unlock()

	if prev != nil {
		prev.conn.Close()
	}
	log.Printf("websocket connected for task %s", taskID)
}

func (s *Server) unregister(taskID string, tc *taskConn) {
	s.mu.Lock()
	if s.conns[taskID] == tc {
		delete(s.conns, taskID)
	}
	s.mu.Unlock()

	tc.conn.Close()
	log.Printf("websocket closed for task %s", taskID)
}

// executeForConn runs the task (optionally filtered to a subtask subset)
// and streams status frames over the connection.
func (s *Server) executeForConn(ctx context.Context, taskID string, tc *taskConn, frame wsFrame) {
	_ = tc.send(wsFrame{
		Type: frameExecutionStatus,
		Payload: map[string]any{
			"status":  models.TaskStatusInProgress,
			"message": "Starting task execution workflow",
		},
	})

	// Filter a detached copy, then store it back: the stored task is only
	// ever mutated under the orchestrator's lock.
	task, err := s.runner.TaskSnapshot(taskID)
	if err != nil {
		s.sendFailure(tc, err)
		return
	}

	if err := s.filterSubtasks(ctx, task, frame); err != nil {
		s.sendFailure(tc, err)
		return
	}
	s.runner.AddTask(task)

	callback := func(ctx context.Context, u executor.Update) error {
		if u.SubtaskID == "" {
			return tc.send(wsFrame{
				Type: frameExecutionStatus,
				Payload: map[string]any{
					"status":  u.Status,
					"message": u.Message,
				},
			})
		}
		payload := map[string]any{
			"subtask_id": u.SubtaskID,
			"status":     u.Status,
			"message":    u.Message,
			"timestamp":  time.Now().Format(time.RFC3339),
		}
		if u.Content != nil {
			payload["content"] = u.Content
		}
		return tc.send(wsFrame{Type: frameSubtaskStatus, Payload: payload})
	}

	result, err := s.runner.ExecuteTask(ctx, task, callback)
	if err != nil {
		s.sendFailure(tc, err)
		return
	}

	_ = tc.send(wsFrame{
		Type: frameExecutionStatus,
		Payload: map[string]any{
			"status":  result.Status,
			"message": result.Message,
		},
	})
}

// filterSubtasks narrows the task to the subtask subset named in the start
// frame and re-resolves dependencies over the survivors. An absent or empty
// subset runs the whole task.
func (s *Server) filterSubtasks(ctx context.Context, task *models.Task, frame wsFrame) error {
	requested, ok := frame.Payload["subtasks"].([]any)
	if !ok || len(requested) == 0 {
		return nil
	}

	wanted := make(map[string]bool, len(requested))
	for _, entry := range requested {
		if m, ok := entry.(map[string]any); ok {
			if id, ok := m["subtask_id"].(string); ok {
				wanted[id] = true
			}
		}
	}

	var kept []*models.SubTask
	for _, sub := range task.Subtasks {
		if wanted[sub.ID] {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("none of the requested subtasks belong to task %s", task.ID)
	}
	if len(kept) == len(task.Subtasks) {
		return nil
	}

	task.Subtasks = kept
	// Edges onto excluded subtasks would stall the graph, so the surviving
	// subset gets a fresh dependency pass.
	if err := s.planner.ResolveDependencies(ctx, task); err != nil {
		return err
	}
	return nil
}

func (s *Server) sendFailure(tc *taskConn, cause error) {
	_ = tc.send(wsFrame{
		Type: frameExecutionStatus,
		Payload: map[string]any{
			"status":  models.TaskStatusFailed,
			"message": fmt.Sprintf("Task execution failed: %v", cause),
		},
	})
}
