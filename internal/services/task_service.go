package services

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/logger"
	"github.com/notebase/backend-go/internal/metrics"
	"github.com/notebase/backend-go/internal/models"
	"github.com/notebase/backend-go/internal/repository"
	"go.uber.org/zap"
)

// DefaultTaskWorkers 默认摄取工作协程数
const DefaultTaskWorkers = 4

const taskQueueSize = 128

// ingestionJob 队列中的一次摄取执行
type ingestionJob struct {
	taskID    uint
	doc       *models.Document
	mediaType string
	content   []byte
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// TaskService 摄取任务服务。每次上传持久化一条任务记录并交给
// 有界工作池执行，调用方可轮询、等待或取消。
type TaskService struct {
	tasks     repository.TaskRepository
	ingestion *IngestionService

	baseCtx    context.Context
	baseCancel context.CancelFunc
	jobs       chan *ingestionJob
	wg         sync.WaitGroup
	sending    sync.WaitGroup

	mu      sync.Mutex
	pending map[uint]*ingestionJob
	stopped bool
}

// NewTaskService 创建任务服务并启动工作池
func NewTaskService(tasks repository.TaskRepository, ingestion *IngestionService, workers int) *TaskService {
	if workers <= 0 {
		workers = DefaultTaskWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &TaskService{
		tasks:      tasks,
		ingestion:  ingestion,
		baseCtx:    ctx,
		baseCancel: cancel,
		jobs:       make(chan *ingestionJob, taskQueueSize),
		pending:    make(map[uint]*ingestionJob),
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Enqueue 去重、创建文档与任务记录并入队。
// 命中去重时直接返回已就绪文档和一条已完成的任务记录。
func (s *TaskService) Enqueue(ctx context.Context, ownerID uint, fileName, mediaType string, content []byte) (*models.Document, *models.IngestionTask, error) {
	doc, dedup, err := s.ingestion.Prepare(ctx, ownerID, fileName)
	if err != nil {
		return nil, nil, err
	}

	if dedup {
		now := time.Now()
		task := &models.IngestionTask{
			DocumentID: doc.DocumentID,
			State:      models.TaskStateSucceeded,
			FinishedAt: &now,
		}
		if err := s.tasks.Create(ctx, task); err != nil {
			return nil, nil, apperrors.NewInternalError("failed to create task", err)
		}
		return doc, task, nil
	}

	task := &models.IngestionTask{
		DocumentID: doc.DocumentID,
		State:      models.TaskStateQueued,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, nil, apperrors.NewInternalError("failed to create task", err)
	}

	jobCtx, jobCancel := context.WithCancel(s.baseCtx)
	job := &ingestionJob{
		taskID:    task.TaskID,
		doc:       doc,
		mediaType: mediaType,
		content:   content,
		ctx:       jobCtx,
		cancel:    jobCancel,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		jobCancel()
		return nil, nil, apperrors.NewInternalError("task service stopped", nil)
	}
	s.pending[task.TaskID] = job
	// 在持锁状态下登记在途发送，Close基于此等待后才关闭队列
	s.sending.Add(1)
	s.mu.Unlock()

	s.jobs <- job
	s.sending.Done()
	return doc, task, nil
}

// Poll 查询任务状态
func (s *TaskService) Poll(ctx context.Context, taskID uint) (*models.IngestionTask, error) {
	return s.tasks.GetByID(ctx, taskID)
}

// Await 阻塞等待任务结束，返回最终任务记录
func (s *TaskService) Await(ctx context.Context, taskID uint) (*models.IngestionTask, error) {
	s.mu.Lock()
	job := s.pending[taskID]
	s.mu.Unlock()

	if job != nil {
		select {
		case <-job.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.tasks.GetByID(ctx, taskID)
}

// Cancel 取消任务。已结束的任务直接返回当前状态。
func (s *TaskService) Cancel(ctx context.Context, taskID uint) (*models.IngestionTask, error) {
	s.mu.Lock()
	job := s.pending[taskID]
	s.mu.Unlock()

	if job != nil {
		job.cancel()
		select {
		case <-job.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.tasks.GetByID(ctx, taskID)
}

// Close 停止接收新任务，取消在途任务并等待工作池退出
func (s *TaskService) Close() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.baseCancel()
	// 等待在途的入队完成后才能安全关闭通道
	s.sending.Wait()
	close(s.jobs)
	s.wg.Wait()
}

func (s *TaskService) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		s.run(job)
	}
}

func (s *TaskService) run(job *ingestionJob) {
	defer func() {
		job.cancel()
		s.mu.Lock()
		delete(s.pending, job.taskID)
		s.mu.Unlock()
		close(job.done)
	}()

	// 出队前已被取消
	if job.ctx.Err() != nil {
		s.finish(job.taskID, models.TaskStateCancelled, "")
		s.markDocCancelled(job.doc)
		return
	}

	now := time.Now()
	s.updateState(job.taskID, map[string]interface{}{
		"state":      models.TaskStateRunning,
		"started_at": &now,
	})

	err := s.ingestion.Process(job.ctx, job.doc, job.mediaType, job.content)
	switch {
	case err == nil:
		s.finish(job.taskID, models.TaskStateSucceeded, "")
	case errors.Is(err, context.Canceled):
		s.finish(job.taskID, models.TaskStateCancelled, "")
	default:
		s.finish(job.taskID, models.TaskStateFailed, err.Error())
	}
}

// markDocCancelled 入队后未执行即取消的文档置为error
func (s *TaskService) markDocCancelled(doc *models.Document) {
	if err := s.ingestion.docs.MarkError(context.Background(), doc.DocumentID); err != nil {
		logger.Error("failed to mark cancelled document",
			zap.Uint("document_id", doc.DocumentID), zap.Error(err))
	}
}

func (s *TaskService) finish(taskID uint, state string, errText string) {
	metrics.IngestionTasks.WithLabelValues(state).Inc()
	now := time.Now()
	updates := map[string]interface{}{
		"state":       state,
		"finished_at": &now,
	}
	if errText != "" {
		updates["error"] = errText
	}
	s.updateState(taskID, updates)
}

func (s *TaskService) updateState(taskID uint, updates map[string]interface{}) {
	// 状态写入使用独立上下文，任务取消不应阻止落库
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tasks.UpdateState(ctx, taskID, updates); err != nil {
		logger.Error("failed to update task state",
			zap.Uint("task_id", taskID), zap.Error(err))
	}
}
