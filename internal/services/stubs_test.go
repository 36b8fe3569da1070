package services

import (
	"context"
	"sync"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/kafka"
	"github.com/notebase/backend-go/internal/models"
	"github.com/notebase/backend-go/internal/rag"
	"gorm.io/gorm"
)

// stubDocumentRepo 内存文档仓库
type stubDocumentRepo struct {
	mu     sync.Mutex
	nextID uint
	docs   map[uint]*models.Document

	markReadyErr error
	markErrorErr error
}

func newStubDocumentRepo() *stubDocumentRepo {
	return &stubDocumentRepo{nextID: 1, docs: make(map[uint]*models.Document)}
}

func (r *stubDocumentRepo) GetDB() *gorm.DB { return nil }

func (r *stubDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc.DocumentID = r.nextID
	r.nextID++
	copied := *doc
	r.docs[doc.DocumentID] = &copied
	return nil
}

func (r *stubDocumentRepo) GetByID(ctx context.Context, docID uint) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *stubDocumentRepo) GetByOwner(ctx context.Context, ownerID uint, page, limit int) ([]models.Document, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var docs []models.Document
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			docs = append(docs, *doc)
		}
	}
	return docs, len(docs), nil
}

func (r *stubDocumentRepo) FindReadyByName(ctx context.Context, ownerID uint, fileName string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID && doc.FileName == fileName && doc.Status == models.DocumentStatusReady {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *stubDocumentRepo) MarkReady(ctx context.Context, docID uint, vectorTableName string) error {
	if r.markReadyErr != nil {
		return r.markReadyErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[docID]; ok {
		doc.Status = models.DocumentStatusReady
		name := vectorTableName
		doc.VectorTableName = &name
	}
	return nil
}

func (r *stubDocumentRepo) MarkError(ctx context.Context, docID uint) error {
	if r.markErrorErr != nil {
		return r.markErrorErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[docID]; ok {
		doc.Status = models.DocumentStatusError
		doc.VectorTableName = nil
	}
	return nil
}

func (r *stubDocumentRepo) Update(ctx context.Context, docID uint, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[docID]; ok {
		if path, exists := updates["storage_path"]; exists {
			doc.StoragePath = path.(string)
		}
	}
	return nil
}

func (r *stubDocumentRepo) Delete(ctx context.Context, docID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, docID)
	return nil
}

// stubTaskRepo 内存任务仓库
type stubTaskRepo struct {
	mu     sync.Mutex
	nextID uint
	tasks  map[uint]*models.IngestionTask
}

func newStubTaskRepo() *stubTaskRepo {
	return &stubTaskRepo{nextID: 1, tasks: make(map[uint]*models.IngestionTask)}
}

func (r *stubTaskRepo) GetDB() *gorm.DB { return nil }

func (r *stubTaskRepo) Create(ctx context.Context, task *models.IngestionTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.TaskID = r.nextID
	r.nextID++
	if task.State == "" {
		task.State = models.TaskStateQueued
	}
	copied := *task
	r.tasks[task.TaskID] = &copied
	return nil
}

func (r *stubTaskRepo) GetByID(ctx context.Context, taskID uint) (*models.IngestionTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *task
	return &copied, nil
}

func (r *stubTaskRepo) UpdateState(ctx context.Context, taskID uint, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if state, exists := updates["state"]; exists {
		task.State = state.(string)
	}
	if errText, exists := updates["error"]; exists {
		task.Error = errText.(string)
	}
	return nil
}

// stubExtractor 固定返回文本
type stubExtractor struct {
	text string
	err  error
}

func (e *stubExtractor) Extract(content []byte, mediaType string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	if e.text != "" {
		return e.text, nil
	}
	return string(content), nil
}

// stubEmbedder 为第i条文本返回向量[i]
type stubEmbedder struct {
	mu    sync.Mutex
	calls   [][]string
	err     error
	started chan struct{} // 非nil时在进入调用时发信号
	block   chan struct{} // 非nil时阻塞直到ctx取消
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, texts)
	if e.started != nil {
		select {
		case e.started <- struct{}{}:
		default:
		}
	}
	e.mu.Unlock()

	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}

func (e *stubEmbedder) Dimensions() int { return 1 }
func (e *stubEmbedder) Ready() bool     { return true }

// stubVectorStore 记录集合并按集合名返回预设命中
type stubVectorStore struct {
	mu          sync.Mutex
	collections map[string][]string // name → texts
	hits        map[string][]string // name → search results
	searchErrs  map[string]error
	createErr   error
}

func newStubVectorStore() *stubVectorStore {
	return &stubVectorStore{
		collections: make(map[string][]string),
		hits:        make(map[string][]string),
		searchErrs:  make(map[string]error),
	}
}

func (s *stubVectorStore) CreateCollection(ctx context.Context, name string, rows []rag.Row) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[name]; exists {
		return apperrors.NewCollectionExistsError(name)
	}
	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		texts = append(texts, row.Text)
	}
	s.collections[name] = texts
	return nil
}

func (s *stubVectorStore) Search(ctx context.Context, name string, queryVector []float32, topN int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.searchErrs[name]; ok {
		return nil, err
	}
	// 未知集合返回空结果
	hits, ok := s.hits[name]
	if !ok {
		return nil, nil
	}
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

func (s *stubVectorStore) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *stubVectorStore) Ready() bool  { return true }
func (s *stubVectorStore) Close() error { return nil }

// stubNotebookRepo 内存笔记本仓库，覆盖问答路径所需的方法
type stubNotebookRepo struct {
	mu        sync.Mutex
	nextID    uint
	notebooks map[uint]*models.Notebook
	documents map[uint][]models.Document // notebookID → 按关联顺序的文档
	messages  map[uint][]models.NotebookMessage

	appendErr error
}

func newStubNotebookRepo() *stubNotebookRepo {
	return &stubNotebookRepo{
		nextID:    1,
		notebooks: make(map[uint]*models.Notebook),
		documents: make(map[uint][]models.Document),
		messages:  make(map[uint][]models.NotebookMessage),
	}
}

func (r *stubNotebookRepo) GetDB() *gorm.DB { return nil }

func (r *stubNotebookRepo) Create(ctx context.Context, nb *models.Notebook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	nb.NotebookID = r.nextID
	r.nextID++
	copied := *nb
	r.notebooks[nb.NotebookID] = &copied
	return nil
}

func (r *stubNotebookRepo) GetByID(ctx context.Context, notebookID uint) (*models.Notebook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nb, ok := r.notebooks[notebookID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *nb
	return &copied, nil
}

func (r *stubNotebookRepo) GetByOwner(ctx context.Context, ownerID uint, page, limit int) ([]models.Notebook, int, error) {
	return nil, 0, nil
}

func (r *stubNotebookRepo) GetPublic(ctx context.Context, category string, page, limit int) ([]models.Notebook, int, error) {
	return nil, 0, nil
}

func (r *stubNotebookRepo) Update(ctx context.Context, notebookID uint, ownerID uint, updates map[string]interface{}) error {
	return nil
}

func (r *stubNotebookRepo) Delete(ctx context.Context, notebookID uint, ownerID uint) error {
	return nil
}

func (r *stubNotebookRepo) AttachDocument(ctx context.Context, notebookID, documentID uint) error {
	return nil
}

func (r *stubNotebookRepo) DetachDocument(ctx context.Context, notebookID, documentID uint) error {
	return nil
}

func (r *stubNotebookRepo) ListDocuments(ctx context.Context, notebookID uint) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Document(nil), r.documents[notebookID]...), nil
}

func (r *stubNotebookRepo) ListMessages(ctx context.Context, notebookID uint, limit int) ([]models.NotebookMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NotebookMessage(nil), r.messages[notebookID]...), nil
}

func (r *stubNotebookRepo) AppendMessagePair(ctx context.Context, userMsg, modelMsg *models.NotebookMessage) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[userMsg.NotebookID] = append(r.messages[userMsg.NotebookID], *userMsg, *modelMsg)
	return nil
}

func (r *stubNotebookRepo) Like(ctx context.Context, notebookID, userID uint) error   { return nil }
func (r *stubNotebookRepo) Unlike(ctx context.Context, notebookID, userID uint) error { return nil }
func (r *stubNotebookRepo) CountLikes(ctx context.Context, notebookID uint) (int64, error) {
	return 0, nil
}

// stubGenerator 固定回复
type stubGenerator struct {
	reply string
	err   error
	mu    sync.Mutex
	prompts []string
}

func (g *stubGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGenerator) Ready() bool { return true }

// stubPublisher 记录发布的事件
type stubPublisher struct {
	mu     sync.Mutex
	events []*kafka.DocumentEvent
}

func (p *stubPublisher) SendDocumentEvent(event *kafka.DocumentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *stubPublisher) eventNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Event)
	}
	return names
}
