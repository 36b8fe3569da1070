package services

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyDoc(id uint, owner uint) models.Document {
	table := models.VectorTableName(id)
	return models.Document{
		DocumentID:      id,
		OwnerID:         owner,
		Status:          models.DocumentStatusReady,
		VectorTableName: &table,
	}
}

func newChatFixture(t *testing.T) (*stubNotebookRepo, *stubVectorStore, *stubGenerator, *ChatService) {
	t.Helper()
	notebooks := newStubNotebookRepo()
	store := newStubVectorStore()
	generator := &stubGenerator{reply: "generated answer"}
	svc := NewChatService(notebooks, &stubEmbedder{}, store, generator, nil, 5, "\n---\n")
	return notebooks, store, generator, svc
}

func TestChatJoinsResultsInAssociationOrder(t *testing.T) {
	notebooks, store, generator, svc := newChatFixture(t)

	nb := &models.Notebook{OwnerID: 1, Title: "research"}
	require.NoError(t, notebooks.Create(context.Background(), nb))
	notebooks.documents[nb.NotebookID] = []models.Document{readyDoc(10, 1), readyDoc(20, 1)}

	store.hits["doc_10"] = []string{"a1", "a2", "a3", "a4", "a5"}
	store.hits["doc_20"] = []string{"b1", "b2"}

	reply, err := svc.Answer(context.Background(), nb.NotebookID, 1, "what is this about?")
	require.NoError(t, err)
	assert.Equal(t, "generated answer", reply)

	require.Len(t, generator.prompts, 1)
	prompt := generator.prompts[0]

	// 文档关联顺序决定上下文顺序
	expected := strings.Join([]string{"a1", "a2", "a3", "a4", "a5", "b1", "b2"}, "\n---\n")
	assert.Contains(t, prompt, expected)
	assert.Contains(t, prompt, "what is this about?")
	assert.Contains(t, prompt, NoInformationReply)
}

func TestChatAppendsMessagePairOnSuccess(t *testing.T) {
	notebooks, _, _, svc := newChatFixture(t)

	nb := &models.Notebook{OwnerID: 1}
	require.NoError(t, notebooks.Create(context.Background(), nb))

	_, err := svc.Answer(context.Background(), nb.NotebookID, 1, "hello?")
	require.NoError(t, err)

	messages := notebooks.messages[nb.NotebookID]
	require.Len(t, messages, 2)
	assert.Equal(t, models.MessageRoleUser, messages[0].Role)
	assert.Equal(t, "hello?", messages[0].Content)
	assert.Equal(t, models.MessageRoleModel, messages[1].Role)
	assert.Equal(t, "generated answer", messages[1].Content)
}

func TestChatZeroDocuments(t *testing.T) {
	notebooks, _, generator, svc := newChatFixture(t)

	nb := &models.Notebook{OwnerID: 1}
	require.NoError(t, notebooks.Create(context.Background(), nb))

	reply, err := svc.Answer(context.Background(), nb.NotebookID, 1, "anything here?")
	require.NoError(t, err)
	assert.Equal(t, "generated answer", reply)

	// 空上下文仍然走生成，由固定句子约束回答
	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], NoInformationReply)
}

func TestChatExcludesNonReadyDocuments(t *testing.T) {
	notebooks, store, generator, svc := newChatFixture(t)

	nb := &models.Notebook{OwnerID: 1}
	require.NoError(t, notebooks.Create(context.Background(), nb))

	processing := models.Document{DocumentID: 30, OwnerID: 1, Status: models.DocumentStatusProcessing}
	failed := models.Document{DocumentID: 40, OwnerID: 1, Status: models.DocumentStatusError}
	notebooks.documents[nb.NotebookID] = []models.Document{processing, readyDoc(10, 1), failed}

	store.hits["doc_10"] = []string{"only ready doc"}
	store.hits["doc_30"] = []string{"should never appear"}
	store.hits["doc_40"] = []string{"should never appear"}

	_, err := svc.Answer(context.Background(), nb.NotebookID, 1, "q")
	require.NoError(t, err)

	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], "only ready doc")
	assert.NotContains(t, generator.prompts[0], "should never appear")
}

func TestChatSearchFailureContributesNothing(t *testing.T) {
	notebooks, store, generator, svc := newChatFixture(t)

	nb := &models.Notebook{OwnerID: 1}
	require.NoError(t, notebooks.Create(context.Background(), nb))
	notebooks.documents[nb.NotebookID] = []models.Document{readyDoc(10, 1), readyDoc(20, 1)}

	store.searchErrs["doc_10"] = apperrors.NewVectorStoreError("connection refused", nil)
	store.hits["doc_20"] = []string{"surviving hit"}

	reply, err := svc.Answer(context.Background(), nb.NotebookID, 1, "q")
	require.NoError(t, err)
	assert.Equal(t, "generated answer", reply)

	assert.Contains(t, generator.prompts[0], "surviving hit")
}

func TestChatGenerationFailureLeavesHistoryUntouched(t *testing.T) {
	notebooks, _, generator, svc := newChatFixture(t)
	generator.err = apperrors.NewGenerationServiceError("model unavailable", 503, nil)

	nb := &models.Notebook{OwnerID: 1}
	require.NoError(t, notebooks.Create(context.Background(), nb))

	_, err := svc.Answer(context.Background(), nb.NotebookID, 1, "q")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeGenerationService))

	assert.Empty(t, notebooks.messages[nb.NotebookID])
}

func TestChatEmbeddingFailureLeavesHistoryUntouched(t *testing.T) {
	notebooks := newStubNotebookRepo()
	embedder := &stubEmbedder{err: apperrors.NewEmbeddingServiceError("upstream 500", 500, nil)}
	svc := NewChatService(notebooks, embedder, newStubVectorStore(), &stubGenerator{reply: "r"}, nil, 5, "\n---\n")

	nb := &models.Notebook{OwnerID: 1}
	require.NoError(t, notebooks.Create(context.Background(), nb))

	_, err := svc.Answer(context.Background(), nb.NotebookID, 1, "q")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingService))
	assert.Empty(t, notebooks.messages[nb.NotebookID])
}

func TestChatOwnershipEnforced(t *testing.T) {
	notebooks, _, _, svc := newChatFixture(t)

	nb := &models.Notebook{OwnerID: 1}
	require.NoError(t, notebooks.Create(context.Background(), nb))

	_, err := svc.Answer(context.Background(), nb.NotebookID, 2, "q")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))

	_, err = svc.Answer(context.Background(), 999, 1, "q")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}
