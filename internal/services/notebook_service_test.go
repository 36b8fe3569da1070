package services

import (
	"context"
	"testing"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotebookGetVisibility(t *testing.T) {
	notebooks := newStubNotebookRepo()
	svc := NewNotebookService(notebooks, newStubDocumentRepo())

	private := &models.Notebook{OwnerID: 1, Title: "private"}
	require.NoError(t, notebooks.Create(context.Background(), private))
	public := &models.Notebook{OwnerID: 1, Title: "public", IsPublic: true}
	require.NoError(t, notebooks.Create(context.Background(), public))

	_, err := svc.Get(context.Background(), private.NotebookID, 1)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), private.NotebookID, 2)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))

	_, err = svc.Get(context.Background(), public.NotebookID, 2)
	assert.NoError(t, err)
}

func TestNotebookAttachDocumentOwnership(t *testing.T) {
	notebooks := newStubNotebookRepo()
	docs := newStubDocumentRepo()
	svc := NewNotebookService(notebooks, docs)

	nb := &models.Notebook{OwnerID: 1}
	require.NoError(t, notebooks.Create(context.Background(), nb))

	mine := &models.Document{OwnerID: 1, FileName: "mine.txt"}
	require.NoError(t, docs.Create(context.Background(), mine))
	theirs := &models.Document{OwnerID: 2, FileName: "theirs.txt"}
	require.NoError(t, docs.Create(context.Background(), theirs))

	assert.NoError(t, svc.AttachDocument(context.Background(), nb.NotebookID, 1, mine.DocumentID))

	err := svc.AttachDocument(context.Background(), nb.NotebookID, 1, theirs.DocumentID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))

	err = svc.AttachDocument(context.Background(), nb.NotebookID, 1, 999)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	// 非所有者不能关联
	err = svc.AttachDocument(context.Background(), nb.NotebookID, 2, theirs.DocumentID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
}

func TestNotebookClone(t *testing.T) {
	notebooks := newStubNotebookRepo()
	svc := NewNotebookService(notebooks, newStubDocumentRepo())

	source := &models.Notebook{OwnerID: 1, Title: "shared", Description: "desc", Category: "tech", IsPublic: true}
	require.NoError(t, notebooks.Create(context.Background(), source))
	notebooks.documents[source.NotebookID] = []models.Document{readyDoc(10, 1)}

	clone, err := svc.Clone(context.Background(), source.NotebookID, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(2), clone.OwnerID)
	assert.Equal(t, "shared", clone.Title)
	require.NotNil(t, clone.ClonedFrom)
	assert.Equal(t, source.NotebookID, *clone.ClonedFrom)
	assert.NotEqual(t, source.NotebookID, clone.NotebookID)
}

func TestNotebookClonePrivateForbidden(t *testing.T) {
	notebooks := newStubNotebookRepo()
	svc := NewNotebookService(notebooks, newStubDocumentRepo())

	source := &models.Notebook{OwnerID: 1, Title: "private"}
	require.NoError(t, notebooks.Create(context.Background(), source))

	_, err := svc.Clone(context.Background(), source.NotebookID, 2)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))

	// 所有者可以克隆自己的私有笔记本
	_, err = svc.Clone(context.Background(), source.NotebookID, 1)
	assert.NoError(t, err)
}
