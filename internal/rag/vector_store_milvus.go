package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/logger"
	"go.uber.org/zap"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Database   string
	VectorSize int
	UseTLS     bool
	Timeout    time.Duration
}

type milvusVectorStore struct {
	milvusClient client.Client
	vectorSize   int
}

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		milvusClient: milvusClient,
		vectorSize:   opts.VectorSize,
	}, nil
}

func (s *milvusVectorStore) CreateCollection(ctx context.Context, name string, rows []Row) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, name)
	if err != nil {
		return apperrors.NewVectorStoreError("failed to check collection", err)
	}
	if hasCollection {
		return apperrors.NewCollectionExistsError(name)
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    "document chunk vectors",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorSize),
				},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return apperrors.NewVectorStoreError("failed to create collection", err)
	}

	if len(rows) > 0 {
		ids := make([]string, 0, len(rows))
		texts := make([]string, 0, len(rows))
		vectors := make([][]float32, 0, len(rows))
		for _, row := range rows {
			vector, err := s.fitVector(row.Vector)
			if err != nil {
				return err
			}
			ids = append(ids, row.ID)
			texts = append(texts, row.Text)
			vectors = append(vectors, vector)
		}

		idColumn := entity.NewColumnVarChar("id", ids)
		textColumn := entity.NewColumnVarChar("text", texts)
		vectorColumn := entity.NewColumnFloatVector("vector", s.vectorSize, vectors)

		if _, err := s.milvusClient.Insert(ctx, name, "", idColumn, textColumn, vectorColumn); err != nil {
			return apperrors.NewVectorStoreError("milvus insert failed", err)
		}

		if err := s.milvusClient.Flush(ctx, name, false); err != nil {
			// 刷新失败不影响插入，只记录警告
			logger.Warn("failed to flush collection", zap.String("collection", name), zap.Error(err))
		}
	}

	index, err := buildVectorIndex()
	if err != nil {
		return apperrors.NewVectorStoreError("failed to build index", err)
	}
	if err := s.milvusClient.CreateIndex(ctx, name, "vector", index, false); err != nil {
		logger.Warn("failed to create index for collection", zap.String("collection", name), zap.Error(err))
	}

	if err := s.milvusClient.LoadCollection(ctx, name, false); err != nil {
		return apperrors.NewVectorStoreError("failed to load collection", err)
	}

	return nil
}

// buildVectorIndex HNSW优先，构建失败回退IVF_FLAT
func buildVectorIndex() (entity.Index, error) {
	hnsw, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
	if err == nil {
		return hnsw, nil
	}
	return entity.NewIndexIvfFlat(entity.COSINE, 128)
}

// fitVector 校验向量维度，维度不符直接报错而不是静默截断
func (s *milvusVectorStore) fitVector(vector []float32) ([]float32, error) {
	if len(vector) != s.vectorSize {
		return nil, apperrors.NewVectorStoreError(
			fmt.Sprintf("vector dimension mismatch: got %d, collection expects %d", len(vector), s.vectorSize), nil)
	}
	return vector, nil
}

func (s *milvusVectorStore) Search(ctx context.Context, name string, queryVector []float32, topN int) ([]string, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}
	if topN <= 0 {
		topN = DefaultSearchTopN
	}

	hasCollection, err := s.milvusClient.HasCollection(ctx, name)
	if err != nil {
		return nil, apperrors.NewVectorStoreError("failed to check collection", err)
	}
	if !hasCollection {
		// 集合不存在按无上下文处理
		return nil, nil
	}

	queryVector, err = s.fitVector(queryVector)
	if err != nil {
		return nil, err
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := s.milvusClient.Search(
		ctx,
		name,
		[]string{},
		"",
		[]string{"text"},
		[]entity.Vector{entity.FloatVector(queryVector)},
		"vector",
		entity.COSINE,
		topN,
		sp,
	)
	if err != nil {
		return nil, apperrors.NewVectorStoreError("milvus search failed", err)
	}

	if len(searchResults) == 0 {
		return nil, nil
	}
	result := searchResults[0]
	if result.Err != nil {
		return nil, apperrors.NewVectorStoreError("milvus search error", result.Err)
	}
	if result.ResultCount == 0 {
		return nil, nil
	}

	var texts []string
	for _, field := range result.Fields {
		if field.Name() != "text" {
			continue
		}
		if col, ok := field.(*entity.ColumnVarChar); ok {
			texts = append(texts, col.Data()...)
		}
	}

	return texts, nil
}

func (s *milvusVectorStore) DropCollection(ctx context.Context, name string) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, name)
	if err != nil {
		return apperrors.NewVectorStoreError("failed to check collection", err)
	}
	if !hasCollection {
		return nil
	}
	if err := s.milvusClient.DropCollection(ctx, name); err != nil {
		return apperrors.NewVectorStoreError("milvus drop failed", err)
	}
	return nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}

func (s *milvusVectorStore) Close() error {
	if s.milvusClient == nil {
		return nil
	}
	return s.milvusClient.Close()
}
