package rag

import "context"

// Row 向量集合中的一行：生成的行ID、分块文本与其向量
type Row struct {
	ID     string
	Text   string
	Vector []float32
}

// VectorStore 向量存储抽象：每个就绪文档对应一个命名集合
//
// CreateCollection 创建并填充新集合，集合一旦创建即不可变；
// 名称已被占用时返回 ErrCodeCollectionExists。
// Search 在命名集合上做相似度检索，按相似度降序返回分块文本；
// 集合不存在时返回空结果而非错误（文档可能在其集合生命周期之外被引用，
// 不应阻断聊天）。距离度量固定为COSINE。
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, rows []Row) error
	Search(ctx context.Context, name string, queryVector []float32, topN int) ([]string, error)
	DropCollection(ctx context.Context, name string) error
	Ready() bool
	Close() error
}

// DefaultSearchTopN 默认检索条数
const DefaultSearchTopN = 5
