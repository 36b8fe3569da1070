package rag

import (
	"fmt"
	"iter"

	apperrors "github.com/notebase/backend-go/internal/errors"
)

// 默认分块参数
const (
	DefaultWindowSize = 1000
	DefaultOverlap    = 100
)

// Chunk 表示分块后的文本结构
type Chunk struct {
	Index int
	Text  string
}

// Chunker 固定窗口文本分块器
//
// 从偏移0开始取W个字符，步进W-O，直到偏移越过文本末尾。
// 末块可以短于W。切分是确定性的：同一文本总是产生同一分块序列。
type Chunker struct {
	windowSize int
	overlap    int
}

// NewChunker 创建分块器。overlap >= windowSize 会导致步进为零或倒退，视为配置错误。
func NewChunker(windowSize, overlap int) (*Chunker, error) {
	if windowSize <= 0 {
		return nil, apperrors.NewChunkerConfigError(fmt.Sprintf("window size must be positive, got %d", windowSize))
	}
	if overlap < 0 {
		return nil, apperrors.NewChunkerConfigError(fmt.Sprintf("overlap must be non-negative, got %d", overlap))
	}
	if overlap >= windowSize {
		return nil, apperrors.NewChunkerConfigError(fmt.Sprintf("overlap %d must be smaller than window size %d", overlap, windowSize))
	}
	return &Chunker{
		windowSize: windowSize,
		overlap:    overlap,
	}, nil
}

// NewDefaultChunker 创建使用默认参数的分块器
func NewDefaultChunker() *Chunker {
	c, _ := NewChunker(DefaultWindowSize, DefaultOverlap)
	return c
}

// All 返回文本的惰性分块序列，可重复遍历。空文本产生零个分块。
func (c *Chunker) All(text string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		runes := []rune(text)
		step := c.windowSize - c.overlap
		index := 0
		for start := 0; start < len(runes); start += step {
			end := start + c.windowSize
			if end > len(runes) {
				end = len(runes)
			}
			if !yield(Chunk{Index: index, Text: string(runes[start:end])}) {
				return
			}
			index++
			// 上一窗口已覆盖到末尾，再走一步只会产生完全被覆盖的残块
			if end == len(runes) {
				return
			}
		}
	}
}

// Split 将文本切分为分块切片
func (c *Chunker) Split(text string) []Chunk {
	var chunks []Chunk
	for chunk := range c.All(text) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Texts 返回分块的纯文本切片，顺序与分块序列一致
func (c *Chunker) Texts(text string) []string {
	var texts []string
	for chunk := range c.All(text) {
		texts = append(texts, chunk.Text)
	}
	return texts
}
