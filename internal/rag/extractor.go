package rag

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	apperrors "github.com/notebase/backend-go/internal/errors"
)

// 常见文档媒体类型
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extractor 文本抽取器：将原始文件内容按媒体类型转换为单个文本串
type Extractor struct{}

// NewExtractor 创建文本抽取器
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract 抽取文本。PDF按页序拼接可提取文本，DOCX按段落拼接，
// 其余类型按UTF-8纯文本处理。无法解码/解析时返回抽取错误，不产生部分结果。
func (e *Extractor) Extract(content []byte, mediaType string) (string, error) {
	switch normalizeMediaType(mediaType) {
	case MediaTypePDF:
		return e.extractPDF(content)
	case MediaTypeDocx:
		return e.extractDocx(content)
	default:
		return e.extractPlainText(content)
	}
}

func normalizeMediaType(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	// 去掉参数部分，如 "text/plain; charset=utf-8"
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	return mediaType
}

func (e *Extractor) extractPDF(content []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(content))
	if err != nil {
		return "", apperrors.NewExtractionError("failed to parse pdf", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", apperrors.NewExtractionError("failed to read pdf page count", err)
	}

	// 逐页提取，图片等非文本内容静默忽略
	var textBuilder strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			continue
		}

		text, err := ex.ExtractText()
		if err != nil {
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}

func (e *Extractor) extractDocx(content []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", apperrors.NewExtractionError("failed to parse docx", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			textBuilder.WriteString(run.Text())
		}
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}

func (e *Extractor) extractPlainText(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", apperrors.NewExtractionError("content is not valid utf-8", nil)
	}
	return string(content), nil
}
