package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeConflict       ErrorCode = "CONFLICT"

	// 验证错误
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// 管道错误：摄取与检索流程的封闭错误集合
	ErrCodeExtraction        ErrorCode = "EXTRACTION_FAILED"
	ErrCodeChunkerConfig     ErrorCode = "CHUNKER_CONFIG"
	ErrCodeEmbeddingTimeout  ErrorCode = "EMBEDDING_TIMEOUT"
	ErrCodeEmbeddingService  ErrorCode = "EMBEDDING_SERVICE_ERROR"
	ErrCodeVectorStore       ErrorCode = "VECTOR_STORE_ERROR"
	ErrCodeCollectionExists  ErrorCode = "COLLECTION_EXISTS"
	ErrCodeGenerationService ErrorCode = "GENERATION_SERVICE_ERROR"
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// PipelineError 摄取/检索管道错误，携带结构化上下文
type PipelineError struct {
	Code           ErrorCode `json:"code"`
	Message        string    `json:"message"`
	DocumentID     uint      `json:"document_id,omitempty"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
	Cause          error     `json:"-"`
}

// Error 实现error接口
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithDocument 关联文档ID
func (e *PipelineError) WithDocument(documentID uint) *PipelineError {
	e.DocumentID = documentID
	return e
}

// NewExtractionError 文本抽取失败
func NewExtractionError(message string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeExtraction, Message: message, Cause: cause}
}

// NewChunkerConfigError 分块器配置错误
func NewChunkerConfigError(message string) *PipelineError {
	return &PipelineError{Code: ErrCodeChunkerConfig, Message: message}
}

// NewEmbeddingTimeout 向量化调用超时
func NewEmbeddingTimeout(message string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeEmbeddingTimeout, Message: message, Cause: cause}
}

// NewEmbeddingServiceError 向量化服务返回失败或格式异常
func NewEmbeddingServiceError(message string, upstreamStatus int, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeEmbeddingService, Message: message, UpstreamStatus: upstreamStatus, Cause: cause}
}

// NewVectorStoreError 向量存储读写失败
func NewVectorStoreError(message string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeVectorStore, Message: message, Cause: cause}
}

// NewCollectionExistsError 向量集合已存在
func NewCollectionExistsError(name string) *PipelineError {
	return &PipelineError{Code: ErrCodeCollectionExists, Message: fmt.Sprintf("collection %s already exists", name)}
}

// NewGenerationServiceError 文本生成服务失败
func NewGenerationServiceError(message string, upstreamStatus int, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeGenerationService, Message: message, UpstreamStatus: upstreamStatus, Cause: cause}
}

// HasCode 判断错误链上是否存在指定错误码
func HasCode(err error, code ErrorCode) bool {
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Code == code {
		return true
	}
	var ae *AppError
	if errors.As(err, &ae) && ae.Code == code {
		return true
	}
	return false
}

// NewBusinessError 创建业务错误
func NewBusinessError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: getHTTPCodeForError(code),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewNotFoundError 创建资源未找到错误
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		HTTPCode: http.StatusNotFound,
	}
}

// NewForbiddenError 创建禁止访问错误
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeForbidden,
		Message:  message,
		HTTPCode: http.StatusForbidden,
	}
}

// NewInternalError 创建系统错误
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeInternalServer,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

func getHTTPCodeForError(code ErrorCode) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeValidationFailed, ErrCodeChunkerConfig:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeCollectionExists:
		return http.StatusConflict
	case ErrCodeEmbeddingTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeEmbeddingService, ErrCodeGenerationService, ErrCodeVectorStore:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus 将任意错误映射为HTTP状态码
func HTTPStatus(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.HTTPCode != 0 {
		return ae.HTTPCode
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return getHTTPCodeForError(pe.Code)
	}
	return http.StatusInternalServerError
}
