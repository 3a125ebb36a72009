package common

import "fmt"

// AppError 应用级错误结构
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// HasCode 判断错误链上是否有指定错误码
func HasCode(err error, code string) bool {
	for err != nil {
		if app, ok := err.(*AppError); ok && app.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// 错误码常量
// 每一类对应管线中一个可恢复的失败边界，只有 CONFIG_ERROR 是致命的
const (
	ErrCodeValidation   = "VALIDATION_ERROR"   // 单条线索构造失败
	ErrCodeSource       = "SOURCE_ERROR"       // 某个来源抓取失败，按零条结果处理
	ErrCodeEnrichment   = "ENRICHMENT_ERROR"   // 富化失败，字段保持默认
	ErrCodeParse        = "PARSE_ERROR"        // LLM 输出无法解析，生成占位结果
	ErrCodeScoring      = "SCORING_ERROR"      // LLM 调用本身失败，该线索被丢弃
	ErrCodeNotification = "NOTIFICATION_ERROR" // 推送失败，不影响其他线索
	ErrCodeDatabase     = "DATABASE_ERROR"     // 存储失败，不影响其他线索
	ErrCodeConfig       = "CONFIG_ERROR"       // 启动前配置缺失，直接终止
)
