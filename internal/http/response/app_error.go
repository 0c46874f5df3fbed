package response

// AppError 统一错误包装
type AppError struct {
	Code    int
	Message string
	Err     error
	// Expose 为 true 时把底层错误写入响应的 error 字段
	Expose bool
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Detail 返回可对外展示的错误详情
func (e *AppError) Detail() string {
	if e == nil || !e.Expose || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
