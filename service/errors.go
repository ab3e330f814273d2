package service

import (
	"errors"
	"fmt"
)

// 业务错误分类，调用方通过 errors.Is 判断
var (
	// ErrInvalidInput 输入校验失败
	ErrInvalidInput = errors.New("请求参数不合法")
	// ErrUnknownChannel 病原体/通道组合未登记
	ErrUnknownChannel = errors.New("未登记的病原体/通道组合")
	// ErrRunExists 运行记录已存在
	ErrRunExists = errors.New("运行记录已存在")
	// ErrRunNotPending 运行记录已处于终态
	ErrRunNotPending = errors.New("运行记录不是待确认状态")
	// ErrStaleFeedback 已存在更新的专家修正
	ErrStaleFeedback = errors.New("已存在更新的专家修正")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrForbidden 权限不足
	ErrForbidden = errors.New("权限不足")
	// ErrStorage 存储失败，事务已回滚，可重试
	ErrStorage = errors.New("存储失败")
)

// IsConflict 状态冲突类错误
func IsConflict(err error) bool {
	return errors.Is(err, ErrUnknownChannel) ||
		errors.Is(err, ErrRunExists) ||
		errors.Is(err, ErrRunNotPending) ||
		errors.Is(err, ErrStaleFeedback)
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storageError 包装底层数据库错误；已是业务错误时原样返回
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) || IsConflict(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
