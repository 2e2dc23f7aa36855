package domain

import "errors"

var (
	ErrNotFound            = errors.New("资源不存在")
	ErrCapacityExceeded    = errors.New("该配送时段已约满")
	ErrInvalidStatus       = errors.New("无效的配送状态")
	ErrInvalidTransition   = errors.New("不允许的配送状态变更")
	ErrValidation          = errors.New("参数错误")
	ErrExpansionInProgress = errors.New("该周期配送正在生成中")
	ErrExpansionFailed     = errors.New("周期配送已创建，但生成配送失败，请稍后重试")
	ErrAlreadyScheduled    = errors.New("该订阅在此时段已有配送")
	ErrNotificationFailed  = errors.New("通知发送失败")
)
