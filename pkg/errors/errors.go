package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrNoAvailableCopies 条件扣减失败：图书已下架或无可借副本
var ErrNoAvailableCopies = errors.New("图书无可借副本")

// ErrStockFull 条件回增失败：可借副本数已达馆藏总量
var ErrStockFull = errors.New("可借副本数已达馆藏总量")

// ErrCopyAdjustment 条件调整失败：副本数调整会使库存越界
var ErrCopyAdjustment = errors.New("馆藏副本数调整超出允许范围")
