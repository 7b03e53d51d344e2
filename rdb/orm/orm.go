package orm

import "context"

// ORM 写入时为记录分配 ID 的数据访问接口
type ORM[T any] interface {
	// Create 主键为零值时先生成 ID 再写入
	Create(ctx context.Context, record T) error
	// Get 按主键读取
	Get(ctx context.Context, id any) (T, error)
}
