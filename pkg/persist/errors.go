package persist

import "github.com/cockroachdb/errors"

var (
	// ErrCatalogMiss item_id 在目录中不存在，查询类方法本地恢复为哨兵值
	ErrCatalogMiss = errors.New("persist: catalog miss")
	// ErrDecodeFailure 扩展字段无法解码为请求的类型
	ErrDecodeFailure = errors.New("persist: extension decode failure")
	// ErrInvalidKind 在非工具类条目上生成手持工具
	ErrInvalidKind = errors.New("persist: invalid kind")
	// ErrInvalidArgument 空实体、失效实体或缺失依赖
	ErrInvalidArgument = errors.New("persist: invalid argument")
	// ErrPlacementConflict 同一世界内 (位置, 类型, 层) 重复
	ErrPlacementConflict = errors.New("persist: placement conflict")
	// ErrNotPackage 物品不来自外部内容包
	ErrNotPackage = errors.New("persist: item is not from a package")
	// ErrUnsupportedVersion 存档版本高于当前支持的版本
	ErrUnsupportedVersion = errors.New("persist: unsupported document version")
	// ErrInvalidDocument 存档无法解析或未通过校验
	ErrInvalidDocument = errors.New("persist: invalid document")
)
