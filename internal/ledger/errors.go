package ledger

import "fmt"

// Kind 领域错误分类。所有入口操作的前置校验失败都落在这组分类里，
// 整个事务随之中止（没有"部分成功"）。
type Kind int

const (
	KindNotAuthorized     Kind = iota + 1 // 调用方不是要求的身份 / 未持有 capability
	KindInsufficientFunds                 // 余额不足，或支付金额与挂牌价不一致
	KindInvalidReference                  // 关联实体 id 不匹配（memo↔car、customer↔company 等）
	KindInvalidState                      // 生命周期状态不允许该操作（如预订已被预订的车）
	KindInvalidInput                      // 必填字符串为空等入参问题
	KindNotFound                          // 表/挂牌里没有对应条目
	KindDuplicateEntry                    // 向已有 key 重复插入
)

func (k Kind) String() string {
	switch k {
	case KindNotAuthorized:
		return "not_authorized"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInvalidReference:
		return "invalid_reference"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindDuplicateEntry:
		return "duplicate_entry"
	default:
		return "unknown"
	}
}

// Error 携带分类的领域错误。用 errors.Is 与下面的哨兵值按 Kind 匹配。
type Error struct {
	Kind Kind
	Op   string // 出错的操作名，如 "booking.BookCar"
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Is 按 Kind 匹配，便于 errors.Is(err, ledger.ErrNotAuthorized) 这类判断。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Errf 构造一个带操作名的领域错误。
func Errf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// 哨兵错误：只用于 errors.Is 匹配 Kind，不要直接返回。
var (
	ErrNotAuthorized     = &Error{Kind: KindNotAuthorized}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrInvalidReference  = &Error{Kind: KindInvalidReference}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrDuplicateEntry    = &Error{Kind: KindDuplicateEntry}
)
