package actor

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ═══════════════════════════════════════════════════════════════════════════
// 通用请求-回复辅助函数
// ═══════════════════════════════════════════════════════════════════════════

var promiseSeq = atomic.NewUint64(0)

// promise Ask 使用的临时引用，只接收第一条回复
type promise struct {
	replies chan Message
}

func newPromise(target Ref) (Ref, *promise) {
	p := &promise{replies: make(chan Message, 1)}
	path := RootPath(target.Path().Address()).
		Child("temp").
		Child("$" + strconv.FormatUint(promiseSeq.Inc(), 36))
	return newRef(path, p), p
}

func (p *promise) sendMessage(env Envelope) {
	select {
	case p.replies <- env.Message:
	default:
	}
}

func (p *promise) sendSystemMessage(SystemMessage) {}

// Ask 向 Actor 发送消息并等待响应
// 接收方通过 ctx.Reply 回复，超时返回 *ResponseTimeout
//
// 用法示例:
//
//	type GetStatusMsg struct{}
//	func (m *GetStatusMsg) Kind() string { return "get_status" }
//
//	status, err := actor.Ask[*Status](ref, &GetStatusMsg{}, 5*time.Second)
func Ask[T any](target Ref, msg Message, timeout time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := AskWithContext[T](ctx, target, msg)
	if errors.Is(err, context.DeadlineExceeded) {
		return result, &ResponseTimeout{Target: target, Timeout: timeout}
	}
	return result, err
}

// AskWithContext 带 context 的请求-回复
// 支持通过 context 取消请求
func AskWithContext[T any](ctx context.Context, target Ref, msg Message) (T, error) {
	var zero T
	if target.IsNoSender() {
		return zero, errors.New("ask target is NoSender")
	}

	ref, p := newPromise(target)
	target.Tell(msg, ref)

	select {
	case reply := <-p.replies:
		result, ok := reply.(T)
		if !ok {
			return zero, errors.Wrapf(ErrUnexpectedReply, "got %T (%s)", reply, kindOf(reply))
		}
		return result, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 错误处理工具
// ═══════════════════════════════════════════════════════════════════════════

// IsTimeout 检查错误是否为 Ask 超时
func IsTimeout(err error) bool {
	var rt *ResponseTimeout
	return errors.As(err, &rt)
}
