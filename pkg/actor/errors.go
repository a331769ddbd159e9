package actor

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidActorName Actor 名称不合法
	ErrInvalidActorName = errors.New("invalid actor name")
	// ErrActorNameTaken 同一父 Actor 下名称已被占用
	ErrActorNameTaken = errors.New("actor name is already taken")
	// ErrActorTerminating 父 Actor 正在终止，不能再创建子 Actor
	ErrActorTerminating = errors.New("actor is terminating")
	// ErrMailboxFull 有界邮箱已满
	ErrMailboxFull = errors.New("mailbox is full")
	// ErrDispatcherShutdown 调度器已关闭
	ErrDispatcherShutdown = errors.New("dispatcher is shut down")
	// ErrUnknownDispatcher 未注册的调度器 ID
	ErrUnknownDispatcher = errors.New("unknown dispatcher")
	// ErrSystemNotRunning Actor 系统未运行
	ErrSystemNotRunning = errors.New("actor system is not running")
	// ErrUnexpectedReply Ask 收到的回复类型不符
	ErrUnexpectedReply = errors.New("unexpected reply type")
	// ErrInvalidPath 路径字符串无法解析
	ErrInvalidPath = errors.New("invalid actor path")
)

// ActorInitializationError Actor 创建或启动阶段的失败
type ActorInitializationError struct {
	Actor Ref
	Cause error
}

func (e *ActorInitializationError) Error() string {
	return fmt.Sprintf("%s: exception during creation: %v", e.Actor, e.Cause)
}

// Unwrap 返回原始错误
func (e *ActorInitializationError) Unwrap() error { return e.Cause }

// PostRestartError 重启后钩子失败
type PostRestartError struct {
	Actor         Ref
	Cause         error
	OriginalCause error
}

func (e *PostRestartError) Error() string {
	return fmt.Sprintf("%s: exception post restart (%v): %v", e.Actor, e.OriginalCause, e.Cause)
}

// Unwrap 返回原始错误
func (e *PostRestartError) Unwrap() error { return e.Cause }

// ActorKilledError 由 Kill 消息触发的失败
type ActorKilledError struct {
	Actor Ref
}

func (e *ActorKilledError) Error() string {
	return fmt.Sprintf("%s: killed", e.Actor)
}

// PanicError Receive 中的 panic 转换得到的错误
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap 当 panic 值本身是 error 时返回它
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// recoveredError 将 recover() 的结果转换为 error
func recoveredError(r any) error {
	return errors.WithStack(&PanicError{Value: r, Stack: debug.Stack()})
}
