package actor

import (
	"github.com/google/uuid"
)

// sink 引用背后的投递目标
// 由 actorCell、死信邮局和 Ask 的临时引用实现
type sink interface {
	sendMessage(env Envelope)
	sendSystemMessage(msg SystemMessage)
}

// Ref Actor 引用
// 由路径和 uid 标识一个 Actor 的某次化身，同一路径上重新创建的 Actor 拥有不同 uid。
// Ref 是可比较的值类型，可以自由复制，不暴露 Actor 内部状态。
type Ref struct {
	path Path
	uid  uuid.UUID
	sink sink
}

// NoSender 空引用，表示没有发送者
var NoSender Ref

func newRef(path Path, s sink) Ref {
	return Ref{path: path, uid: uuid.New(), sink: s}
}

// Path 返回路径
func (r Ref) Path() Path { return r.path }

// UID 返回化身标识
func (r Ref) UID() uuid.UUID { return r.uid }

// IsNoSender 是否为空引用
func (r Ref) IsNoSender() bool { return r.sink == nil }

// String 返回 "path#uid" 形式
func (r Ref) String() string {
	if r.sink == nil {
		return "NoSender"
	}
	if r.uid == uuid.Nil {
		return r.path.String()
	}
	return r.path.String() + "#" + r.uid.String()
}

// Tell 发送消息（fire-and-forget）
func (r Ref) Tell(msg Message, sender Ref) {
	if r.sink == nil {
		return
	}
	r.sink.sendMessage(Envelope{Message: msg, Sender: sender})
}

// SendSystemMessage 发送系统消息
func (r Ref) SendSystemMessage(msg SystemMessage) {
	if r.sink == nil {
		return
	}
	r.sink.sendSystemMessage(msg)
}

// cell 返回本地 Actor 单元，非 Actor 引用返回 nil
func (r Ref) cell() *actorCell {
	c, _ := r.sink.(*actorCell)
	return c
}
