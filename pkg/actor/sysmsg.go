package actor

import (
	"github.com/google/uuid"
)

// SystemMessage 控制消息
// 经由邮箱的系统队列投递，总是优先于用户消息处理
type SystemMessage interface {
	Message
	systemMessage()
}

// ============== 系统消息 ==============

// Create 创建 Actor 实例
type Create struct{}

// Recreate 以新实例重启 Actor
type Recreate struct {
	Cause error
}

// Suspend 挂起用户消息处理
type Suspend struct{}

// Resume 恢复用户消息处理
// CausedByFailure 非空表示这是对失败的处理结果
type Resume struct {
	CausedByFailure error
}

// Terminate 停止 Actor
type Terminate struct{}

// Supervise 子 Actor 通知父 Actor 已完成初始化
type Supervise struct {
	Child Ref
	Async bool
}

// Watch 建立监控
type Watch struct {
	Watchee Ref
	Watcher Ref
}

// Unwatch 取消监控
type Unwatch struct {
	Watchee Ref
	Watcher Ref
}

// DeathWatchNotification 被监控 Actor 已终止
// ExistenceConfirmed 为 false 表示监控建立时目标已不存在
type DeathWatchNotification struct {
	Actor              Ref
	ExistenceConfirmed bool
}

// Failed 子 Actor 向父 Actor 报告失败
type Failed struct {
	Child Ref
	Cause error
	UID   uuid.UUID
}

func (*Create) Kind() string                 { return "system.create" }
func (*Recreate) Kind() string               { return "system.recreate" }
func (*Suspend) Kind() string                { return "system.suspend" }
func (*Resume) Kind() string                 { return "system.resume" }
func (*Terminate) Kind() string              { return "system.terminate" }
func (*Supervise) Kind() string              { return "system.supervise" }
func (*Watch) Kind() string                  { return "system.watch" }
func (*Unwatch) Kind() string                { return "system.unwatch" }
func (*DeathWatchNotification) Kind() string { return "system.death_watch_notification" }
func (*Failed) Kind() string                 { return "system.failed" }

func (*Create) systemMessage()                 {}
func (*Recreate) systemMessage()               {}
func (*Suspend) systemMessage()                {}
func (*Resume) systemMessage()                 {}
func (*Terminate) systemMessage()              {}
func (*Supervise) systemMessage()              {}
func (*Watch) systemMessage()                  {}
func (*Unwatch) systemMessage()                {}
func (*DeathWatchNotification) systemMessage() {}
func (*Failed) systemMessage()                 {}

// ============== 侵入式链表 ==============

// sysEntry 系统消息链表节点
type sysEntry struct {
	msg  SystemMessage
	next *sysEntry
}

// noMessage 系统队列关闭标记，永远不会被处理
var noMessage = &sysEntry{}

// latestFirst 最新消息在头部的链表，入队时前插得到
type latestFirst struct {
	head *sysEntry
}

func (l latestFirst) isEmpty() bool { return l.head == nil }

// prepend 前插并返回新链表
func (l latestFirst) prepend(e *sysEntry) latestFirst {
	e.next = l.head
	return latestFirst{head: e}
}

// reverse 原地反转为发送顺序
func (l latestFirst) reverse() earliestFirst {
	var reversed *sysEntry
	cur := l.head
	for cur != nil {
		next := cur.next
		cur.next = reversed
		reversed = cur
		cur = next
	}
	return earliestFirst{head: reversed}
}

// earliestFirst 按发送顺序排列的链表
type earliestFirst struct {
	head *sysEntry
}

func (l earliestFirst) isEmpty() bool { return l.head == nil }

// pop 取出头部消息并断开节点
func (l earliestFirst) pop() (SystemMessage, earliestFirst) {
	e := l.head
	rest := earliestFirst{head: e.next}
	e.next = nil
	return e.msg, rest
}
