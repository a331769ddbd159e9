package actor_test

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lwmacct/251215-go-pkg-actuator/pkg/actor"
)

// PingMessage 示例消息类型
type PingMessage struct{}

func (m *PingMessage) Kind() string { return "ping" }

// PongMessage 示例响应消息
type PongMessage struct{}

func (m *PongMessage) Kind() string { return "pong" }

// CountMessage 计数器消息
type CountMessage struct {
	Value int
}

func (m *CountMessage) Kind() string { return "count" }

type GetCountMessage struct{}

func (m *GetCountMessage) Kind() string { return "get_count" }

type CrashMessage struct{}

func (m *CrashMessage) Kind() string { return "crash" }

func newExampleSystem(name string) (*actor.System, error) {
	cfg := actor.DefaultSystemConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.EnableDeadLetterLogging = false
	return actor.NewSystemWithConfig(name, cfg)
}

// Example_basic 演示 Actor 系统的基本使用
func Example_basic() {
	sys, err := newExampleSystem("example")
	if err != nil {
		panic(err)
	}
	defer sys.Shutdown()

	ref, err := sys.ActorOf(actor.PropsFromFunc(func(ctx *actor.Context, msg actor.Message) {
		if _, ok := msg.(*PingMessage); ok {
			ctx.Reply(&PongMessage{})
		}
	}), "pinger")
	if err != nil {
		panic(err)
	}

	pong, err := actor.Ask[*PongMessage](ref, &PingMessage{}, time.Second)
	if err != nil {
		panic(err)
	}
	fmt.Println(ref.Path())
	fmt.Println(pong.Kind())
	// Output:
	// actuator://example/user/pinger
	// pong
}

// counter 失败后以新实例重新开始计数
type counter struct {
	actor.BaseActor
	count int
}

func (c *counter) Receive(ctx *actor.Context, msg actor.Message) {
	switch m := msg.(type) {
	case *CountMessage:
		c.count += m.Value
	case *GetCountMessage:
		ctx.Reply(&CountMessage{Value: c.count})
	case *CrashMessage:
		panic("crash")
	}
}

// Example_restart 演示默认监督策略：失败的 Actor 被重启，状态重置
func Example_restart() {
	sys, err := newExampleSystem("restart")
	if err != nil {
		panic(err)
	}
	defer sys.Shutdown()

	ref, err := sys.ActorOf(actor.PropsFromProducer(func() actor.Actor {
		return &counter{}
	}), "counter")
	if err != nil {
		panic(err)
	}

	ref.Tell(&CountMessage{Value: 2}, actor.NoSender)
	ref.Tell(&CrashMessage{}, actor.NoSender)
	ref.Tell(&CountMessage{Value: 1}, actor.NoSender)

	reply, err := actor.Ask[*CountMessage](ref, &GetCountMessage{}, time.Second)
	if err != nil {
		panic(err)
	}
	fmt.Println("count after restart:", reply.Value)
	fmt.Println("same ref:", sys.Resolve("/user/counter") == ref)
	// Output:
	// count after restart: 1
	// same ref: true
}

// Example_deathWatch 演示监控：被监控的 Actor 停止后只通知一次
func Example_deathWatch() {
	sys, err := newExampleSystem("watch")
	if err != nil {
		panic(err)
	}
	defer sys.Shutdown()

	notified := make(chan *actor.Terminated, 4)
	watcher, err := sys.ActorOf(actor.PropsFromFunc(func(ctx *actor.Context, msg actor.Message) {
		if t, ok := msg.(*actor.Terminated); ok {
			notified <- t
		}
	}), "watcher")
	if err != nil {
		panic(err)
	}

	worker, err := sys.ActorOf(actor.PropsFromFunc(func(*actor.Context, actor.Message) {}), "worker")
	if err != nil {
		panic(err)
	}

	sys.Watch(watcher, worker)
	sys.Watch(watcher, worker)
	if err := sys.StopGracefully(worker, time.Second); err != nil {
		panic(err)
	}

	t := <-notified
	fmt.Println("terminated:", t.Who.Path().Name())
	select {
	case <-notified:
		fmt.Println("notified twice")
	case <-time.After(100 * time.Millisecond):
		fmt.Println("notified once")
	}
	fmt.Println("resolves to dead letters:", sys.Resolve("/user/worker") == sys.DeadLetters())
	// Output:
	// terminated: worker
	// notified once
	// resolves to dead letters: true
}
