package actor

import (
	"time"

	"github.com/pkg/errors"
)

// handleInvokeFailure 处理自身失败：挂起自身与子 Actor，并上报父 Actor
func (c *actorCell) handleInvokeFailure(cause error, msg Message) {
	c.stats.RecordError(cause)

	attrs := []any{"actor", c.self.String(), "message", kindOf(msg), "error", cause}
	var pe *PanicError
	if errors.As(cause, &pe) {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	c.logger.Error("actor failed", attrs...)

	if c.isTerminating() || c.failed {
		return
	}
	c.failWith(cause, c.self, NoSender)
}

// failWith 进入失败状态并通知父 Actor
// skip 为已经自行挂起的子 Actor，升级时即为失败的来源
func (c *actorCell) failWith(cause error, perpetrator, skip Ref) {
	c.suspendNonRecursive()
	c.setFailed(perpetrator)
	c.cancelReceiveTimeout()
	c.suspendChildren(skip)

	if c.parent.IsNoSender() {
		c.logger.Error("root actor failed, stopping actor tree", "actor", c.self.String(), "error", cause)
		c.self.SendSystemMessage(&Terminate{})
		return
	}
	c.parent.SendSystemMessage(&Failed{Child: c.self, Cause: cause, UID: c.self.UID()})
}

func (c *actorCell) suspendChildren(skip Ref) {
	for _, child := range c.children.refs() {
		if child != skip {
			child.SendSystemMessage(&Suspend{})
		}
	}
}

// resumeChildren 恢复子 Actor，失败来源收到原因以清除其失败状态
func (c *actorCell) resumeChildren(cause error, perpetrator Ref) {
	for _, child := range c.children.refs() {
		var childCause error
		if child == perpetrator {
			childCause = cause
		}
		child.SendSystemMessage(&Resume{CausedByFailure: childCause})
	}
}

func (c *actorCell) supervise(child Ref) {
	if _, ok := c.children.byRef(child); !ok {
		c.logger.Warn("supervise request from unknown child", "actor", c.self.String(), "child", child.String())
	}
}

// ============== 监督 ==============

func (c *actorCell) strategy() SupervisorStrategy {
	if c.props.SupervisorStrategy != nil {
		return c.props.SupervisorStrategy
	}
	return c.system.defaultStrategy
}

// handleFailure 处理子 Actor 上报的失败
func (c *actorCell) handleFailure(f *Failed) {
	entry, ok := c.children.byRef(f.Child)
	if !ok || entry.ref.UID() != f.UID {
		c.logger.Debug("dropping failure from stale child", "actor", c.self.String(), "child", f.Child.String())
		return
	}
	if c.children.isDying(f.Child) || c.isTerminating() {
		return
	}

	decision := c.strategy().HandleFailure(c.ctx, &Failure{
		Child: f.Child,
		Cause: f.Cause,
		Stats: &entry.stats,
	})
	c.logger.Info("supervisor decision",
		"actor", c.self.String(),
		"child", f.Child.String(),
		"directive", decision.Directive.String(),
		"error", f.Cause)

	switch decision.Directive {
	case DirectiveResume:
		f.Child.SendSystemMessage(&Resume{CausedByFailure: f.Cause})
	case DirectiveRestart:
		if decision.AllChildren {
			for _, sibling := range c.children.refs() {
				if sibling == f.Child || c.children.isDying(sibling) {
					continue
				}
				sibling.SendSystemMessage(&Suspend{})
				c.restartChild(sibling, f.Cause, decision.Delay)
			}
		}
		c.restartChild(f.Child, f.Cause, decision.Delay)
	case DirectiveStop:
		if decision.AllChildren {
			for _, sibling := range c.children.refs() {
				c.stopChild(sibling)
			}
			return
		}
		c.stopChild(f.Child)
	case DirectiveEscalate:
		c.escalate(f)
	}
}

func (c *actorCell) restartChild(child Ref, cause error, delay time.Duration) {
	if delay <= 0 {
		child.SendSystemMessage(&Recreate{Cause: cause})
		return
	}
	time.AfterFunc(delay, func() {
		child.SendSystemMessage(&Recreate{Cause: cause})
	})
}

func (c *actorCell) stopChild(child Ref) {
	if _, ok := c.children.byRef(child); ok {
		c.children.shallDie(child)
	}
	child.SendSystemMessage(&Terminate{})
}

// escalate 以子 Actor 的失败原因使自身失败
func (c *actorCell) escalate(f *Failed) {
	if c.isTerminating() || c.failed {
		return
	}
	c.stats.RecordError(f.Cause)
	c.logger.Warn("escalating failure", "actor", c.self.String(), "child", f.Child.String(), "error", f.Cause)
	c.failWith(f.Cause, f.Child, f.Child)
}
