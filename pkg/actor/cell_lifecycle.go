package actor

// ============== 创建 ==============

func (c *actorCell) create() {
	if c.actor != nil {
		return
	}
	a, err := c.produce()
	if err != nil {
		c.handleInvokeFailure(&ActorInitializationError{Actor: c.self, Cause: err}, nil)
		return
	}
	c.actor = a
	if c.lifecycle() == cellUnstarted {
		c.setLifecycle(cellStarted)
	}
	if err := c.deliver(&Started{}); err != nil {
		c.handleInvokeFailure(&ActorInitializationError{Actor: c.self, Cause: err}, nil)
		return
	}
	c.logger.Debug("actor started", "actor", c.self.String())
}

// ============== 重启 ==============

// faultRecreate 开始重启：通知旧实例，停止不保留的子 Actor，待其全部终止后完成重建
func (c *actorCell) faultRecreate(cause error) {
	if c.isTerminating() {
		return
	}
	if c.actor != nil {
		if err := c.deliver(&Restarting{Cause: cause}); err != nil {
			c.logger.Warn("restarting hook failed", "actor", c.self.String(), "error", err)
		}
	}
	c.behaviors = nil
	c.cancelReceiveTimeout()

	var stopping []Ref
	for _, child := range c.children.refs() {
		if c.props.KeepChildOnRestart != nil && c.props.KeepChildOnRestart(child) {
			continue
		}
		stopping = append(stopping, child)
	}
	if len(stopping) == 0 {
		c.finishRecreate(cause)
		return
	}
	c.children.startTermination(stopping, reasonRecreation, cause)
	for _, child := range stopping {
		child.SendSystemMessage(&Terminate{})
	}
}

// finishRecreate 创建新实例并恢复邮箱，保留下来的子 Actor 随后依次重启
func (c *actorCell) finishRecreate(cause error) {
	survivors := c.children.refs()
	c.resumeNonRecursive()
	c.clearFailed()
	c.actor = nil

	fresh, err := c.produce()
	if err != nil {
		c.handleInvokeFailure(&ActorInitializationError{Actor: c.self, Cause: err}, nil)
		return
	}
	c.actor = fresh
	c.stats.RecordRestart()
	c.system.stats.restarts.Inc()
	if err := c.deliver(&Restarted{Cause: cause}); err != nil {
		c.handleInvokeFailure(&PostRestartError{Actor: c.self, Cause: err, OriginalCause: cause}, nil)
		return
	}
	for _, child := range survivors {
		child.SendSystemMessage(&Recreate{Cause: cause})
	}
	c.logger.Info("actor restarted", "actor", c.self.String(), "cause", cause)
}

// ============== 挂起与恢复 ==============

func (c *actorCell) faultSuspend() {
	c.suspendNonRecursive()
	c.suspendChildren(NoSender)
}

// faultResume 恢复邮箱，cause 非空表示监督者决定忽略该失败
func (c *actorCell) faultResume(cause error) {
	if c.actor == nil {
		// 初始化失败后的恢复按重启处理
		c.faultRecreate(cause)
		return
	}
	if c.children.awaitingChildren() {
		return
	}
	perpetrator := c.perpetrator
	c.resumeNonRecursive()
	if cause != nil {
		c.clearFailed()
	}
	c.resumeChildren(cause, perpetrator)
}

func (c *actorCell) suspendNonRecursive() {
	c.mailbox.suspend()
	c.state.CompareAndSwap(int32(cellStarted), int32(cellSuspended))
}

func (c *actorCell) resumeNonRecursive() {
	if c.mailbox.resume() {
		c.state.CompareAndSwap(int32(cellSuspended), int32(cellStarted))
	}
}

func (c *actorCell) setFailed(perpetrator Ref) {
	c.failed = true
	c.perpetrator = perpetrator
}

func (c *actorCell) clearFailed() {
	c.failed = false
	c.perpetrator = NoSender
}

// ============== 终止 ==============

// terminate 开始终止：先停止全部子 Actor，待其终止后完成
func (c *actorCell) terminate() {
	if c.isTerminating() {
		return
	}
	c.setLifecycle(cellTerminating)
	c.cancelReceiveTimeout()
	c.unwatchWatchedActors()
	if c.actor != nil {
		if err := c.deliver(&Stopping{}); err != nil {
			c.logger.Warn("stopping hook failed", "actor", c.self.String(), "error", err)
		}
	}

	children := c.children.refs()
	if len(children) == 0 {
		c.finishTerminate()
		return
	}
	c.children.startTermination(children, reasonTermination, nil)
	c.mailbox.suspend()
	for _, child := range children {
		child.SendSystemMessage(&Terminate{})
	}
}

func (c *actorCell) finishTerminate() {
	if c.isTerminated() {
		return
	}
	if c.actor != nil {
		if err := c.deliver(&Stopped{}); err != nil {
			c.logger.Warn("stopped hook failed", "actor", c.self.String(), "error", err)
		}
	}
	c.children.markFinished()
	c.dispatcher.detach(c.mailbox)
	c.setLifecycle(cellTerminated)
	c.actor = nil
	c.behaviors = nil

	c.tellWatchersWeDied()
	c.cancel()
	c.system.stats.actors.Dec()
	close(c.done)
	c.logger.Debug("actor stopped", "actor", c.self.String())
}
