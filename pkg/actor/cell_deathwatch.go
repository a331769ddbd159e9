package actor

// terminatedNotice 自身投递的终止通知，取消监控后到达的会被丢弃
type terminatedNotice struct {
	*Terminated
}

func (t *terminatedNotice) Kind() string { return "system.terminated_notice" }

// watch 监控 subject，重复监控不会产生多次通知
func (c *actorCell) watch(subject Ref) {
	if subject == c.self || subject.IsNoSender() {
		return
	}
	if _, ok := c.watching[subject]; ok {
		return
	}
	c.watching[subject] = struct{}{}
	subject.SendSystemMessage(&Watch{Watchee: subject, Watcher: c.self})
}

func (c *actorCell) unwatch(subject Ref) {
	delete(c.terminatedQueued, subject)
	if _, ok := c.watching[subject]; !ok {
		return
	}
	delete(c.watching, subject)
	subject.SendSystemMessage(&Unwatch{Watchee: subject, Watcher: c.self})
}

// addWatcher 处理 Watch：自身是被监控方时登记监控者，自身是监控方时发起监控
func (c *actorCell) addWatcher(watchee, watcher Ref) {
	watcheeSelf := watchee == c.self
	watcherSelf := watcher == c.self
	switch {
	case watcheeSelf && !watcherSelf:
		c.watchers[watcher] = struct{}{}
	case !watcheeSelf && watcherSelf:
		c.watch(watchee)
	default:
		c.logger.Warn("illegal watch", "actor", c.self.String(), "watchee", watchee.String(), "watcher", watcher.String())
	}
}

func (c *actorCell) remWatcher(watchee, watcher Ref) {
	watcheeSelf := watchee == c.self
	watcherSelf := watcher == c.self
	switch {
	case watcheeSelf && !watcherSelf:
		delete(c.watchers, watcher)
	case !watcheeSelf && watcherSelf:
		c.unwatch(watchee)
	default:
		c.logger.Warn("illegal unwatch", "actor", c.self.String(), "watchee", watchee.String(), "watcher", watcher.String())
	}
}

// watchedActorTerminated 处理终止通知
// 被监控时投递一次 Terminated，是子 Actor 时更新子表并推进重建或终止
func (c *actorCell) watchedActorTerminated(actor Ref, existenceConfirmed bool) {
	if _, ok := c.watching[actor]; ok {
		delete(c.watching, actor)
		if !c.isTerminating() {
			c.terminatedQueued[actor] = struct{}{}
			c.self.Tell(&terminatedNotice{&Terminated{Who: actor, ExistenceConfirmed: existenceConfirmed}}, actor)
		}
	}
	if actor.Path().Parent() == c.self.Path() {
		c.handleChildTerminated(actor)
	}
}

func (c *actorCell) handleChildTerminated(child Ref) {
	reason, cause := c.children.remove(child)
	switch reason {
	case reasonTermination:
		if c.children.isEmpty() {
			c.finishTerminate()
		}
	case reasonRecreation:
		c.finishRecreate(cause)
	}
}

// tellWatchersWeDied 先通知父 Actor，再通知其余监控者
func (c *actorCell) tellWatchersWeDied() {
	if !c.parent.IsNoSender() {
		c.parent.SendSystemMessage(&DeathWatchNotification{Actor: c.self, ExistenceConfirmed: true})
	}
	for watcher := range c.watchers {
		if watcher != c.parent {
			watcher.SendSystemMessage(&DeathWatchNotification{Actor: c.self, ExistenceConfirmed: true})
		}
	}
	c.watchers = make(map[Ref]struct{})
}

func (c *actorCell) unwatchWatchedActors() {
	for subject := range c.watching {
		subject.SendSystemMessage(&Unwatch{Watchee: subject, Watcher: c.self})
	}
	c.watching = make(map[Ref]struct{})
	c.terminatedQueued = make(map[Ref]struct{})
}
