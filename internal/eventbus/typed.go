package eventbus

func (bus *EventBus) PublishTimeUpdated(p TimeUpdatedPayload) {
	bus.publish(EventTimerTimeUpdated, p)
}

func (bus *EventBus) SubscribeTimeUpdated(fn func(TimeUpdatedPayload)) func() {
	return bus.subscribe(EventTimerTimeUpdated, func(p any) { fn(p.(TimeUpdatedPayload)) })
}

func (bus *EventBus) PublishStatusChanged(p StatusChangedPayload) {
	bus.publish(EventTimerStatusChanged, p)
}

func (bus *EventBus) SubscribeStatusChanged(fn func(StatusChangedPayload)) func() {
	return bus.subscribe(EventTimerStatusChanged, func(p any) { fn(p.(StatusChangedPayload)) })
}

func (bus *EventBus) PublishTimerFinished(p TimerFinishedPayload) {
	bus.publish(EventTimerFinished, p)
}

func (bus *EventBus) SubscribeTimerFinished(fn func(TimerFinishedPayload)) func() {
	return bus.subscribe(EventTimerFinished, func(p any) { fn(p.(TimerFinishedPayload)) })
}

func (bus *EventBus) PublishRecordRequested(p RecordRequestedPayload) {
	bus.publish(EventTimerRecordRequested, p)
}

func (bus *EventBus) SubscribeRecordRequested(fn func(RecordRequestedPayload)) func() {
	return bus.subscribe(EventTimerRecordRequested, func(p any) { fn(p.(RecordRequestedPayload)) })
}

func (bus *EventBus) PublishEventRecorded(p EventRecordedPayload) {
	bus.publish(EventRecorderEventRecorded, p)
}

func (bus *EventBus) SubscribeEventRecorded(fn func(EventRecordedPayload)) func() {
	return bus.subscribe(EventRecorderEventRecorded, func(p any) { fn(p.(EventRecordedPayload)) })
}

func (bus *EventBus) PublishSyncCompleted(p SyncCompletedPayload) {
	bus.publish(EventSyncCompleted, p)
}

func (bus *EventBus) SubscribeSyncCompleted(fn func(SyncCompletedPayload)) func() {
	return bus.subscribe(EventSyncCompleted, func(p any) { fn(p.(SyncCompletedPayload)) })
}

func (bus *EventBus) PublishStoreSaveFailed(p StoreSaveFailedPayload) {
	bus.publish(EventStoreSaveFailed, p)
}

func (bus *EventBus) SubscribeStoreSaveFailed(fn func(StoreSaveFailedPayload)) func() {
	return bus.subscribe(EventStoreSaveFailed, func(p any) { fn(p.(StoreSaveFailedPayload)) })
}
