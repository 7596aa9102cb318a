// Package redis wraps go-redis for the two things phrame shares between
// processes: the runtime state (TypedStore) and the event stream
// (Publisher).
//
//	client, err := redis.New(cfg, log)
//	state := coordinator.NewStateStore(redis.NewTypedStore[coordinator.RuntimeState](client, cfg.KeyPrefix))
//	notifier := coordinator.Notifiers{sseNotifier, redis.NewPublisher(client)}
package redis
