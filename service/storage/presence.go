package storage

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/pkg/errors"

	redisdb "CollabProject/service/storage/redis"
)

// Presence mirrors the in-memory registry into Redis so other processes
// (API nodes, admin tooling) can answer "is this user online" without a
// connection to the gateway. Best-effort: the gateway's registry remains
// the source of truth for delivery.

// presence key: collab:presence:<user>   value: node id, TTL bound
// room set key: collab:room:<room>       members: user ids
func presenceKey(user string) string { return "collab:presence:" + user }
func roomKey(room string) string     { return "collab:room:" + room }

type Presence struct {
	NodeID string
	TTL    time.Duration
}

func NewPresence(nodeID string, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Presence{NodeID: nodeID, TTL: ttl}
}

// Online marks the user online in room and renews the presence TTL.
func (p *Presence) Online(ctx context.Context, user, room string) error {
	rdb := redisdb.Client()
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	pipe := rdb.Pipeline()
	pipe.Set(ctx, presenceKey(user), p.NodeID, p.TTL)
	pipe.SAdd(ctx, roomKey(room), user)
	pipe.Expire(ctx, roomKey(room), p.TTL)
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "presence online")
}

// Offline removes the user from the room set; the presence key is deleted
// only when the user has no live connection left anywhere.
func (p *Presence) Offline(ctx context.Context, user, room string, lastAnywhere bool) error {
	rdb := redisdb.Client()
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	pipe := rdb.Pipeline()
	pipe.SRem(ctx, roomKey(room), user)
	if lastAnywhere {
		pipe.Del(ctx, presenceKey(user))
	}
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "presence offline")
}

// Touch renews the presence TTL, called from the websocket pong handler.
func (p *Presence) Touch(ctx context.Context, user string) error {
	rdb := redisdb.Client()
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Expire(ctx, presenceKey(user), p.TTL).Err()
}

// Lookup reports which node the user is attached to, if any.
func (p *Presence) Lookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	rdb := redisdb.Client()
	if rdb == nil {
		return "", false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
