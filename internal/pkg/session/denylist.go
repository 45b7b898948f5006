package session

import (
	"context"
	"encoding/json"
	"time"

	"clinical-scribe-be/internal/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const invalidationChannel = "clinic:credential:invalidated"

// ICredentialDenylist tracks credentials that have been invalidated before
// their natural expiry. A 401 anywhere in the system means the credential is
// invalid everywhere, so invalidations are broadcast to all instances over
// Redis and each instance keeps a local in-memory copy for fast lookups on
// the request path.
type ICredentialDenylist interface {
	Invalidate(ctx context.Context, userId string, ttl time.Duration) error
	IsInvalidated(userId string) bool
	Close() error
}

type invalidationMessage struct {
	UserId    string `json:"user_id"`
	TtlMillis int64  `json:"ttl_millis"`
}

type credentialDenylist struct {
	local  *gocache.Cache
	rdb    *redis.Client
	logger logger.ILogger
	cancel context.CancelFunc
}

func NewCredentialDenylist(rdb *redis.Client, log logger.ILogger) ICredentialDenylist {
	d := &credentialDenylist{
		local:  gocache.New(24*time.Hour, 10*time.Minute),
		rdb:    rdb,
		logger: log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	if rdb != nil {
		go d.listen(ctx)
	}
	return d
}

func (d *credentialDenylist) Invalidate(ctx context.Context, userId string, ttl time.Duration) error {
	d.local.Set(userId, true, ttl)

	if d.rdb == nil {
		return nil
	}

	msg := invalidationMessage{UserId: userId, TtlMillis: ttl.Milliseconds()}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := d.rdb.Publish(ctx, invalidationChannel, payload).Err(); err != nil {
		// The local entry still holds, so this instance stays safe.
		d.logger.Warn("session", "failed to broadcast credential invalidation", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (d *credentialDenylist) IsInvalidated(userId string) bool {
	_, found := d.local.Get(userId)
	return found
}

func (d *credentialDenylist) listen(ctx context.Context) {
	sub := d.rdb.Subscribe(ctx, invalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg invalidationMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				d.logger.Warn("session", "malformed invalidation message", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			ttl := time.Duration(msg.TtlMillis) * time.Millisecond
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			d.local.Set(msg.UserId, true, ttl)
		}
	}
}

func (d *credentialDenylist) Close() error {
	d.cancel()
	return nil
}
