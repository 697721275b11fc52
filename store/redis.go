package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Keeps the lower of the stored and the offered time, so concurrent
// writers never replace a record with a slower one
var setMinScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false or tonumber(ARGV[1]) < tonumber(current) then
	redis.call("SET", KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// Redis stores each best time as a string key holding the seconds
type Redis struct {
	client *redis.Client
	log    logrus.FieldLogger
}

func NewRedis(client *redis.Client, log logrus.FieldLogger) *Redis {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Redis{client: client, log: log}
}

// OpenRedis connects to a redis:// URL and checks the server answers
func OpenRedis(ctx context.Context, url string, log logrus.FieldLogger) (*Redis, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedis(client, log), nil
}

func (r *Redis) Get(key string) (int, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	seconds, err := r.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false
	}
	if err != nil {
		r.log.WithError(err).WithField("key", key).Error("failed to read best time")
		return 0, false
	}
	return seconds, true
}

func (r *Redis) Set(key string, seconds int) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := setMinScript.Run(ctx, r.client, []string{key}, seconds).Err(); err != nil {
		r.log.WithError(err).WithField("key", key).Error("failed to save best time")
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
