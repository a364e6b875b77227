package utils

import (
	"github.com/go-redis/redis"
)

var RedisClient *redis.Client

// InitRedis connects the package-level client. A blank addr leaves the
// client nil and turns Publish into a no-op.
func InitRedis(addr string) {
	if addr == "" {
		return
	}
	RedisClient = redis.NewClient(
		&redis.Options{
			Addr:     addr,
			Password: "",
			DB:       0,
		})
}

func Publish(data []byte, channel string) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Publish(channel, data).Err()
}
