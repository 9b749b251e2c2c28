// Package redis connects to Redis with go-redis/v9, retrying until the server
// answers, and exposes a ping-based health check.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package redis
