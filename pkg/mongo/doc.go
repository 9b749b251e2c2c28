// Package mongo connects to MongoDB with the official v2 driver using
// environment-driven settings and a retry loop, and provides a ping-based
// health check.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Client().Disconnect(context.Background())
package mongo
