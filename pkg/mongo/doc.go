// Package mongo provides MongoDB connection management for the entitlement
// stores.
//
// Configuration is environment-driven (see Config). New retries the initial
// connection to ride out transient failures from managed MongoDB, and
// Healthcheck returns a probe function suitable for readiness endpoints.
//
// Usage:
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil { ... }
//	defer db.Client().Disconnect(context.Background())
//
// Connection failures wrap ErrFailedToConnectToMongo and compare with
// errors.Is.
package mongo
