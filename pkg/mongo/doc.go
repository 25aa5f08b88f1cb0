// Package mongo connects to the MongoDB deployment backing the document
// message backend.
//
// Connect wraps go.mongodb.org/mongo-driver/v2 with retries; Config is
// populated from environment variables via caarlos0/env.
//
//	db, err := mongo.ConnectDatabase(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	backend, err := mongobackend.New(ctx, db)
package mongo
