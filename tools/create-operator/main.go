package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/database"
	"github.com/advanced-supermart/console-backend/services/console/repository"
)

func main() {
	var backend, mongoURI, dbName, prefix, endpoint string
	var op operator
	var reset bool
	flag.StringVar(&backend, "backend", envOr("STORE_BACKEND", "mongo"), "user store: mongo or dynamodb")
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MONGO_DB_URL"), "MongoDB URI")
	flag.StringVar(&dbName, "db", os.Getenv("MONGO_DB_NAME"), "MongoDB database name")
	flag.StringVar(&prefix, "prefix", envOr("DDB_TABLE_PREFIX", "supermart_"), "DynamoDB table name prefix")
	flag.StringVar(&endpoint, "endpoint", os.Getenv("AWS_ENDPOINT"), "AWS endpoint override")
	flag.StringVar(&op.Email, "email", "", "operator email")
	flag.StringVar(&op.Name, "name", "", "operator display name")
	flag.StringVar(&op.Role, "role", "Cashier", "operator role: admin or Cashier")
	flag.BoolVar(&reset, "reset", false, "reset password and role when the email already exists")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	// Read from the environment so the password never shows up in ps output.
	op.Password = os.Getenv("OPERATOR_PASSWORD")

	ctx := context.Background()
	var store docstore.Store
	switch backend {
	case "mongo":
		if mongoURI == "" || dbName == "" {
			logger.Fatal("MONGO_DB_URL and MONGO_DB_NAME must be set or provided via flags")
		}
		mclient, err := database.ConnectMongo(ctx, mongoURI)
		if err != nil {
			logger.Fatal("mongo connect", zap.Error(err))
		}
		defer func() { _ = database.DisconnectMongo(mclient) }()
		store = docstore.NewMongoStore(mclient.Database(dbName))
	case "dynamodb":
		awsCfg, err := awspkg.LoadAWSConfig(ctx, endpoint)
		if err != nil {
			logger.Fatal("aws config", zap.Error(err))
		}
		store = docstore.NewDynamoStore(docstore.NewDynamoClient(awsCfg), prefix)
	default:
		logger.Fatal("unknown -backend", zap.String("backend", backend))
	}

	id, err := newProvisioner(repository.NewUserRepository(store), logger).provision(ctx, op, reset)
	if err != nil {
		logger.Fatal("provision operator", zap.Error(err))
	}
	fmt.Printf("operator %s: id=%s role=%s\n", op.Email, id, op.Role)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
