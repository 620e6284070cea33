package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/database"
)

func main() {
	var mongoURI, dbName, prefix, only, endpoint string
	var batchSize int
	var dryRun bool
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MONGO_DB_URL"), "MongoDB URI")
	flag.StringVar(&dbName, "db", os.Getenv("MONGO_DB_NAME"), "MongoDB database name")
	flag.StringVar(&prefix, "prefix", os.Getenv("DDB_TABLE_PREFIX"), "DynamoDB table name prefix")
	flag.StringVar(&endpoint, "endpoint", os.Getenv("AWS_ENDPOINT"), "AWS endpoint override")
	flag.StringVar(&only, "collections", "", "comma-separated collections to copy (default: all)")
	flag.IntVar(&batchSize, "batch", 500, "records per page")
	flag.BoolVar(&dryRun, "dry-run", false, "decode and count without writing")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	if mongoURI == "" || dbName == "" {
		logger.Fatal("MONGO_DB_URL and MONGO_DB_NAME must be set or provided via flags")
	}
	if prefix == "" {
		prefix = "supermart_"
	}

	ctx := context.Background()
	mclient, err := database.ConnectMongo(ctx, mongoURI)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer func() { _ = database.DisconnectMongo(mclient) }()
	src := docstore.NewMongoStore(mclient.Database(dbName))

	awsCfg, err := awspkg.LoadAWSConfig(ctx, endpoint)
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}
	dst := docstore.NewDynamoStore(docstore.NewDynamoClient(awsCfg), prefix)

	all := copiers(batchSize, dryRun, logger)
	selected, err := selectCollections(all, only)
	if err != nil {
		logger.Fatal("invalid -collections", zap.Error(err))
	}

	var mu sync.Mutex
	counts := make(map[string]int, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range selected {
		copyFn := all[name]
		g.Go(func() error {
			n, err := copyFn(gctx, src, dst)
			mu.Lock()
			counts[name] = n
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("migration failed", zap.Error(err), zap.Any("migrated", counts))
	}
	for _, name := range selected {
		fmt.Printf("%s: migrated=%d\n", name, counts[name])
	}
	if dryRun {
		fmt.Println("Dry run: nothing was written.")
	}
}

func selectCollections(all map[string]collectionCopier, only string) ([]string, error) {
	var names []string
	if strings.TrimSpace(only) == "" {
		for name := range all {
			names = append(names, name)
		}
	} else {
		for _, name := range strings.Split(only, ",") {
			name = strings.TrimSpace(name)
			if _, ok := all[name]; !ok {
				return nil, fmt.Errorf("unknown collection %q", name)
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
