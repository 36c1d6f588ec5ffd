// Command vitrine-lambda serves the catalog API from AWS Lambda behind an
// API Gateway HTTP API. It needs the postgres store and the AWSS3 blob
// driver, since the function has no persistent disk.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/relabs-tech/vitrine/core/kss"
	"github.com/relabs-tech/vitrine/core/logger"
	"github.com/relabs-tech/vitrine/internal/app"
	"github.com/relabs-tech/vitrine/web"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	if cfg.Store != app.StorePostgres || kss.DriverType(cfg.KSSDriver) != kss.DriverTypeAWSS3 {
		logger.Default().Warnln("lambda without STORE=postgres and KSS_DRIVER=AWSS3 loses its data between invocations")
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Default().WithError(err).Fatalln("cannot start")
	}
	// the orphan sweep runs on the long-lived server only
	lambda.Start(web.LambdaHandler(a.API.Handler()))
}
