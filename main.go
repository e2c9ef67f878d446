package main

import (
	"context"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/sirupsen/logrus"

	"github.com/kartoza/kartoza-portal-recorder/cmd"
)

// Version is set via ldflags during build
var version = "0.1.0-dev"

func main() {
	ll := xlogrus.DefaultLogrusLogger()
	ll.Formatter.(*logrus.TextFormatter).FullTimestamp = true
	l := xlogrus.New(ll)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}

	cmd.SetVersion(version)
	err := cmd.Execute(ctx)
	belt.Flush(ctx)
	if err != nil {
		os.Exit(1)
	}
}
