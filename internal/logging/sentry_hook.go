package logging

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/sirupsen/logrus"
)

var sentryLevels = []logrus.Level{
	logrus.PanicLevel,
	logrus.FatalLevel,
	logrus.ErrorLevel,
}

// setupSentry binds the global sentry client, flushed by the server on
// shutdown, and returns a logrus hook reporting error and worse entries through it.
func setupSentry(params LoggerSetupParams) (*sentrylogrus.Hook, error) {
	err := sentry.Init(sentry.ClientOptions{
		Environment:      params.Environment,
		Dsn:              params.SentryDSN,
		TracesSampleRate: 1.0,
		ServerName:       params.SentryServerName,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return sentrylogrus.NewFromClient(sentryLevels, sentry.CurrentHub().Client()), nil
}
