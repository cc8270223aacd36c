package obs

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/rollbar/rollbar-go"
)

var reportingEnabled atomic.Bool

// InitReporting routes ReportError to Rollbar. An empty token leaves
// reporting disabled.
func InitReporting(token, env, version string) {
	if token == "" {
		reportingEnabled.Store(false)
		return
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetCodeVersion(version)
	if host, err := os.Hostname(); err == nil {
		rollbar.SetServerHost(host)
	}
	rollbar.SetEnabled(true)
	reportingEnabled.Store(true)
}

// ReportingEnabled reports whether InitReporting configured a token.
func ReportingEnabled() bool {
	return reportingEnabled.Load()
}

// WithPerson tags errors reported under ctx with the authenticated user.
func WithPerson(ctx context.Context, userID int64, email string) context.Context {
	if !reportingEnabled.Load() {
		return ctx
	}
	return rollbar.NewPersonContext(ctx, &rollbar.Person{
		Id:    strconv.FormatInt(userID, 10),
		Email: email,
	})
}

// ReportError sends err to Rollbar when reporting is enabled. It never blocks
// on the network; items are queued by the async client.
func ReportError(ctx context.Context, err error, extras map[string]any) {
	if err == nil || !reportingEnabled.Load() {
		return
	}
	fields := make(map[string]interface{}, len(extras))
	for k, v := range extras {
		fields[k] = v
	}
	rollbar.ErrorWithExtrasAndContext(ctx, rollbar.ERR, err, fields)
}

// FlushReports waits for queued items to be delivered.
func FlushReports() {
	if reportingEnabled.Load() {
		rollbar.Wait()
	}
}
