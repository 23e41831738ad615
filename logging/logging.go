// Package logging builds the glog logger shared by the service components.
package logging

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
	FormatText   = "text"
)

// New returns the root logger named after service. Components take a
// named child with GetLogger. Go-errors values logged as "error" attributes
// are expanded with their category, code and metadata.
func New(level, service, format string) *glog.BaseLogger {
	lvl := glog.Info
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		lvl = glog.Trace
	case "debug":
		lvl = glog.Debug
	case "warn", "warning":
		lvl = glog.Warn
	case "error":
		lvl = glog.Error
	}

	kind := glog.WithLoggerTypeJSON()
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatPretty, FormatText:
		kind = glog.WithLoggerTypePretty()
	}

	return glog.NewLogger(
		glog.WithName(service),
		glog.WithLevel(lvl),
		kind,
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)
}
