package fetchers

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLog(t *testing.T) *logrus.Entry {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
