package jobs

import (
	"context"
	"os"

	// Packages
	server "github.com/mutablelogic/go-server"
	logger "github.com/mutablelogic/go-server/pkg/logger"
	ref "github.com/mutablelogic/go-server/pkg/ref"
)

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// logFromContext returns the logger from the context, or a text logger
// on stderr when there is none
func logFromContext(ctx context.Context) (log server.Logger) {
	func() {
		defer func() { recover() }()
		log = ref.Log(ctx)
	}()
	if log == nil {
		log = logger.New(os.Stderr, logger.Text, false)
	}
	return log
}
