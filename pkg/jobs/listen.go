package jobs

import (
	"context"
	"sync"
	"time"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	workloop "github.com/mutablelogic/go-pgjobs/pkg/workloop"
	server "github.com/mutablelogic/go-server"
)

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// listen wakes the loop whenever a notification is received on the
// channel, until the returned function is called. While the channel cannot
// be listened to the loop falls back to polling, and listening is retried
// after each interval.
func listen(ctx context.Context, conn pg.PoolConn, channel string, loop *workloop.WorkLoop, log server.Logger, interval time.Duration) func() {
	log = log.With("channel", channel)
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			err := subscribe(ctx, conn, channel, loop, log)
			if ctx.Err() != nil {
				return
			}
			log.Print(ctx, "listen: ", err, ", polling")
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

// subscribe listens on the channel on a dedicated connection, and wakes the
// loop for each notification until an error occurs
func subscribe(ctx context.Context, conn pg.PoolConn, channel string, loop *workloop.WorkLoop, log server.Logger) error {
	listener := conn.Listener()
	defer listener.Close(context.WithoutCancel(ctx))
	if err := listener.Listen(ctx, channel); err != nil {
		return err
	}

	// Notifications sent before now were missed
	loop.Wake()

	for {
		notification, err := listener.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		log.With("payload", string(notification.Payload)).Debug(ctx, "notification")
		loop.Wake()
	}
}
