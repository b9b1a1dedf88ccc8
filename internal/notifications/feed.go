package notifications

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

const (
	defaultSeedLimit = 50
	maxSeedLimit     = 100
	feedBuffer       = 64
	watcherBuffer    = 16
)

// ErrFeedClosed is returned when publishing into a stopped feed.
var ErrFeedClosed = errors.New("notification feed closed")

// Feed maintains an in-memory, most-recent-first notification list for one
// driver. It is seeded by a bounded fetch and kept current by live inserts
// arriving on its channel. Read and delete mutations are optimistic: local
// state flips first and remote failures are logged, not rolled back, so
// local and stored state can diverge until the next seed.
//
// An insert that lands between the seed fetch starting and the first channel
// receive can be missed or duplicated. The retention cron bounds how long
// that divergence survives.
type Feed struct {
	driverID uuid.UUID
	service  Service
	logg     *logger.Logger

	mu      sync.Mutex
	items   []models.Notification
	unread  int64
	started bool
	closed  bool

	inserts chan models.Notification
	cancel  context.CancelFunc
	done    chan struct{}

	watchers   map[uint64]chan models.Notification
	watcherSeq uint64
}

// NewFeed builds a feed for the given driver.
func NewFeed(driverID uuid.UUID, service Service, logg *logger.Logger) (*Feed, error) {
	if driverID == uuid.Nil {
		return nil, errors.New("driver id required")
	}
	if service == nil {
		return nil, errors.New("notifications service required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Feed{
		driverID: driverID,
		service:  service,
		logg:     logg,
		inserts:  make(chan models.Notification, feedBuffer),
		done:     make(chan struct{}),
		watchers: make(map[uint64]chan models.Notification),
	}, nil
}

// Start seeds the feed and begins consuming live inserts.
func (f *Feed) Start(ctx context.Context, seedLimit int) error {
	if seedLimit <= 0 {
		seedLimit = defaultSeedLimit
	}
	if seedLimit > maxSeedLimit {
		seedLimit = maxSeedLimit
	}

	f.mu.Lock()
	if f.started || f.closed {
		f.mu.Unlock()
		return errors.New("feed already started")
	}
	f.started = true
	f.mu.Unlock()

	seed, err := f.service.List(ctx, ListParams{DriverID: f.driverID, Limit: seedLimit})
	if err != nil {
		return err
	}
	unread, err := f.service.UnreadCount(ctx, f.driverID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.items = append(f.items[:0], seed.Items...)
	f.unread = unread
	f.mu.Unlock()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	f.mu.Lock()
	if f.closed {
		// Stop won the race during the seed fetch; never spawn the loop.
		f.mu.Unlock()
		cancel()
		return ErrFeedClosed
	}
	f.cancel = cancel
	f.mu.Unlock()

	go f.loop(loopCtx)
	return nil
}

// Publish hands a freshly inserted notification to the feed. Inserts for
// other drivers are ignored. The buffer is bounded; overflow drops the
// insert with a warning rather than blocking the producer.
func (f *Feed) Publish(ctx context.Context, notification models.Notification) error {
	if notification.DriverID != f.driverID {
		return nil
	}

	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return ErrFeedClosed
	}

	select {
	case f.inserts <- notification:
		return nil
	default:
		f.logg.Warn(ctx, "notification feed buffer full, insert dropped")
		return nil
	}
}

// Stop tears the feed down. Safe to call more than once.
func (f *Feed) Stop() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	wasStarted := f.started && f.cancel != nil
	for id, ch := range f.watchers {
		delete(f.watchers, id)
		close(ch)
	}
	f.mu.Unlock()

	if wasStarted {
		f.cancel()
		<-f.done
	}
}

func (f *Feed) loop(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case notification := <-f.inserts:
			f.prepend(notification)
		}
	}
}

func (f *Feed) prepend(notification models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.items = append([]models.Notification{notification}, f.items...)
	if !notification.IsRead {
		f.unread++
	}
	for _, ch := range f.watchers {
		select {
		case ch <- notification:
		default:
			// slow watcher misses the insert rather than blocking the feed
		}
	}
}

// Watch registers a live-insert subscriber. The returned cancel must be
// called when the subscriber goes away; the channel closes when the feed
// stops.
func (f *Feed) Watch() (<-chan models.Notification, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, nil, ErrFeedClosed
	}
	f.watcherSeq++
	id := f.watcherSeq
	ch := make(chan models.Notification, watcherBuffer)
	f.watchers[id] = ch
	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if existing, ok := f.watchers[id]; ok {
			delete(f.watchers, id)
			close(existing)
		}
	}
	return ch, cancel, nil
}

// Items returns a most-recent-first snapshot of the feed.
func (f *Feed) Items() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make([]models.Notification, len(f.items))
	copy(snapshot, f.items)
	return snapshot
}

// Unread returns the current local unread count.
func (f *Feed) Unread() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// MarkRead flips the entry locally, then issues the remote update.
func (f *Feed) MarkRead(ctx context.Context, notificationID uuid.UUID) {
	f.mu.Lock()
	for i := range f.items {
		if f.items[i].ID != notificationID {
			continue
		}
		if !f.items[i].IsRead {
			f.items[i].IsRead = true
			if f.unread > 0 {
				f.unread--
			}
		}
		break
	}
	f.mu.Unlock()

	if err := f.service.MarkRead(ctx, f.driverID, notificationID); err != nil {
		f.logg.Warn(ctx, "remote mark read failed: "+err.Error())
	}
}

// MarkAllRead flips every local entry, then issues one bulk remote update.
func (f *Feed) MarkAllRead(ctx context.Context) {
	f.mu.Lock()
	for i := range f.items {
		f.items[i].IsRead = true
	}
	f.unread = 0
	f.mu.Unlock()

	if _, err := f.service.MarkAllRead(ctx, f.driverID); err != nil {
		f.logg.Warn(ctx, "remote mark all read failed: "+err.Error())
	}
}

// Delete removes the entry locally, then issues the remote delete.
func (f *Feed) Delete(ctx context.Context, notificationID uuid.UUID) {
	f.mu.Lock()
	for i := range f.items {
		if f.items[i].ID != notificationID {
			continue
		}
		if !f.items[i].IsRead && f.unread > 0 {
			f.unread--
		}
		f.items = append(f.items[:i], f.items[i+1:]...)
		break
	}
	f.mu.Unlock()

	if err := f.service.Delete(ctx, f.driverID, notificationID); err != nil {
		f.logg.Warn(ctx, "remote delete failed: "+err.Error())
	}
}

// ClearAll empties the local list, then issues the remote bulk delete.
func (f *Feed) ClearAll(ctx context.Context) {
	f.mu.Lock()
	f.items = f.items[:0]
	f.unread = 0
	f.mu.Unlock()

	if _, err := f.service.ClearAll(ctx, f.driverID); err != nil {
		f.logg.Warn(ctx, "remote clear failed: "+err.Error())
	}
}
