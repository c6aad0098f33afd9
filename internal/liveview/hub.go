// Package liveview renders a browser-based live table of worker progress,
// replacing the original ncurses terminal table with a websocket push to a
// page the operator can leave open in a tab. It is read-only: every value
// it displays comes from a worker's lock-free Snapshot, or from events a
// worker emits best-effort, so the view can never contend with or delay
// the search's coarse mutex.
package liveview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"github.com/niceyeti/mapcore/internal/events"
	"github.com/niceyeti/mapcore/pkg/worker"
)

const (
	writeWait      = 1 * time.Second
	pubResolution  = 250 * time.Millisecond
	pingResolution = 500 * time.Millisecond
	pongWait       = pingResolution * 4

	readDeadline     = time.Second
	writeDeadline    = time.Second
	closeGracePeriod = 10 * time.Second

	// recentEventBacklog bounds how many recent events accompany each
	// Update; older ones are simply not carried forward, not buffered.
	recentEventBacklog = 20
)

// Update is one push to a connected browser: the current snapshot of
// every worker, plus whatever events (if any) arrived since the last tick.
type Update struct {
	Snapshots []worker.Snapshot
	Recent    []events.Event
}

// Hub serves the live-status page and its websocket feed.
type Hub struct {
	workers    []*worker.Worker
	eventChans []<-chan events.Event
	router     *mux.Router
}

// NewHub builds a Hub over workers, optionally fed by eventChans (one
// channel per worker; pass nil if events are disabled). The caller is
// responsible for calling Serve to actually listen.
func NewHub(workers []*worker.Worker, eventChans []<-chan events.Event) *Hub {
	h := &Hub{workers: workers, eventChans: eventChans}
	h.router = mux.NewRouter()
	h.router.HandleFunc("/", h.serveIndex).Methods(http.MethodGet)
	h.router.HandleFunc("/ws", h.serveWS).Methods(http.MethodGet)
	return h
}

// Serve listens on addr until ctx is canceled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.router}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeGracePeriod)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return group.Wait()
}

func (h *Hub) serveIndex(w http.ResponseWriter, r *http.Request) {
	if err := indexTemplate.Execute(w, nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var upgrader = websocket.Upgrader{}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	updates := h.pump(r.Context())
	cli := &client[Update]{
		updates: updates,
		ws:      newWebSocket(ws),
		rootCtx: r.Context(),
	}
	_ = cli.sync()
}

// pump produces an Update on every snapshot tick, folding in whatever
// events arrived since the previous tick. The merged event stream is a
// real fan-in of one channel per worker into one, since the number of
// workers is only known at run time.
func (h *Hub) pump(ctx context.Context) <-chan Update {
	out := make(chan Update)

	var merged <-chan events.Event
	if len(h.eventChans) > 0 {
		merged = channerics.Merge(ctx.Done(), h.eventChans...)
	}

	go func() {
		defer close(out)
		ticker := channerics.NewTicker(ctx.Done(), pubResolution)
		recent := make([]events.Event, 0, recentEventBacklog)

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-merged:
				if !ok {
					merged = nil
					continue
				}
				recent = append(recent, e)
				if len(recent) > recentEventBacklog {
					recent = recent[len(recent)-recentEventBacklog:]
				}
			case <-ticker:
				update := Update{Snapshots: snapshotAll(h.workers), Recent: recent}
				recent = make([]events.Event, 0, recentEventBacklog)
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func snapshotAll(workers []*worker.Worker) []worker.Snapshot {
	out := make([]worker.Snapshot, len(workers))
	for i, w := range workers {
		out[i] = w.Snapshot()
	}
	return out
}

// client publishes a unidirectional stream of idempotent updates to one
// connected browser over websocket. Updates arriving faster than
// pubResolution are coalesced, since only the latest fully describes
// current state.
type client[T any] struct {
	updates <-chan T
	ws      *websock
	rootCtx context.Context
}

func (cli *client[T]) sync() error {
	group, groupCtx := errgroup.WithContext(cli.rootCtx)

	group.Go(func() error { return cli.readMessages(groupCtx) })
	group.Go(func() error { return cli.pingPong(groupCtx) })
	group.Go(func() error { return cli.publish(groupCtx) })

	return group.Wait()
}

var errPongDeadlineExceeded = errors.New("liveview: client disconnect, pong deadline exceeded")

func (cli *client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		pong <- struct{}{}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return errPongDeadlineExceeded
			}
			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *client[T]) ping(ctx context.Context) error {
	return cli.ws.Write(ctx, func(ws *websocket.Conn) (err error) {
		if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			if isError(err) {
				err = fmt.Errorf("liveview: ping failed: %w", err)
			}
		}
		return
	})
}

func (cli *client[T]) readMessages(ctx context.Context) error {
	for {
		err := cli.ws.Read(ctx, func(ws *websocket.Conn) (readErr error) {
			_, _, readErr = ws.ReadMessage()
			return
		})
		if err != nil {
			if isClosure(err) {
				return nil
			}
			return err
		}
	}
}

func (cli *client[T]) publish(ctx context.Context) error {
	lastSync := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			if !ok {
				return nil
			}
			if time.Since(lastSync) < pubResolution {
				break
			}
			lastSync = time.Now()

			err := cli.ws.Write(ctx, func(ws *websocket.Conn) (writeErr error) {
				if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
					return fmt.Errorf("liveview: failed to set deadline: %w", writeErr)
				}
				if writeErr = ws.WriteJSON(update); writeErr != nil && isError(writeErr) {
					writeErr = fmt.Errorf("liveview: publish failed: %w", writeErr)
				}
				return
			})
			if err != nil {
				return err
			}
		}
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// websock serializes reads and writes to one websocket connection, whose
// requirement is at most one concurrent reader and one concurrent writer.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

func (sock *websock) Conn() *websocket.Conn { return sock.ws }

func (sock *websock) Read(ctx context.Context, readFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	case <-time.After(readDeadline):
		return errSockCongestion
	}
}

func (sock *websock) Write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return errSockCongestion
	}
}

var errSockCongestion = errors.New("liveview: too many waiters on the socket")
