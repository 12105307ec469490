// Package kujo streams train and trigger snapshots over server-sent events.
package kujo

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	"nyiyui.ca/hato/unten/notify"
	"nyiyui.ca/hato/unten/tal/train"
	"nyiyui.ca/hato/unten/tal/trigger"
)

const (
	StreamSnapshot = "snapshot"
	StreamTriggers = "triggers"
)

type Conf struct {
	Snapshots *notify.Multiplexer[train.Snapshot]
	// Triggers may be nil.
	Triggers *notify.Multiplexer[[]trigger.Snapshot]
}

type Server struct {
	s         *sse.Server
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewServer(conf Conf) *Server {
	s := &Server{
		s:    sse.New(),
		done: make(chan struct{}),
	}
	s.s.AutoReplay = false
	s.s.CreateStream(StreamSnapshot)
	s.wg.Add(1)
	go forward(s, StreamSnapshot, conf.Snapshots)
	if conf.Triggers != nil {
		s.s.CreateStream(StreamTriggers)
		s.wg.Add(1)
		go forward(s, StreamTriggers, conf.Triggers)
	}
	return s
}

func forward[E any](s *Server, stream string, mux *notify.Multiplexer[E]) {
	defer s.wg.Done()
	ch := make(chan E)
	mux.Subscribe("kujo "+stream, ch)
	defer mux.Unsubscribe(ch)
	for {
		var e E
		select {
		case <-s.done:
			return
		case e = <-ch:
		}
		data, err := json.Marshal(e)
		if err != nil {
			zap.S().Errorw("marshal json failed",
				"stream", stream,
				"err", err)
			continue
		}
		s.s.TryPublish(stream, &sse.Event{
			Data: data,
		})
	}
}

// Close stops forwarding snapshots, then stops every stream and disconnects clients.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.s.Close()
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.s.ServeHTTP(w, r)
}
