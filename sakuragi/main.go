// Package sakuragi serves a status page listing automated trains and triggers.
package sakuragi

import (
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"
	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/notify"
	"nyiyui.ca/hato/unten/tal/train"
	"nyiyui.ca/hato/unten/tal/trigger"
	"nyiyui.ca/hato/unten/world"
)

//go:embed index.html
var templates embed.FS

type Conf struct {
	Snapshots *notify.Multiplexer[train.Snapshot]
	Triggers  *notify.Multiplexer[[]trigger.Snapshot]
}

type Server struct {
	sm *http.ServeMux
	t  *template.Template

	lock     sync.Mutex
	latest   train.Snapshot
	triggers []trigger.Snapshot
	updated  time.Time
}

func NewServer(conf Conf) *Server {
	s := &Server{
		sm: http.NewServeMux(),
	}
	s.t = template.Must(template.New("index").Funcs(sprig.FuncMap()).Funcs(template.FuncMap{
		"units": func(ids []unten.UnitID) []string {
			res := make([]string, len(ids))
			for i, id := range ids {
				res[i] = id.String()
			}
			return res
		},
		"safeCSS": func(s string) template.CSS {
			return template.CSS(s)
		},
		"throttleClass": func(t world.Throttle) string {
			switch {
			case t > 0:
				return "fwd"
			case t < 0:
				return "rev"
			default:
				return "zero"
			}
		},
	}).ParseFS(templates, "*.html"))
	s.sm.HandleFunc("/", s.handleIndex)
	go func() {
		ch := make(chan train.Snapshot)
		conf.Snapshots.Subscribe("sakuragi", ch)
		defer conf.Snapshots.Unsubscribe(ch)
		for snap := range ch {
			s.lock.Lock()
			s.latest = snap
			s.updated = time.Now()
			s.lock.Unlock()
		}
	}()
	if conf.Triggers != nil {
		go func() {
			ch := make(chan []trigger.Snapshot)
			conf.Triggers.Subscribe("sakuragi", ch)
			defer conf.Triggers.Unsubscribe(ch)
			for ts := range ch {
				s.lock.Lock()
				s.triggers = ts
				s.lock.Unlock()
			}
		}()
	}
	return s
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.lock.Lock()
	data := map[string]interface{}{
		"snap":     s.latest,
		"triggers": s.triggers,
		"updated":  s.updated,
		"now":      time.Now().Format("15:04:05"),
	}
	s.lock.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.t.ExecuteTemplate(w, "index", data)
	if err != nil {
		zap.S().Errorw("rendering index failed", "err", err)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.sm.ServeHTTP(w, r)
}
