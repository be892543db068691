package web

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"assocal/internal/calview"
	"assocal/internal/config"
	"assocal/internal/filter"
	"assocal/internal/loader"
	appLog "assocal/internal/log"
	"assocal/internal/modal"
	"assocal/internal/model"
	"assocal/internal/redirect"
	"assocal/internal/widget"
)

// Server serves the calendar pages, their per-page session API and the
// converted data files.
type Server struct {
	cfg   *config.Config
	debug bool
	mux   *http.ServeMux
	loc   *time.Location
	page  *template.Template

	sessions *sessionStore

	// source builds the data source a page load reads from.
	source func() loader.Source
}

// embeddedStatic contains the page template, script and stylesheet.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, debug bool) *Server {
	s := &Server{
		cfg:      cfg,
		debug:    debug,
		mux:      http.NewServeMux(),
		loc:      resolveLocationOrLocal(cfg.Timezone),
		page:     template.Must(template.ParseFS(embeddedStatic, "static/calendrier.html.tmpl")),
		sessions: newSessionStore(),
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}
	s.source = func() loader.Source {
		c := loader.New(s.cfg.BaseURL(), httpClient, s.loc)
		// Data served by this process sits behind the same basic auth.
		if s.cfg.SourceBaseURL == "" && s.basicAuthEnabled() {
			c.Username = s.cfg.BasicAuth.Username
			c.Password = s.cfg.BasicAuth.Password
		}
		return c
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := redirect.Middleware(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// PruneSessions drops page sessions idle for longer than the configured TTL.
func (s *Server) PruneSessions() int {
	ttl := time.Duration(s.cfg.SessionTTLMinutes) * time.Minute
	n := s.sessions.prune(ttl)
	if n > 0 {
		appLog.Info("pruned idle page sessions", "count", n, "remaining", s.sessions.len())
	}
	return n
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials mean auth is off.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Assocal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	s.mux.HandleFunc("GET /pc/calendrier.html", s.handlePage("pc"))
	s.mux.HandleFunc("GET /mobile/calendrier.html", s.handlePage("mobile"))
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, redirect.DesktopPage, http.StatusFound)
	})

	// Converted data, read by the loader of every page session.
	s.mux.HandleFunc("GET /events.json", s.handleData("events.json"))
	s.mux.HandleFunc("GET /assoc-colors.json", s.handleData("assoc-colors.json"))
	s.mux.Handle("GET /images/", http.StripPrefix("/images/", http.FileServer(http.Dir(s.cfg.ImagesDir))))
	s.mux.Handle("GET /static/", s.staticFileServer())

	s.mux.HandleFunc("GET /api/s/{sid}/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/s/{sid}/state", s.handleState)
	s.mux.HandleFunc("POST /api/s/{sid}/filters/{assoc}", s.handleFilter)
	s.mux.HandleFunc("POST /api/s/{sid}/events/{index}/open", s.handleOpen)
	s.mux.HandleFunc("POST /api/s/{sid}/modal/close", s.handleClose)
	s.mux.HandleFunc("POST /api/s/{sid}/modal/key", s.handleKey)
	s.mux.HandleFunc("POST /api/s/{sid}/pageshow", s.handlePageShow)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last page snapshot written by -snapshot.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.PreviewPath)
}

// handleData serves a converted JSON file from the public directory.
// Responses are never cached; the widget must always see the latest run.
func (s *Server) handleData(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		http.ServeFile(w, r, filepath.Join(s.cfg.PublicDir, name))
	}
}

// staticFileServer serves the embedded page assets under /static/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// pageData feeds calendrier.html.tmpl.
type pageData struct {
	Variant    string
	SessionID  string
	LoadFailed bool
	LoadError  string
	Filters    []filter.Toggle
	Engine     string
	IDs        modal.ElementIDs
	Themed     bool
	Split      bool
}

// handlePage runs the loading sequence for a fresh page session and
// renders the page. A failed load renders the page without filters or
// calendar; nothing is retried.
func (s *Server) handlePage(variant string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := s.variantOptions(variant)
		data := pageData{
			Variant: variant,
			IDs:     opts.Modal.IDs,
			Themed:  opts.Modal.Themed,
			Split:   opts.Modal.SplitDateTime,
		}

		engine := &pageEngine{}
		renderer := &pageRenderer{}
		wg, err := widget.Load(r.Context(), s.source(), engine, renderer, opts)
		if err != nil {
			data.LoadFailed = true
			if s.debug {
				data.LoadError = err.Error()
			}
		} else {
			// Initial close is implicit in the rendered markup.
			renderer.drain()
			sess := s.sessions.add(variant, wg, engine, renderer)
			data.SessionID = sess.id
			data.Filters = wg.Filters()

			cfg, err := json.Marshal(engine.cfg)
			if err != nil {
				appLog.Error("failed to encode engine config", err)
				writeError(w, http.StatusInternalServerError, "failed to render page")
				return
			}
			data.Engine = string(cfg)
			appLog.Debug("page session created", "session", sess.id, "variant", variant, "events", wg.Len())
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := s.page.Execute(w, data); err != nil {
			appLog.Error("failed to render page", err, "variant", variant)
		}
	}
}

// variantOptions maps a configured variant onto widget options.
func (s *Server) variantOptions(variant string) widget.Options {
	vc, ok := s.cfg.Variants[variant]
	if !ok {
		vc = config.DefaultVariants()["pc"]
	}

	mo := modal.DefaultOptions()
	mo.Themed = vc.Themed
	mo.SplitDateTime = vc.SplitDateTime
	mo.LightenPercent = vc.LightenPercent
	mo.HeaderPercent = vc.HeaderPercent

	engine := calview.DefaultEngineConfig()
	if vc.Compact {
		engine = calview.CompactEngineConfig()
	}

	return widget.Options{
		FallbackColor: s.cfg.FallbackColor,
		Engine:        engine,
		Modal:         mo,
		Formatter:     modal.DefaultFormatter(s.loc),
	}
}

// eventDTO is the engine's event object shape.
type eventDTO struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Start           string     `json:"start"`
	End             string     `json:"end,omitempty"`
	AllDay          bool       `json:"allDay"`
	BackgroundColor string     `json:"backgroundColor"`
	BorderColor     string     `json:"borderColor"`
	ExtendedProps   eventProps `json:"extendedProps"`
}

type eventProps struct {
	Index       int    `json:"index"`
	Association string `json:"association"`
}

// sessionResponse is returned by every state-changing session call.
type sessionResponse struct {
	Refetch  bool            `json:"refetch"`
	Filters  []filter.Toggle `json:"filters"`
	Modal    modal.State     `json:"modal"`
	Commands []command       `json:"commands"`
}

func (s *Server) respond(w http.ResponseWriter, sess *session) {
	writeJSON(w, http.StatusOK, sessionResponse{
		Refetch:  sess.engine.takeRefetch(),
		Filters:  sess.widget.Filters(),
		Modal:    sess.widget.Modal(),
		Commands: sess.renderer.drain(),
	})
}

// handleEvents is the engine's data source:
//
// GET /api/s/{sid}/events?start=<ts>&end=<ts>
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var c calview.Criteria
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"start", &c.Start}, {"end", &c.End}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, _, err := model.ParseTimestamp(v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+p.name)
			return
		}
		*p.dst = t
	}

	var out []eventDTO
	found := s.sessions.with(r.PathValue("sid"), func(sess *session) {
		matches := sess.widget.Events(c)
		out = make([]eventDTO, 0, len(matches))
		for _, m := range matches {
			rec := m.Event.Record()
			end := rec.End
			// events.json holds the last day of an all-day event; the
			// engine wants the day after.
			if m.Event.AllDay && m.Event.End != nil {
				end = model.FormatTimestamp(m.Event.End.AddDate(0, 0, 1), true)
			}
			out = append(out, eventDTO{
				ID:              strconv.Itoa(m.Index),
				Title:           rec.Title,
				Start:           rec.Start,
				End:             end,
				AllDay:          rec.AllDay,
				BackgroundColor: m.Event.BackgroundColor,
				BorderColor:     m.Event.BorderColor,
				ExtendedProps:   eventProps{Index: m.Index, Association: m.Event.Association},
			})
		}
	})
	if !found {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) error { return nil })
}

// handleFilter sets a filter when the body carries {"selected": bool} and
// toggles it otherwise.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Selected *bool `json:"selected"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	assoc := r.PathValue("assoc")
	s.withSession(w, r, func(sess *session) error {
		if body.Selected != nil {
			return sess.widget.SetFilter(assoc, *body.Selected)
		}
		_, err := sess.widget.Toggle(assoc)
		return err
	})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event index")
		return
	}
	s.withSession(w, r, func(sess *session) error {
		_, err := sess.widget.Click(index)
		return err
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) error {
		sess.widget.Close()
		return nil
	})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key string `json:"key"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.withSession(w, r, func(sess *session) error {
		sess.widget.Key(body.Key)
		return nil
	})
}

// handlePageShow restores the closed modal when the page comes back from
// the history cache.
func (s *Server) handlePageShow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Persisted bool `json:"persisted"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.withSession(w, r, func(sess *session) error {
		if body.Persisted {
			sess.widget.Restore()
		}
		return nil
	})
}

// withSession runs fn on the request's session and writes the session
// response, or the matching error.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session) error) {
	var fnErr error
	found := s.sessions.with(r.PathValue("sid"), func(sess *session) {
		if fnErr = fn(sess); fnErr == nil {
			s.respond(w, sess)
		}
	})

	switch {
	case !found:
		writeError(w, http.StatusNotFound, "unknown session")
	case errors.Is(fnErr, filter.ErrUnknownAssociation), errors.Is(fnErr, widget.ErrEventIndex):
		writeError(w, http.StatusNotFound, fnErr.Error())
	case fnErr != nil:
		appLog.Error("session request failed", fnErr, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "request failed")
	}
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
