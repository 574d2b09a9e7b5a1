package predict

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/thyroid-cli/internal/config"
	"github.com/sells-group/thyroid-cli/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Server answers prediction requests with the active predictor.
type Server struct {
	cfg    config.ServerConfig
	active atomic.Pointer[Predictor]
}

// NewServer returns a server using p until Swap replaces it.
func NewServer(cfg config.ServerConfig, p *Predictor) *Server {
	s := &Server{cfg: cfg}
	s.active.Store(p)
	return s
}

// Swap replaces the active predictor. In-flight requests finish on the
// predictor they started with.
func (s *Server) Swap(p *Predictor) {
	old := s.active.Swap(p)
	fields := []zap.Field{zap.Int("version", p.Version)}
	if old != nil {
		fields = append(fields, zap.Int("previous_version", old.Version))
	}
	zap.L().Info("predict: active model swapped", fields...)
}

// Active returns the predictor serving requests.
func (s *Server) Active() *Predictor {
	return s.active.Load()
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.cfg.RateLimit > 0 {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), max(s.cfg.Burst, 1))))
	}

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Post("/predict", s.handlePredict)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.Int("port", port), zap.Int("model_version", s.Active().Version))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

type indexPage struct {
	Columns    []string
	Prediction string
	Error      string
	Version    int
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderIndex(w, http.StatusOK, indexPage{})
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, page indexPage) {
	page.Columns = model.PatientColumns
	page.Version = s.Active().Version
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, "index.html", page); err != nil {
		zap.L().Error("predict: render index", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	p := s.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"version": p.Version,
		"classes": p.Classes(),
	})
}

type predictResponse struct {
	Prediction string `json:"prediction"`
	Version    int    `json:"version"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	isJSON := false
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mt == "application/json" {
		isJSON = true
	}

	fail := func(status int, err error) {
		zap.L().Warn("predict: request rejected", zap.Int("status", status), zap.Error(err))
		if isJSON {
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		s.renderIndex(w, status, indexPage{Error: err.Error()})
	}

	var rec model.PatientRecord
	if isJSON {
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			fail(http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
			return
		}
	} else {
		var err error
		if rec, err = parseForm(r); err != nil {
			fail(http.StatusBadRequest, err)
			return
		}
	}

	p := s.Active()
	label, err := p.Predict(rec)
	if err != nil {
		fail(http.StatusUnprocessableEntity, err)
		return
	}

	zap.L().Info("predict: prediction served",
		zap.String("prediction", label),
		zap.Int("version", p.Version),
	)
	if isJSON {
		writeJSON(w, http.StatusOK, predictResponse{Prediction: label, Version: p.Version})
		return
	}
	s.renderIndex(w, http.StatusOK, indexPage{Prediction: label})
}

// parseForm reads the 21 patient fields from a submitted form. Numeric
// fields are required.
func parseForm(r *http.Request) (model.PatientRecord, error) {
	if err := r.ParseForm(); err != nil {
		return model.PatientRecord{}, eris.Wrap(err, "invalid form")
	}
	f := r.PostForm
	num := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(f.Get(name), 64)
		if err != nil {
			return 0, eris.Errorf("field %s must be a number", name)
		}
		return v, nil
	}

	rec := model.PatientRecord{
		Sex:                     f.Get("sex"),
		OnThyroxine:             f.Get("on_thyroxine"),
		QueryOnThyroxine:        f.Get("query_on_thyroxine"),
		OnAntithyroidMedication: f.Get("on_antithyroid_medication"),
		Sick:                    f.Get("sick"),
		Pregnant:                f.Get("pregnant"),
		ThyroidSurgery:          f.Get("thyroid_surgery"),
		I131Treatment:           f.Get("I131_treatment"),
		QueryHypothyroid:        f.Get("query_hypothyroid"),
		QueryHyperthyroid:       f.Get("query_hyperthyroid"),
		Lithium:                 f.Get("lithium"),
		Goitre:                  f.Get("goitre"),
		Tumor:                   f.Get("tumor"),
		Hypopituitary:           f.Get("hypopituitary"),
		Psych:                   f.Get("psych"),
		ReferralSource:          f.Get("referral_source"),
	}

	age, err := strconv.Atoi(f.Get("age"))
	if err != nil {
		return model.PatientRecord{}, eris.New("field age must be an integer")
	}
	rec.Age = age
	for _, field := range []struct {
		name string
		dst  *float64
	}{
		{"T3", &rec.T3},
		{"TT4", &rec.TT4},
		{"T4U", &rec.T4U},
		{"FTI", &rec.FTI},
	} {
		if *field.dst, err = num(field.name); err != nil {
			return model.PatientRecord{}, err
		}
	}
	return rec, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
