package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nao1215/inchrelay/internal/config"
	"github.com/nao1215/inchrelay/internal/monitor"
	"github.com/nao1215/inchrelay/internal/worldid"
	"github.com/nao1215/inchrelay/pkg/httpclient"
	"github.com/nao1215/inchrelay/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// ProofVerifier はWorldIDの証明を検証する。
type ProofVerifier interface {
	VerifyProof(ctx context.Context, proof worldid.Proof) (bool, error)
}

// Server はリレーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// logger は構造化ロガー。
	logger zerolog.Logger
	// oneInch はAuthorizationヘッダーを付与する1inch API用クライアント。
	oneInch *httpclient.Client
	// verifier はWorldIDの証明検証。
	verifier ProofVerifier
	// metrics はPrometheusメトリクス。
	metrics *monitor.Metrics
	// maxBodyBytes はリクエストボディの上限。
	maxBodyBytes int64
}

// options はNewServerの任意設定。
type options struct {
	transport http.RoundTripper
	verifier  ProofVerifier
}

// Option はNewServerの任意設定を変更する関数。
type Option func(*options)

// WithTransport は外部API呼び出しに使うhttp.RoundTripperを差し替える。
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithVerifier は証明の検証処理を差し替える。
func WithVerifier(v ProofVerifier) Option {
	return func(o *options) {
		o.verifier = v
	}
}

// NewServer は新しいリレーサーバーを生成する。
// cfgは生成後に変更してはならない。
func NewServer(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	clientOpts := []httpclient.Option{httpclient.WithTimeout(cfg.UpstreamTimeout)}
	if o.transport != nil {
		clientOpts = append(clientOpts, httpclient.WithTransport(o.transport))
	}

	oneInch := httpclient.New(append(clientOpts,
		httpclient.WithHeader("Authorization", cfg.OneInchAuthorization))...)

	verifier := o.verifier
	if verifier == nil {
		verifier = worldid.NewVerifier(httpclient.New(clientOpts...),
			cfg.WorldIDBaseURL, cfg.WorldIDAppID, cfg.WorldIDAction)
	}

	metrics := monitor.New("relay")

	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, errors.Wrap(err, "failed to set trusted proxies")
	}
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(metrics.TrackMetrics())

	s := &Server{
		router:       router,
		port:         cfg.Port,
		logger:       logger,
		oneInch:      oneInch,
		verifier:     verifier,
		metrics:      metrics,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	s.setupRoutes()

	return s, nil
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "failed to start HTTP server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "failed to shut down HTTP server")
		}
		return nil
	}
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	// 1inch APIへのリレー（urlの検証必須）
	s.router.GET("/", requireTargetURL(), s.handleRelayGet())
	s.router.POST("/", requireTargetURL(), s.handleRelayPost())

	// WorldIDの証明検証
	s.router.POST("/worldId", s.handleVerifyProof())

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "relay"})
	})

	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}
