package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpHdlr "docqa/handler/http"
	"docqa/src/log"
	"docqa/src/provider"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Index the document and serve the query API",
	Long: `The serve command indexes the configured document once and then starts an HTTP
server answering POST /api/query.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// the credential is checked before any indexing
	s, err := loadSettings(viper.GetViper(), true)
	if err != nil {
		return err
	}

	p, err := provider.New(ctx, s.Provider)
	if err != nil {
		return err
	}

	app, err := bootstrap(ctx, s, p, os.Stderr)
	if err != nil {
		return err
	}

	return serve(app)
}

func newServer(app *application) *http.Server {
	if !app.settings.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httpHdlr.NewHandler(app.answerer,
		httpHdlr.IndexInfo{Chunks: app.index.Len(), Backend: app.index.Backend()},
		httpHdlr.Options{RateLimit: app.settings.Server.RateLimit, RateBurst: app.settings.Server.RateBurst},
	)
	r := httpHdlr.NewRouter(handler, log.Logger())

	return &http.Server{
		Addr:    ":" + app.settings.Server.Port,
		Handler: otelhttp.NewHandler(r, "docqa"),
	}
}

func serve(app *application) error {
	srv := newServer(app)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), app.settings.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
		return err
	}

	log.Info("Server exited")
	return nil
}
