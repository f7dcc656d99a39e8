package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lumenchat/lumen/backend/internal/config"
	"github.com/lumenchat/lumen/backend/internal/handler"
	"github.com/lumenchat/lumen/backend/internal/handler/conversation"
	"github.com/lumenchat/lumen/backend/internal/handler/ws"
	"github.com/lumenchat/lumen/backend/internal/service/auth"
	"github.com/lumenchat/lumen/backend/internal/service/generation"
	"github.com/lumenchat/lumen/backend/internal/service/prompt"
	"github.com/lumenchat/lumen/backend/internal/service/retrieval"
	"github.com/lumenchat/lumen/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.TokenTTL, st)

	var retriever retrieval.Retriever
	if cfg.Retrieval.Enabled() {
		weaviateRetriever, err := retrieval.NewWeaviateRetriever(cfg.Retrieval.URL, cfg.Retrieval.Class, cfg.Retrieval.TopK)
		if err != nil {
			log.Printf("warning: failed to initialize retrieval: %v", err)
			log.Println("continuing without context retrieval")
		} else {
			retriever = weaviateRetriever
			log.Println("retrieval service initialized successfully")
		}
	} else {
		log.Println("retrieval endpoint not configured, prompts will not be augmented")
	}

	if !cfg.AI.Enabled() {
		log.Fatal("generation model not configured: set ARK_MODEL and ARK_API_KEY (or the AK/SK pair)")
	}
	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}
	generator, err := generation.NewService(ctx, chatModel)
	if err != nil {
		log.Fatalf("failed to initialize generation service: %v", err)
	}

	augmentor := prompt.NewAugmentor(retriever)

	convHandler := conversation.New(st, verifier)
	wsHandler := ws.New(verifier, st, augmentor, generator, cfg.Auth.HandshakeTimeout)

	router := handler.NewRouter(convHandler, wsHandler)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Lumen backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
