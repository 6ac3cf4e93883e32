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

	"github.com/geeksondemand/chatbot/internal/config"
	"github.com/geeksondemand/chatbot/internal/handler"
	"github.com/geeksondemand/chatbot/internal/handler/ws"
	"github.com/geeksondemand/chatbot/internal/service/agent"
	"github.com/geeksondemand/chatbot/internal/service/extract"
	"github.com/geeksondemand/chatbot/internal/service/match"
	"github.com/geeksondemand/chatbot/internal/service/session"
	"github.com/geeksondemand/chatbot/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Stores: MongoDB when configured, in-memory otherwise.
	var (
		transcripts store.TranscriptStore
		issues      store.IssueStore
		dir         store.DirectoryStore
	)
	if cfg.Mongo.Enabled() {
		mongoStore, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			log.Fatalf("failed to connect to mongodb: %v", err)
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoStore.Close(disconnectCtx)
		}()
		transcripts, issues, dir = mongoStore, mongoStore, mongoStore
		log.Println("MongoDB store initialized successfully")
	} else {
		log.Println("warning: MONGODB_URI not set, using in-memory stores (nothing survives a restart)")
		transcripts = store.NewMemoryTranscriptStore()
		issues = store.NewMemoryIssueStore()
		dir = store.NewMemoryDirectory(nil, nil, nil, nil)
	}

	// LLM-backed services.
	var (
		dialogue  ws.DialogueAgent
		extractor ws.Extractor
	)
	if cfg.AI.Enabled() {
		agentSvc, err := agent.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize dialogue agent: %v", err)
		} else {
			dialogue = agentSvc
		}

		extractSvc, err := extract.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize transcript extractor: %v", err)
		} else {
			extractor = extractSvc
		}
		log.Println("AI services initialized")
	} else {
		log.Println("model credentials not configured, chat will answer with an unavailability notice")
	}

	matcher := match.NewService(dir)
	sessions := session.NewTracker(session.NewMemoryStore())

	wsHandler := ws.New(transcripts, issues, dialogue, extractor, matcher, sessions, cfg.Server.SessionIdleTimeout)
	router := handler.NewRouter(wsHandler, transcripts, dir)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("geek support chatbot listening on %s", serverCfg.Addr)
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
