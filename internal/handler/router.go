package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/geeksondemand/chatbot/internal/handler/chat"
	"github.com/geeksondemand/chatbot/internal/handler/dbquery"
	"github.com/geeksondemand/chatbot/internal/handler/ws"
	middlewarePkg "github.com/geeksondemand/chatbot/internal/middleware"
	"github.com/geeksondemand/chatbot/internal/store"
	"github.com/geeksondemand/chatbot/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(wsHandler *ws.Handler, transcripts store.TranscriptStore, dir store.DirectoryStore) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Hello World!"})
	})

	// The websocket channel lives at /chat; the transcript REST reads sit
	// underneath it.
	wsHandler.RegisterRoutes(r)
	chatHandler.New(transcripts).RegisterRoutes(r)

	r.Route("/db_query", func(api chi.Router) {
		dbquery.New(dir).RegisterRoutes(api)
	})

	return r
}
