package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ChaitanyaJx/Trackflix/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	sessionsHandler *handlers.SessionsHandler,
	metadataHandler *handlers.MetadataHandler,
	usersHandler *handlers.UsersHandler,
	libraryHandler *handlers.LibraryHandler,
) {
	api := r.PathPrefix("/api").Subrouter()

	api.Use(corsMiddleware)

	// Sessions: sign-in, lists, search, toggles, ratings
	api.HandleFunc("/sessions", sessionsHandler.Open).Methods(http.MethodPost)
	api.HandleFunc("/sessions", sessionsHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/sessions/{username}", sessionsHandler.Close).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{username}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/sessions/{username}/lists", sessionsHandler.Lists).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{username}/lists", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/sessions/{username}/search", sessionsHandler.Search).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{username}/search", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/sessions/{username}/search/clear", sessionsHandler.ClearSearch).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{username}/search/clear", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/sessions/{username}/watchlist/{imdbID}/toggle", sessionsHandler.ToggleWatchlist).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{username}/watchlist/{imdbID}/toggle", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/sessions/{username}/seen/{imdbID}/toggle", sessionsHandler.ToggleSeen).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{username}/seen/{imdbID}/toggle", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/sessions/{username}/ratings/{imdbID}", sessionsHandler.Rate).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{username}/ratings/{imdbID}", handleOptions).Methods(http.MethodOptions)

	// Direct metadata lookup
	api.HandleFunc("/metadata/{imdbID}", metadataHandler.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/metadata/{imdbID}", metadataHandler.Options).Methods(http.MethodOptions)

	// Stored user records
	api.HandleFunc("/users", usersHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{username}", usersHandler.Check).Methods(http.MethodGet)
	api.HandleFunc("/users/{username}", usersHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/users/{username}", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{username}/backup", usersHandler.Backup).Methods(http.MethodGet)
	api.HandleFunc("/users/{username}/backup", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/users/{username}/restore", usersHandler.Restore).Methods(http.MethodPost)
	api.HandleFunc("/users/{username}/restore", handleOptions).Methods(http.MethodOptions)

	// Local seed file
	api.HandleFunc("/movies", libraryHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/movies", libraryHandler.Put).Methods(http.MethodPut)
	api.HandleFunc("/movies", libraryHandler.Options).Methods(http.MethodOptions)
}
