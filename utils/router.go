package utils

import "github.com/gorilla/mux"

// NewRouter constructs the application router.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.SkipClean(true)
	return r
}
