package handler

import "net/http"

// HandleHealth reports that the process is serving. It does not touch the
// store.
//
// HTTP: GET /
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "snapgram API is running",
	})
}
