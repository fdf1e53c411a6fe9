package shared

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ParamID parses a positive integer chi URL parameter.
func ParamID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// FormBool interprets an HTML checkbox value.
func FormBool(v string) bool {
	switch v {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
