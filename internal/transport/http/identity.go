package http

import "net/http"

// memberHeader carries the authenticated member's id. Authentication
// itself happens upstream; the API trusts the header it is handed.
const memberHeader = "X-Member-ID"

func memberID(r *http.Request) (string, bool) {
	id := r.Header.Get(memberHeader)
	return id, id != ""
}
