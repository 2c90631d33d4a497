// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// Dashboard API handlers answer in JSON with an {"error": msg} body on failure.
// Public pages and exports answer in HTML.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, sites)
//	httputil.WriteBadRequest(w, "All fields are required")
//	httputil.WriteForbidden(w, "Not authorized")
//	httputil.WriteHTML(w, http.StatusOK, page)
//	httputil.WriteHTMLAttachment(w, page, "index.html")
//
// # Request Parsing
//
//	var req CreateSiteRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	id := httputil.PathParam(r, "id")
package httputil
