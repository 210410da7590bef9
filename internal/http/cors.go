package httpx

import "net/http"

// withCORS reflects allowed origins with credentials enabled, since the
// session cookie is cross-site. An empty allow-list reflects any origin.
func (r *Router) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		if origin != "" && r.originAllowed(origin) {
			headers := w.Header()
			headers.Set("Access-Control-Allow-Origin", origin)
			headers.Set("Access-Control-Allow-Credentials", "true")
			headers.Add("Vary", "Origin")
			if req.Method == http.MethodOptions {
				headers.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				requested := req.Header.Get("Access-Control-Request-Headers")
				if requested == "" {
					requested = "Content-Type"
				}
				headers.Set("Access-Control-Allow-Headers", requested)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) originAllowed(origin string) bool {
	if len(r.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range r.allowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}
