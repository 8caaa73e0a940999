package dashboard

import (
	_ "embed"
	"net/http"
)

//go:embed ui.html
var uiPage []byte

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(uiPage)
}
