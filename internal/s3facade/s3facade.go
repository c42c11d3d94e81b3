// Package s3facade exposes a single open container over a minimal,
// S3-shaped HTTP surface: GET/PUT/DELETE /{container}/{key+} map
// directly onto the façade's Read/Write/Delete, and a bare
// GET /{container}/ lists entries. Routing uses
// github.com/gorilla/mux for its path-capture semantics ({key+} must
// greedily consume slashes), the way antonellof-VittoriaDB's HTTP
// surface routes multi-segment resource paths.
//
// This is an interface-level collaborator per the spec: authentication,
// multipart upload, versioning, and bucket policies are all out of
// scope. One container is bound to one mux.Router; multi-bucket
// dispatch is left to whatever embeds this package.
package s3facade

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/gorilla/mux"
)

// Facade binds one container to an HTTP handler.
type Facade struct {
	c *cartridge.Cartridge
}

// New builds a Facade fronting c.
func New(c *cartridge.Cartridge) *Facade {
	return &Facade{c: c}
}

// Router returns a *mux.Router implementing the S3-shaped surface.
func (f *Facade) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/{container}/", f.handleList).Methods(http.MethodGet)
	r.HandleFunc("/{container}/{key:.+}", f.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/{container}/{key:.+}", f.handlePut).Methods(http.MethodPut)
	r.HandleFunc("/{container}/{key:.+}", f.handleDelete).Methods(http.MethodDelete)
	return r
}

func keyPath(r *http.Request) string {
	return "/" + mux.Vars(r)["key"]
}

func (f *Facade) handleGet(w http.ResponseWriter, r *http.Request) {
	data, err := f.c.Read(keyPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (f *Facade) handlePut(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := f.c.Write(keyPath(r), data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (f *Facade) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := f.c.Delete(keyPath(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listEntry struct {
	Key   string `json:"key"`
	IsDir bool   `json:"is_dir"`
	Size  *int64 `json:"size,omitempty"`
}

func (f *Facade) handleList(w http.ResponseWriter, r *http.Request) {
	entries := f.c.ListEntries("")
	out := make([]listEntry, len(entries))
	for i, e := range entries {
		out[i] = listEntry{Key: e.Path, IsDir: e.IsDir, Size: e.Size}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func writeError(w http.ResponseWriter, err error) {
	switch cartridgeerr.Of(err) {
	case cartridgeerr.NotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case cartridgeerr.AccessDenied:
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
