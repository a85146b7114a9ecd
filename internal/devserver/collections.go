package devserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// serveNamespace maps the rest of the path onto Resources:
//
//	GET/POST   /{ns}/{coll}                 list / create
//	GET/PUT/PATCH/DELETE /{ns}/{coll}/{id}  item
//	PUT/PATCH  /{ns}/{coll}/{id}/{field}    merge body (status, role, ...)
//	PUT        /{ns}/{coll}/{id}/read       read marker (also mark-as-read)
//	PUT        /{ns}/{coll}/read-all
//	GET        .../stats, .../report, .../receipt
//	GET/POST   /{ns}/{coll}/{id}/{sub}      nested collection keyed by parentId
func (s *Server) serveNamespace(ns string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		segs, err := splitPath(chi.URLParam(r, "*"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid path")
			return
		}

		if len(segs) >= 2 {
			coll := joinPath(ns, segs[:1])
			if _, ok := s.data.Get(coll, segs[1]); ok {
				s.serveItem(w, r, coll, segs[1], segs[2:])
				return
			}
		}

		name := joinPath(ns, segs)
		last, parent := "", ns
		if len(segs) > 0 {
			last = segs[len(segs)-1]
			parent = joinPath(ns, segs[:len(segs)-1])
		}

		switch {
		case r.Method == http.MethodGet && (last == "report" || last == "receipt"):
			writeBlob(w, r)
		case r.Method == http.MethodGet && last == "stats":
			writeJSON(w, http.StatusOK, s.data.Stats(parent))
		case r.Method == http.MethodPut && last == "read-all":
			n := s.data.MarkAllRead(parent)
			writeJSON(w, http.StatusOK, map[string]int{"updated": n})
		case r.Method == http.MethodGet && last == "overdue":
			writeJSON(w, http.StatusOK, s.data.List(parent, url.Values{"status": {"overdue"}}))
		case last == "profile" || last == "settings":
			s.serveSingleton(w, r, name)
		case len(segs) == 2 && last != "logs" && r.Method != http.MethodPost:
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s not found", singular(segs[0])))
		case r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, s.data.List(name, r.URL.Query()))
		case r.Method == http.MethodPost:
			s.create(w, r, name, nil)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func (s *Server) serveItem(w http.ResponseWriter, r *http.Request, coll, id string, rest []string) {
	logger := log.Ctx(r.Context())

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			rec, _ := s.data.Get(coll, id)
			writeJSON(w, http.StatusOK, rec)
		case http.MethodPut, http.MethodPatch:
			s.merge(w, r, coll, id)
		case http.MethodDelete:
			s.data.Delete(coll, id)
			logger.Info().Str("collection", coll).Str("id", id).Msg("record deleted")
			writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted successfully"})
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := rest[len(rest)-1]
	switch {
	case (action == "read" || action == "mark-as-read") && r.Method != http.MethodGet:
		rec, _ := s.data.Merge(coll, id, Record{"read": true})
		writeJSON(w, http.StatusOK, rec)
	case r.Method == http.MethodGet && (action == "receipt" || action == "report"):
		writeBlob(w, r)
	case len(rest) == 1 && (r.Method == http.MethodPut || r.Method == http.MethodPatch):
		s.merge(w, r, coll, id)
	case r.Method == http.MethodGet:
		filter := r.URL.Query()
		filter.Set("parentId", id)
		writeJSON(w, http.StatusOK, s.data.List(coll+"/"+strings.Join(rest, "/"), filter))
	case r.Method == http.MethodPost:
		s.create(w, r, coll+"/"+strings.Join(rest, "/"), Record{"parentId": id})
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, name string, extra Record) {
	var in Record
	if err := decodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in == nil {
		in = Record{}
	}
	for k, v := range extra {
		in[k] = v
	}
	if id, ok := CallerIdentity(r.Context()); ok {
		if _, set := in["createdBy"]; !set {
			in["createdBy"] = id.UserID
		}
	}

	rec := s.data.Insert(name, in)
	log.Ctx(r.Context()).Info().Str("collection", name).Interface("id", rec["id"]).Msg("record created")
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) merge(w http.ResponseWriter, r *http.Request, coll, id string) {
	var patch Record
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rec, ok := s.data.Merge(coll, id, patch)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) serveSingleton(w http.ResponseWriter, r *http.Request, name string) {
	switch r.Method {
	case http.MethodGet:
		if rec, ok := s.data.Singleton(name); ok {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		if strings.HasSuffix(name, "profile") {
			s.Me(w, r)
			return
		}
		writeJSON(w, http.StatusOK, Record{})
	case http.MethodPut, http.MethodPatch:
		var patch Record
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		writeJSON(w, http.StatusOK, s.data.SetSingleton(name, patch))
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// ListUsers handles GET /api/admin/users[?role=]
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.users.List(r.URL.Query().Get("role")))
}

// UpdateUserRole handles PUT /api/admin/users/{id}/role
func (s *Server) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := s.users.SetRole(chi.URLParam(r, "id"), in.Role)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, ErrUnknownUserID) {
			code = http.StatusNotFound
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// writeBlob answers report and receipt downloads with a placeholder PDF
func writeBlob(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%%PDF-1.4\n%% %s\n", r.URL.Path)
}

func splitPath(p string) ([]string, error) {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		dec, err := url.PathUnescape(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, dec)
	}
	return out, nil
}

func joinPath(ns string, segs []string) string {
	if len(segs) == 0 {
		return ns
	}
	return ns + "/" + strings.Join(segs, "/")
}

func singular(coll string) string {
	s := strings.TrimSuffix(coll, "s")
	if s == "" {
		return "Record"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
