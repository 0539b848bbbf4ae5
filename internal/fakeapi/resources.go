package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// handleResource serves generic CRUD for any collection path, for example
// /exams, /exams/{id}/tests, /questions or /users. Items are stored as JSON
// objects with a server-assigned "id".
func (s *Server) handleResource(w http.ResponseWriter, r *http.Request, u *User, token string) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, Prefix), "/")
	if path == "" {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	segments := strings.Split(path, "/")

	collection := path
	var id int64
	hasID := false
	if last := segments[len(segments)-1]; len(segments) > 1 {
		if n, err := strconv.ParseInt(last, 10, 64); err == nil {
			collection = strings.Join(segments[:len(segments)-1], "/")
			id, hasID = n, true
		}
	}

	switch {
	case r.Method == http.MethodGet && !hasID:
		s.listResources(w, collection)
	case r.Method == http.MethodPost && !hasID:
		s.createResource(w, r, collection)
	case r.Method == http.MethodGet && hasID:
		s.getResource(w, collection, id)
	case r.Method == http.MethodPut && hasID:
		s.updateResource(w, r, collection, id)
	case r.Method == http.MethodDelete && hasID:
		s.deleteResource(w, collection, id)
	default:
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (s *Server) listResources(w http.ResponseWriter, collection string) {
	s.mu.Lock()
	items := s.resources[collection]
	ids := make([]int64, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, items[id])
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createResource(w http.ResponseWriter, r *http.Request, collection string) {
	var in map[string]any
	if err := decode(r, &in); err != nil || in == nil {
		writeValidation(w, "body", "Input should be a valid dictionary")
		return
	}

	s.mu.Lock()
	s.nextID++
	in["id"] = s.nextID
	data, _ := json.Marshal(in)
	if s.resources[collection] == nil {
		s.resources[collection] = make(map[int64]json.RawMessage)
	}
	s.resources[collection][s.nextID] = data
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(data)
}

func (s *Server) getResource(w http.ResponseWriter, collection string, id int64) {
	s.mu.Lock()
	data, ok := s.resources[collection][id]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Item not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) updateResource(w http.ResponseWriter, r *http.Request, collection string, id int64) {
	var patch map[string]any
	if err := decode(r, &patch); err != nil {
		writeValidation(w, "body", "Input should be a valid dictionary")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.resources[collection][id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Item not found")
		return
	}
	var merged map[string]any
	_ = json.Unmarshal(current, &merged)
	for k, v := range patch {
		merged[k] = v
	}
	merged["id"] = id
	data, _ := json.Marshal(merged)
	s.resources[collection][id] = data

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) deleteResource(w http.ResponseWriter, collection string, id int64) {
	s.mu.Lock()
	_, ok := s.resources[collection][id]
	delete(s.resources[collection], id)
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted successfully"})
}
