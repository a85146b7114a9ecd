package devserver

import (
	"maps"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one stored JSON object
type Record = map[string]any

type collection struct {
	order []string
	items map[string]Record
}

// Resources is a set of named collections plus singleton documents.
// Collection names are slash-joined paths such as "admin/children".
type Resources struct {
	mu          sync.RWMutex
	collections map[string]*collection
	singletons  map[string]Record
}

func NewResources() *Resources {
	return &Resources{
		collections: make(map[string]*collection),
		singletons:  make(map[string]Record),
	}
}

// Insert stores rec, assigning an id and createdAt when missing. Records in
// a notifications collection start unread.
func (r *Resources) Insert(name string, rec Record) Record {
	rec = maps.Clone(rec)
	if rec == nil {
		rec = Record{}
	}
	id, _ := rec["id"].(string)
	if id == "" {
		id = uuid.NewString()
		rec["id"] = id
	}
	if _, ok := rec["createdAt"]; !ok {
		rec["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	}
	if strings.HasSuffix(name, "notifications") {
		if _, ok := rec["read"]; !ok {
			rec["read"] = false
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.collections[name]
	if c == nil {
		c = &collection{items: make(map[string]Record)}
		r.collections[name] = c
	}
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = rec
	return maps.Clone(rec)
}

// List returns records in insertion order whose fields equal every filter
// value
func (r *Resources) List(name string, filter url.Values) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Record{}
	c := r.collections[name]
	if c == nil {
		return out
	}
	for _, id := range c.order {
		rec := c.items[id]
		if matches(rec, filter) {
			out = append(out, maps.Clone(rec))
		}
	}
	return out
}

func (r *Resources) Get(name, id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.collections[name]
	if c == nil {
		return nil, false
	}
	rec, ok := c.items[id]
	return maps.Clone(rec), ok
}

// Merge overlays patch onto an existing record. The id never changes.
func (r *Resources) Merge(name, id string, patch Record) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.collections[name]
	if c == nil {
		return nil, false
	}
	rec, ok := c.items[id]
	if !ok {
		return nil, false
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	rec["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	return maps.Clone(rec), true
}

func (r *Resources) Delete(name, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.collections[name]
	if c == nil {
		return false
	}
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// MarkAllRead sets read=true on every record and returns how many changed
func (r *Resources) MarkAllRead(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.collections[name]
	if c == nil {
		return 0
	}
	n := 0
	for _, rec := range c.items {
		if read, _ := rec["read"].(bool); !read {
			rec["read"] = true
			n++
		}
	}
	return n
}

// Stats counts records under prefix, grouped by their status field
func (r *Resources) Stats(prefix string) Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	byStatus := map[string]int{}
	for name, c := range r.collections {
		if name != prefix && !strings.HasPrefix(name, prefix+"/") {
			continue
		}
		for _, rec := range c.items {
			total++
			if st, ok := rec["status"].(string); ok && st != "" {
				byStatus[st]++
			}
		}
	}
	return Record{"total": total, "byStatus": byStatus}
}

func (r *Resources) Singleton(name string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.singletons[name]
	return maps.Clone(rec), ok
}

// SetSingleton merges patch into the singleton document
func (r *Resources) SetSingleton(name string, patch Record) Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.singletons[name]
	if rec == nil {
		rec = Record{}
		r.singletons[name] = rec
	}
	maps.Copy(rec, patch)
	return maps.Clone(rec)
}

func matches(rec Record, filter url.Values) bool {
	for k, vals := range filter {
		if len(vals) == 0 {
			continue
		}
		v, ok := rec[k]
		if !ok || stringify(v) != vals[0] {
			return false
		}
	}
	return true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}
