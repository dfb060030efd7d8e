package router

import (
	"sync"

	dialog "github.com/agentweave/dialogmq/pkg/schemas/dialog/v1"
)

// Registry maps dialog ids to in-flight dialogs. It is owned by one Router
// instance and guarded for the case where server and facade paths overlap.
type Registry struct {
	mu      sync.RWMutex
	dialogs map[string]*dialog.Dialog
}

func NewRegistry() *Registry {
	return &Registry{dialogs: make(map[string]*dialog.Dialog)}
}

func (r *Registry) Get(id string) (*dialog.Dialog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dialogs[id]
	return d, ok
}

func (r *Registry) Put(d *dialog.Dialog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogs[d.ID] = d
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dialogs, id)
}

// Reset wipes every registered dialog. The server loop calls this when a
// callback signals a session reset.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogs = make(map[string]*dialog.Dialog)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.dialogs)
}
