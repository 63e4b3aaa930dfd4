package query

import (
	"sync"

	"github.com/maruel/recordbook/internal/models"
	"github.com/maruel/recordbook/internal/storage"
)

// Source is the record collection a View follows.
type Source interface {
	All() []models.Record
	AddObserver(o storage.RecordObserver)
}

// View keeps a Result current. It recomputes on every change of its source
// and on every SetState.
type View struct {
	mu        sync.Mutex
	state     State
	records   []models.Record
	result    Result
	listeners []func(Result)
}

// NewView returns a View over src, starting with st.
func NewView(src Source, st State) *View {
	v := &View{state: st}
	v.records = src.All()
	v.result = Run(v.records, st)
	src.AddObserver(v)
	return v
}

// OnRecordsChanged implements storage.RecordObserver.
func (v *View) OnRecordsChanged(records []models.Record) {
	v.mu.Lock()
	v.records = records
	v.recompute()
}

// State returns the current filter.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// SetState replaces the filter and recomputes.
func (v *View) SetState(st State) {
	v.mu.Lock()
	v.state = st
	v.recompute()
}

// Result returns the latest derivation.
func (v *View) Result() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result
}

// OnChange registers fn to be called with every new Result.
func (v *View) OnChange(fn func(Result)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

// recompute is called with v.mu held and releases it before calling the
// listeners.
func (v *View) recompute() {
	v.result = Run(v.records, v.state)
	res := v.result
	listeners := v.listeners
	v.mu.Unlock()
	for _, fn := range listeners {
		fn(res)
	}
}
