package core

type observer struct {
	id int
	fn func()
}

// Subscribe registers fn to be called after every completed flush and every
// structural reload. Observers run in registration order, outside the engine
// lock, and may query the engine. The returned function unregisters fn.
func (e *Engine) Subscribe(fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	e.obsMu.Lock()
	e.obsSeq++
	id := e.obsSeq
	e.observers = append(e.observers, observer{id: id, fn: fn})
	e.obsMu.Unlock()

	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) notify() {
	e.obsMu.Lock()
	pending := make([]observer, len(e.observers))
	copy(pending, e.observers)
	e.obsMu.Unlock()
	for _, o := range pending {
		o.fn()
	}
}
