// Package index maintains a primary-key map plus declared secondary
// field-equality indices over a record set.
package index

import (
	"container/list"
	"sort"
)

// orderedSet keeps ids in insertion order with O(1) add and remove.
type orderedSet struct {
	order *list.List
	elems map[string]*list.Element
}

func newOrderedSet() *orderedSet {
	return &orderedSet{order: list.New(), elems: make(map[string]*list.Element)}
}

func (s *orderedSet) add(id string) {
	if _, ok := s.elems[id]; ok {
		return
	}
	s.elems[id] = s.order.PushBack(id)
}

func (s *orderedSet) remove(id string) {
	if el, ok := s.elems[id]; ok {
		s.order.Remove(el)
		delete(s.elems, id)
	}
}

func (s *orderedSet) len() int { return len(s.elems) }

func (s *orderedSet) ids() []string {
	out := make([]string, 0, len(s.elems))
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(string))
	}
	return out
}

// Collection indexes values of type T by a primary key and by a fixed set of
// secondary fields chosen at construction. It holds non-owning references:
// callers re-Add an item after changing any indexed field.
type Collection[T any] struct {
	primary func(T) string
	fields  map[string]func(T) string

	items     map[string]T
	all       *orderedSet
	secondary map[string]map[string]*orderedSet
	// indexed remembers the field values each id was filed under so a
	// re-Add can move it without scanning.
	indexed map[string]map[string]string
}

// New constructs an empty collection. primary extracts the unique id, fields
// maps each secondary index name to its value extractor.
func New[T any](primary func(T) string, fields map[string]func(T) string) *Collection[T] {
	c := &Collection[T]{
		primary: primary,
		fields:  make(map[string]func(T) string, len(fields)),
	}
	for name, fn := range fields {
		c.fields[name] = fn
	}
	c.reset(0)
	return c
}

func (c *Collection[T]) reset(capacity int) {
	c.items = make(map[string]T, capacity)
	c.all = newOrderedSet()
	c.indexed = make(map[string]map[string]string, capacity)
	c.secondary = make(map[string]map[string]*orderedSet, len(c.fields))
	for name := range c.fields {
		c.secondary[name] = make(map[string]*orderedSet)
	}
}

// SetItems discards all state and rebuilds every index from items.
func (c *Collection[T]) SetItems(items []T) {
	c.reset(len(items))
	for _, item := range items {
		c.Add(item)
	}
}

// Add inserts item, or re-indexes it when its id is already present.
func (c *Collection[T]) Add(item T) {
	id := c.primary(item)
	c.items[id] = item
	c.all.add(id)
	prev := c.indexed[id]
	next := make(map[string]string, len(c.fields))
	for name, fn := range c.fields {
		value := fn(item)
		next[name] = value
		if old, ok := prev[name]; ok {
			if old == value {
				continue
			}
			c.unfile(name, old, id)
		}
		set, ok := c.secondary[name][value]
		if !ok {
			set = newOrderedSet()
			c.secondary[name][value] = set
		}
		set.add(id)
	}
	c.indexed[id] = next
}

// Remove drops id from the primary map and every secondary index.
func (c *Collection[T]) Remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	for name, value := range c.indexed[id] {
		c.unfile(name, value, id)
	}
	delete(c.indexed, id)
	delete(c.items, id)
	c.all.remove(id)
	return true
}

func (c *Collection[T]) unfile(field, value, id string) {
	set, ok := c.secondary[field][value]
	if !ok {
		return
	}
	set.remove(id)
	if set.len() == 0 {
		delete(c.secondary[field], value)
	}
}

// Get returns the item stored under id.
func (c *Collection[T]) Get(id string) (T, bool) {
	item, ok := c.items[id]
	return item, ok
}

// GetByField returns the items whose field equals value in index insertion
// order. Unknown fields return nil.
func (c *Collection[T]) GetByField(field, value string) []T {
	set, ok := c.secondary[field][value]
	if !ok {
		return nil
	}
	out := make([]T, 0, set.len())
	for _, id := range set.ids() {
		out = append(out, c.items[id])
	}
	return out
}

// idsByField returns the ids filed under value for field in insertion order.
func (c *Collection[T]) idsByField(field, value string) []string {
	set, ok := c.secondary[field][value]
	if !ok {
		return nil
	}
	return set.ids()
}

// values lists the distinct values currently indexed for field, sorted.
func (c *Collection[T]) values(field string) []string {
	idx := c.secondary[field]
	out := make([]string, 0, len(idx))
	for value := range idx {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// Items returns every item in primary insertion order.
func (c *Collection[T]) Items() []T {
	ids := c.all.ids()
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.items[id])
	}
	return out
}

// Len reports the number of items.
func (c *Collection[T]) Len() int { return len(c.items) }

// Fields lists the declared secondary index names, sorted.
func (c *Collection[T]) Fields() []string {
	out := make([]string, 0, len(c.fields))
	for name := range c.fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
