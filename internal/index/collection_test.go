package index

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

type item struct {
	id      string
	project string
	status  string
}

func newTestCollection() *Collection[*item] {
	return New(func(i *item) string { return i.id }, map[string]func(*item) string{
		"project": func(i *item) string { return i.project },
		"status":  func(i *item) string { return i.status },
	})
}

func ids(items []*item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.id)
	}
	return out
}

func TestCollectionLookups(t *testing.T) {
	c := newTestCollection()
	c.Add(&item{id: "a", project: "p1", status: "draft"})
	c.Add(&item{id: "b", project: "p1", status: "approved"})
	c.Add(&item{id: "c", project: "p2", status: "draft"})

	if got, ok := c.Get("b"); !ok || got.status != "approved" {
		t.Fatalf("unexpected primary lookup %+v %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss for unknown id")
	}
	if got := ids(c.GetByField("project", "p1")); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("project index = %v", got)
	}
	if got := ids(c.GetByField("status", "draft")); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("status index = %v", got)
	}
	if got := c.GetByField("owner", "x"); got != nil {
		t.Fatalf("undeclared field should return nil, got %v", got)
	}
	if !reflect.DeepEqual(c.Fields(), []string{"project", "status"}) {
		t.Fatalf("fields = %v", c.Fields())
	}
	if c.Len() != 3 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestCollectionReindexOnAdd(t *testing.T) {
	c := newTestCollection()
	a := &item{id: "a", project: "p1", status: "draft"}
	c.Add(a)
	a.status = "approved"
	c.Add(a)
	if got := c.GetByField("status", "draft"); len(got) != 0 {
		t.Fatalf("expected stale status value removed, got %v", ids(got))
	}
	if got := ids(c.GetByField("status", "approved")); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("approved index = %v", got)
	}
	if vals := c.values("status"); !reflect.DeepEqual(vals, []string{"approved"}) {
		t.Fatalf("expected empty value buckets dropped, got %v", vals)
	}
	if c.Len() != 1 {
		t.Fatalf("re-add must not duplicate, len=%d", c.Len())
	}
}

func TestCollectionRemove(t *testing.T) {
	c := newTestCollection()
	c.SetItems([]*item{{id: "a", project: "p", status: "s"}, {id: "b", project: "p", status: "s"}})
	if !c.Remove("a") {
		t.Fatalf("expected remove to succeed")
	}
	if c.Remove("a") {
		t.Fatalf("second remove should report false")
	}
	if got := ids(c.GetByField("project", "p")); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("project index after remove = %v", got)
	}
	if got := ids(c.Items()); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("items after remove = %v", got)
	}
}

// Incremental maintenance must agree with a from-scratch rebuild after an
// arbitrary sequence of adds, re-adds and removes.
func TestCollectionIncrementalMatchesRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	live := map[string]*item{}
	var order []string
	inc := newTestCollection()
	for step := 0; step < 2000; step++ {
		id := fmt.Sprintf("r%02d", rng.Intn(40))
		switch rng.Intn(3) {
		case 0, 1:
			it, ok := live[id]
			if !ok {
				it = &item{id: id}
				live[id] = it
				order = append(order, id)
			}
			it.project = fmt.Sprintf("p%d", rng.Intn(4))
			it.status = fmt.Sprintf("s%d", rng.Intn(5))
			inc.Add(it)
		case 2:
			if _, ok := live[id]; ok {
				delete(live, id)
				for i, existing := range order {
					if existing == id {
						order = append(order[:i], order[i+1:]...)
						break
					}
				}
			}
			inc.Remove(id)
		}
	}

	rebuilt := newTestCollection()
	items := make([]*item, 0, len(order))
	for _, id := range order {
		items = append(items, live[id])
	}
	rebuilt.SetItems(items)

	if inc.Len() != rebuilt.Len() {
		t.Fatalf("len mismatch inc=%d rebuilt=%d", inc.Len(), rebuilt.Len())
	}
	for _, field := range inc.Fields() {
		if !reflect.DeepEqual(inc.values(field), rebuilt.values(field)) {
			t.Fatalf("%s values mismatch inc=%v rebuilt=%v", field, inc.values(field), rebuilt.values(field))
		}
		for _, value := range inc.values(field) {
			got := map[string]bool{}
			for _, id := range inc.idsByField(field, value) {
				got[id] = true
			}
			want := map[string]bool{}
			for _, id := range rebuilt.idsByField(field, value) {
				want[id] = true
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("%s=%s mismatch inc=%v rebuilt=%v", field, value, got, want)
			}
		}
	}
}
