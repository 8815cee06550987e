// Bounded record cache.
//
// The cache mirrors recently inserted records (ID -> document) alongside
// the table. Eviction is first-in-first-out: re-putting an existing ID
// refreshes its document but keeps its place in line. DB.Get consults the
// cache before the table; queries go straight to the table and indexes.
package shelf

import "container/list"

type cacheItem struct {
	id  string
	doc Document
}

type cache struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = oldest
}

func newCache(capacity int) *cache {
	return &cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *cache) get(id string) (Document, bool) {
	if el, ok := c.items[id]; ok {
		return el.Value.(*cacheItem).doc, true
	}
	return nil, false
}

func (c *cache) put(id string, doc Document) {
	if c.capacity <= 0 {
		return
	}
	if el, ok := c.items[id]; ok {
		el.Value.(*cacheItem).doc = doc
		return
	}
	c.items[id] = c.order.PushBack(&cacheItem{id: id, doc: doc})
	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheItem).id)
	}
}

func (c *cache) remove(id string) {
	if el, ok := c.items[id]; ok {
		c.order.Remove(el)
		delete(c.items, id)
	}
}

func (c *cache) clear() {
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *cache) len() int { return c.order.Len() }

// keys returns cached IDs, oldest first.
func (c *cache) keys() []string {
	out := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*cacheItem).id)
	}
	return out
}
