package item

// ThumbnailCapacity is the default number of cached thumbnails.
const ThumbnailCapacity = 100

// Cache is a fixed-capacity map from item id to a rendered thumbnail. When
// full, the oldest inserted key is evicted. Reads do not refresh a key and
// overwriting a key keeps its original position.
type Cache struct {
	capacity int
	order    []string
	values   map[string]string
}

// NewCache returns a cache holding at most capacity entries. A capacity
// below one uses ThumbnailCapacity.
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = ThumbnailCapacity
	}
	return &Cache{capacity: capacity, values: make(map[string]string, capacity)}
}

func (c *Cache) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *Cache) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

func (c *Cache) Set(key, value string) {
	if _, ok := c.values[key]; ok {
		c.values[key] = value
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.values, oldest)
	}
	c.order = append(c.order, key)
	c.values[key] = value
}

func (c *Cache) Delete(key string) bool {
	if _, ok := c.values[key]; !ok {
		return false
	}
	delete(c.values, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *Cache) Len() int { return len(c.values) }

func (c *Cache) Clear() {
	c.order = nil
	c.values = make(map[string]string, c.capacity)
}
