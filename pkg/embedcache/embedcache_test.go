package embedcache

import (
	"container/list"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEmbedcache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "embedcache Suite")
}

// withClock builds a Cache whose notion of "now" is controlled by the test,
// so TTL and FIFO-eviction behavior can be exercised deterministically
// without sleeping or allocating 10,000 real entries.
func withClock(capacity int, ttl time.Duration, clock func() time.Time) *Cache {
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[uint64]*entry),
		order:    list.New(),
		now:      clock,
	}
}

var _ = Describe("Cache", func() {
	var c *Cache

	BeforeEach(func() {
		c = New()
	})

	It("misses on a key that was never inserted", func() {
		_, ok := c.Get("hello", "m1")
		Expect(ok).To(BeFalse())
	})

	It("hits after Put", func() {
		c.Put("hello", "m1", []float32{1, 2, 3})
		v, ok := c.Get("hello", "m1")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal([]float32{1, 2, 3}))
	})

	It("distinguishes the same text under different models", func() {
		c.Put("hello", "m1", []float32{1})
		c.Put("hello", "m2", []float32{2})
		v1, _ := c.Get("hello", "m1")
		v2, _ := c.Get("hello", "m2")
		Expect(v1).To(Equal([]float32{1}))
		Expect(v2).To(Equal([]float32{2}))
	})

	It("clears all entries", func() {
		c.Put("a", "m", []float32{1})
		c.Clear()
		Expect(c.Len()).To(Equal(0))
		_, ok := c.Get("a", "m")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("TTL expiry", func() {
	It("returns a miss once the entry is older than the TTL", func() {
		t := time.Now()
		clock := func() time.Time { return t }
		c := withClock(Capacity, time.Hour, func() time.Time { return clock() })

		c.Put("hello", "m1", []float32{1})
		_, ok := c.Get("hello", "m1")
		Expect(ok).To(BeTrue())

		t = t.Add(2 * time.Hour)
		_, ok = c.Get("hello", "m1")
		Expect(ok).To(BeFalse())
	})

	It("purge_expired removes only entries past the TTL", func() {
		t := time.Now()
		clock := func() time.Time { return t }
		c := withClock(Capacity, time.Hour, func() time.Time { return clock() })

		c.Put("old", "m", []float32{1})
		t = t.Add(2 * time.Hour)
		c.Put("fresh", "m", []float32{2})

		removed := c.PurgeExpired()
		Expect(removed).To(Equal(1))
		Expect(c.Len()).To(Equal(1))
		_, ok := c.Get("fresh", "m")
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("FIFO eviction", func() {
	It("drops the oldest entry first when capacity is exceeded", func() {
		c := withClock(2, time.Hour, time.Now)

		c.Put("a", "m", []float32{1})
		c.Put("b", "m", []float32{2})
		c.Put("c", "m", []float32{3}) // evicts "a"

		Expect(c.Len()).To(Equal(2))
		_, ok := c.Get("a", "m")
		Expect(ok).To(BeFalse())
		_, ok = c.Get("b", "m")
		Expect(ok).To(BeTrue())
		_, ok = c.Get("c", "m")
		Expect(ok).To(BeTrue())
	})

	It("moves an overwritten key to the back, protecting it from the next eviction", func() {
		c := withClock(2, time.Hour, time.Now)

		c.Put("a", "m", []float32{1})
		c.Put("b", "m", []float32{2})
		c.Put("a", "m", []float32{9}) // refresh "a"; "b" is now oldest
		c.Put("c", "m", []float32{3}) // evicts "b"

		_, ok := c.Get("b", "m")
		Expect(ok).To(BeFalse())
		v, ok := c.Get("a", "m")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal([]float32{9}))
	})
})
