package store

import (
	"testing"
	"time"

	"github.com/go-logr/zapr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
	"github.com/VinayaSathyanarayana/rxdb/pkg/query"
	"github.com/VinayaSathyanarayana/rxdb/pkg/querychange"
	"github.com/VinayaSathyanarayana/rxdb/pkg/schema"
	"github.com/VinayaSathyanarayana/rxdb/pkg/selector"
)

var (
	timeout  = time.Second * 2
	interval = time.Millisecond * 10
	loglevel = -4
	logger   = zapr.NewLogger(zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(GinkgoWriter),
		zapcore.Level(int8(loglevel)), //nolint:gosec
	)))
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store")
}

func mustSelector(sel map[string]any) *selector.Selector {
	s, err := selector.Parse(sel)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Store", func() {
	var s *Store

	BeforeEach(func() {
		s = New(Options{Schema: schema.New("id"), Logger: logger})
	})

	It("inserts, gets and removes documents", func() {
		Expect(s.Insert(document.Document{"id": "a", "age": int64(20)})).To(Succeed())
		Expect(s.Len()).To(Equal(1))

		doc, ok := s.Get("a")
		Expect(ok).To(BeTrue())
		Expect(doc["age"]).To(Equal(int64(20)))

		Expect(s.Remove("a")).To(Succeed())
		Expect(s.Len()).To(Equal(0))
		_, ok = s.Get("a")
		Expect(ok).To(BeFalse())
	})

	It("rejects duplicate inserts and unknown removals", func() {
		Expect(s.Insert(document.Document{"id": "a"})).To(Succeed())
		Expect(s.Insert(document.Document{"id": "a"})).To(HaveOccurred())
		Expect(s.Remove("nope")).To(HaveOccurred())
	})

	It("rejects documents without a primary key", func() {
		Expect(s.Insert(document.Document{"age": int64(20)})).To(HaveOccurred())
	})

	It("isolates stored snapshots from caller mutation", func() {
		doc := document.Document{"id": "a", "meta": map[string]any{"n": int64(1)}}
		Expect(s.Insert(doc)).To(Succeed())

		doc["meta"].(map[string]any)["n"] = int64(99)
		stored, _ := s.Get("a")
		Expect(stored["meta"].(map[string]any)["n"]).To(Equal(int64(1)))

		stored["meta"].(map[string]any)["n"] = int64(42)
		again, _ := s.Get("a")
		Expect(again["meta"].(map[string]any)["n"]).To(Equal(int64(1)))
	})

	It("executes full queries with sort and windowing", func() {
		for _, doc := range []document.Document{
			{"id": "a", "age": int64(30)},
			{"id": "b", "age": int64(10)},
			{"id": "c", "age": int64(20)},
			{"id": "d", "age": int64(5)},
		} {
			Expect(s.Insert(doc)).To(Succeed())
		}

		results, err := s.Query(&query.Query{
			Selector:   mustSelector(map[string]any{"age": map[string]any{"$gte": 10}}),
			Sort:       []query.SortField{{Field: "age", Order: query.Ascending}},
			Skip:       1,
			Limit:      1,
			PrimaryKey: "id",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(Equal([]document.Document{{"id": "c", "age": int64(20)}}))
	})
})

var _ = Describe("Watch", func() {
	It("delivers change events in commit order", func() {
		s := New(Options{Logger: logger})
		sub := s.Watch()
		defer sub.Cancel()

		Expect(s.Insert(document.Document{"id": "a"})).To(Succeed())
		Expect(s.Upsert(document.Document{"id": "a", "v": int64(2)})).To(Succeed())
		Expect(s.Remove("a")).To(Succeed())

		ops := []querychange.Op{}
		for i := 0; i < 3; i++ {
			select {
			case ev := <-sub.Events():
				ops = append(ops, ev.Op)
			case <-time.After(timeout):
				Fail("timed out waiting for change event")
			}
		}
		Expect(ops).To(Equal([]querychange.Op{
			querychange.OpInsert, querychange.OpUpdate, querychange.OpRemove,
		}))
	})

	It("closes the channel on cancel", func() {
		s := New(Options{Logger: logger})
		sub := s.Watch()
		sub.Cancel()

		Eventually(sub.Events(), timeout, interval).Should(BeClosed())
	})
})

var _ = Describe("Live queries", func() {
	var s *Store

	adultsByAge := func(skip, limit int) *query.Query {
		return &query.Query{
			Selector:   mustSelector(map[string]any{"age": map[string]any{"$gte": 18}}),
			Sort:       []query.SortField{{Field: "age", Order: query.Ascending}},
			Skip:       skip,
			Limit:      limit,
			PrimaryKey: "id",
		}
	}

	resultIDs := func(lq *LiveQuery) func() []string {
		return func() []string {
			ids := []string{}
			for _, doc := range lq.Results() {
				ids = append(ids, doc["id"].(string))
			}
			return ids
		}
	}

	BeforeEach(func() {
		s = New(Options{Schema: schema.New("id"), Logger: logger})
		Expect(s.Insert(document.Document{"id": "a", "age": int64(20)})).To(Succeed())
		Expect(s.Insert(document.Document{"id": "b", "age": int64(30)})).To(Succeed())
	})

	It("starts from a full execution", func() {
		lq, err := s.LiveQuery(adultsByAge(0, 0), nil)
		Expect(err).NotTo(HaveOccurred())
		defer lq.Close()

		Expect(resultIDs(lq)()).To(Equal([]string{"a", "b"}))
	})

	It("converges on inserts, updates and removals", func() {
		lq, err := s.LiveQuery(adultsByAge(0, 0), nil)
		Expect(err).NotTo(HaveOccurred())
		defer lq.Close()

		// new match lands in sort position (via full re-execution)
		Expect(s.Insert(document.Document{"id": "c", "age": int64(25)})).To(Succeed())
		Eventually(resultIDs(lq), timeout, interval).Should(Equal([]string{"a", "c", "b"}))

		// sort-field update moves the entry (incremental resort)
		Expect(s.Upsert(document.Document{"id": "a", "age": int64(40)})).To(Succeed())
		Eventually(resultIDs(lq), timeout, interval).Should(Equal([]string{"c", "b", "a"}))

		// match loss drops the entry
		Expect(s.Upsert(document.Document{"id": "c", "age": int64(10)})).To(Succeed())
		Eventually(resultIDs(lq), timeout, interval).Should(Equal([]string{"b", "a"}))

		Expect(s.Remove("b")).To(Succeed())
		Eventually(resultIDs(lq), timeout, interval).Should(Equal([]string{"a"}))
	})

	It("converges under active pagination via full re-execution", func() {
		lq, err := s.LiveQuery(adultsByAge(1, 1), nil)
		Expect(err).NotTo(HaveOccurred())
		defer lq.Close()

		Expect(resultIDs(lq)()).To(Equal([]string{"b"}))

		Expect(s.Insert(document.Document{"id": "c", "age": int64(25)})).To(Succeed())
		Eventually(resultIDs(lq), timeout, interval).Should(Equal([]string{"c"}))
	})

	It("keeps the cache still when changes are unobservable", func() {
		det := querychange.New(querychange.Config{Optimize: true, Logger: logger})
		lq, err := s.LiveQuery(adultsByAge(0, 0), det)
		Expect(err).NotTo(HaveOccurred())
		defer lq.Close()

		Expect(s.Insert(document.Document{"id": "kid", "age": int64(5)})).To(Succeed())
		Consistently(resultIDs(lq), time.Millisecond*200, interval).Should(Equal([]string{"a", "b"}))
	})
})
