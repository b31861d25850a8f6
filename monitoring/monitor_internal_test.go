package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ttcnport/port"
)

type sampleStruct struct {
	field1 int
	field2 string
	field3 *sampleStruct
	field4 []sampleStruct
}

func buildPort(name string) *port.Port {
	return port.MakeBuilder().
		WithDeclaration(port.Declaration{Name: "PcoType"}).
		Build(name)
}

func fill(p *port.Port, n int) {
	for i := 0; i < n; i++ {
		Expect(p.Deliver(port.PeerMessage{TypeTag: "Pdu", Value: i})).To(Succeed())
	}
}

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		a, b    *port.Port
		handler http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
		a = buildPort("A")
		b = buildPort("B")
		m.RegisterPort(a)
		m.RegisterPort(b)
		handler = m.router()
		a.Start()
		b.Start()
	})

	It("should not register a port twice", func() {
		Expect(func() { m.RegisterPort(buildPort("A")) }).To(Panic())
	})

	It("should list ports", func() {
		rec := get("/api/list_ports")

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"A", "B"}))
	})

	It("should report unknown ports", func() {
		rec := get("/api/port/C")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize port details", func() {
		fill(a, 2)

		rec := get("/api/port/A")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("MessageQueueSize"))
	})

	It("should sort queues by level", func() {
		fill(a, 1)
		fill(b, 3)

		rec := get("/api/queues?limit=2")

		var queues []queueRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &queues)).To(Succeed())
		Expect(queues).To(Equal([]queueRsp{
			{Queue: "B.MsgQueue", Port: "B", Level: 3},
			{Queue: "A.MsgQueue", Port: "A", Level: 1},
		}))
	})

	It("should page queues by name", func() {
		rec := get("/api/queues?sort=name&offset=3&limit=5")

		var queues []queueRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &queues)).To(Succeed())
		Expect(queues).To(HaveLen(1))
		Expect(queues[0].Queue).To(Equal("B.ProcQueue"))
	})

	It("should reject bad queue parameters", func() {
		Expect(get("/api/queues?sort=percent").Code).To(Equal(http.StatusBadRequest))
		Expect(get("/api/queues?limit=x").Code).To(Equal(http.StatusBadRequest))
		Expect(get("/api/queues?offset=-1").Code).To(Equal(http.StatusBadRequest))
	})

	It("should count the events of registered ports", func() {
		fill(a, 2)

		rec := get("/api/events")

		var rsp struct {
			Total int `json:"total"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Total).To(Equal(m.EventCounter().Total()))
		Expect(m.EventCounter().Count(port.HookPosPortDeliver.Name)).To(Equal(2))
	})

	It("should control ports", func() {
		fill(a, 2)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/port/A/clear", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(a.MessageQueue().Size()).To(BeZero())

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/port/A/halt", nil))
		Expect(a.Halted()).To(BeTrue())

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/port/A/explode", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should read a field of the port status", func() {
		fill(b, 3)
		req := url.PathEscape(`{"port_name":"B","field_name":"MessageQueueSize"}`)

		rec := get("/api/field/" + req)

		Expect(rec.Body.String()).To(Equal("3"))

		req = url.PathEscape(`{"port_name":"B","field_name":"Nothing"}`)
		Expect(get("/api/field/" + req).Code).To(Equal(http.StatusBadRequest))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("Replay", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		rec := get("/api/progress")

		var bars []ProgressBar
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Finished).To(Equal(uint64(3)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		bar.IncrementInProgress(7)
		bar.MoveInProgressToFailed(7)
		Expect(bar.Done()).To(BeTrue())
		Expect(bar.Failed).To(Equal(uint64(7)))

		m.CompleteProgressBar(bar)
		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			field1: 1,
		}

		elem, err := m.walkFields(s, "field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			field2: "abc",
		}

		elem, err := m.walkFields(s, "field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk struct", func() {
		s := &sampleStruct{
			field3: &sampleStruct{},
		}

		elem, err := m.walkFields(s, "field3")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Struct))
		Expect(elem.Type().Name()).To(Equal("sampleStruct"))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{
				field4: []sampleStruct{
					{field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "field4.0.field4.0.field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should refuse bad indices and missing fields", func() {
		s := &sampleStruct{field4: []sampleStruct{{}}}

		_, err := m.walkFields(s, "field4.3")
		Expect(err).To(HaveOccurred())

		_, err = m.walkFields(s, "field9")
		Expect(err).To(HaveOccurred())
	})
})
