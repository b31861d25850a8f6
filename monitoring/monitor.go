// Package monitoring turns a running test system into a web server that
// reports the state of its ports.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/ttcnport/id"
	"github.com/sarchlab/ttcnport/monitoring/web"
	"github.com/sarchlab/ttcnport/port"
	"github.com/sarchlab/ttcnport/tracing"
)

// Monitor serves the state of the registered ports over HTTP.
type Monitor struct {
	lock       sync.Mutex
	ports      []*port.Port
	counter    *tracing.CountingTracer
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		counter: tracing.NewCountingTracer(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterPort registers a port to be monitored. The events of the port are
// counted from now on.
func (m *Monitor) RegisterPort(p *port.Port) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, registered := range m.ports {
		if registered.Name() == p.Name() {
			panic(fmt.Sprintf("port %s already registered", p.Name()))
		}
	}

	m.ports = append(m.ports, p)
	tracing.CollectTrace(p, m.counter)
}

// EventCounter returns the tracer that counts the events of the registered
// ports.
func (m *Monitor) EventCounter() *tracing.CountingTracer {
	return m.counter
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_ports", m.listPorts)
	r.HandleFunc("/api/port/{name}", m.listPortDetails)
	r.HandleFunc("/api/port/{name}/{action}", m.controlPort).Methods(http.MethodPost)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/queues", m.listQueues)
	r.HandleFunc("/api/events", m.listEventCounts)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	portNumber := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(os.Stderr,
		"Monitoring ports with http://localhost:%d\n", portNumber)

	r := m.router()
	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()

	return portNumber
}

func (m *Monitor) listPorts(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	names := make([]string, 0, len(m.ports))
	for _, p := range m.ports {
		names = append(names, p.Name())
	}
	m.lock.Unlock()

	writeJSON(w, names)
}

func (m *Monitor) listPortDetails(w http.ResponseWriter, r *http.Request) {
	p := m.findPortOr404(w, mux.Vars(r)["name"])
	if p == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(p.Status())
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) controlPort(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	p := m.findPortOr404(w, vars["name"])
	if p == nil {
		return
	}

	switch vars["action"] {
	case "start":
		p.Start()
	case "stop":
		p.Stop()
	case "halt":
		p.Halt()
	case "clear":
		p.Clear()
	default:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: unknown action %s", vars["action"])

		return
	}

	w.WriteHeader(http.StatusOK)
}

type fieldReq struct {
	PortName  string `json:"port_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	p := m.findPortOr404(w, req.PortName)
	if p == nil {
		return
	}

	status := p.Status()

	elem, err := m.walkFields(&status, req.FieldName)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	writeJSON(w, elem.Interface())
}

type queueRsp struct {
	Queue string `json:"queue"`
	Port  string `json:"port"`
	Level int    `json:"level"`
}

func (m *Monitor) listQueues(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := m.queuesParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	writeJSON(w, m.sortAndSelectQueues(sortMethod, limit, offset))
}

func (*Monitor) queuesParseParams(
	r *http.Request,
) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "level"
	}

	if sortMethod != "level" && sortMethod != "name" {
		errStr := fmt.Sprintf(
			"Invalid sort method: %s. Allowed values are `level` and `name`",
			sortMethod)
		return "", 0, 0, errors.New(errStr)
	}

	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "0"
	}

	limitNumber, err := strconv.Atoi(limitStr)
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		offsetStr = "0"
	}

	offsetNumber, err := strconv.Atoi(offsetStr)
	if err != nil {
		return sortMethod, limitNumber, 0, err
	}

	if limitNumber < 0 || offsetNumber < 0 {
		return sortMethod, 0, 0, errors.New("limit and offset must not be negative")
	}

	return sortMethod, limitNumber, offsetNumber, nil
}

func (m *Monitor) queues() []queueRsp {
	m.lock.Lock()
	defer m.lock.Unlock()

	list := make([]queueRsp, 0, 2*len(m.ports))
	for _, p := range m.ports {
		list = append(list,
			queueRsp{
				Queue: p.MessageQueue().Name(),
				Port:  p.Name(),
				Level: p.MessageQueue().Size(),
			},
			queueRsp{
				Queue: p.ProcedureQueue().Name(),
				Port:  p.Name(),
				Level: p.ProcedureQueue().Size(),
			})
	}

	return list
}

// sortAndSelectQueues returns a page of queues. A zero limit returns all the
// queues after the offset.
func (m *Monitor) sortAndSelectQueues(
	sortMethod string,
	limit, offset int,
) []queueRsp {
	queues := m.queues()

	switch sortMethod {
	case "level":
		sort.SliceStable(queues, func(i, j int) bool {
			if queues[i].Level != queues[j].Level {
				return queues[i].Level > queues[j].Level
			}

			return queues[i].Queue < queues[j].Queue
		})
	case "name":
		sort.SliceStable(queues, func(i, j int) bool {
			return queues[i].Queue < queues[j].Queue
		})
	default:
		panic("Invalid sort method " + sortMethod)
	}

	if offset > len(queues) {
		offset = len(queues)
	}

	end := len(queues)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return queues[offset:end]
}

func (m *Monitor) listEventCounts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, struct {
		Total  int                `json:"total"`
		Counts []tracing.PosCount `json:"counts"`
	}{
		Total:  m.counter.Total(),
		Counts: m.counter.Counts(),
	})
}

type fieldFormatError struct {
	field string
}

func (e fieldFormatError) Error() string {
	return "cannot walk into field " + e.field
}

func (m *Monitor) walkFields(
	root interface{},
	fields string,
) (reflect.Value, error) {
	elem := reflect.ValueOf(root)

	fieldNames := strings.Split(fields, ".")

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			elem = elem.Elem()
		case reflect.Struct:
			elem = elem.FieldByName(fieldNames[0])
			if !elem.IsValid() {
				return elem, fieldFormatError{field: fieldNames[0]}
			}

			fieldNames = fieldNames[1:]
		case reflect.Slice:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldFormatError{field: fieldNames[0]}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldFormatError{field: fieldNames[0]}
		}
	}

	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	return elem, nil
}

func (m *Monitor) findPortOr404(
	w http.ResponseWriter,
	name string,
) *port.Port {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, p := range m.ports {
		if p.Name() == name {
			return p
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Port not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
