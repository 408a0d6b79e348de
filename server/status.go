package server

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
)

// sampleSize bounds the vocabulary samples in the data status
const sampleSize = 5

// Overall service states reported by /api/data-status
const (
	StatusOperational = "fully_operational"
	StatusPartial     = "partial_service"
)

// DataStatus is the payload of /api/data-status
type DataStatus struct {
	Tables   map[string]string `json:"tables"`
	Services map[string]string `json:"services"`
	Dynamic  DynamicData       `json:"dynamic_data"`
	Memory   *MemoryStats      `json:"memory,omitempty"`
	Status   string            `json:"status"`
}

// DynamicData describes the extractor vocabulary of the current load
type DynamicData struct {
	Customers       int      `json:"dynamic_customers"`
	ProductTerms    int      `json:"dynamic_products"`
	SampleCustomers []string `json:"sample_customers"`
	SampleProducts  []string `json:"sample_products"`
}

// MemoryStats reports host and process memory in bytes
type MemoryStats struct {
	HostTotal     uint64 `json:"host_total"`
	HostAvailable uint64 `json:"host_available"`
	HeapAlloc     uint64 `json:"heap_alloc"`
}

func (s *Server) handleDataStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dataStatus(r))
}

func (s *Server) dataStatus(r *http.Request) DataStatus {
	st := DataStatus{
		Tables:   make(map[string]string, len(inventory.TableNames)),
		Services: make(map[string]string),
	}

	loaded := 0
	for _, table := range inventory.TableNames {
		rows, ok := s.store.Table(table)
		if !ok {
			st.Tables[table] = "not_loaded"
			continue
		}
		loaded++
		st.Tables[table] = fmt.Sprintf("loaded (%d records)", rows)
	}

	source := s.store.SourceName()
	switch {
	case source == "":
		st.Services["source"] = "not_configured"
	case loaded > 0:
		st.Services["source"] = "connected"
	default:
		st.Services["source"] = "error"
	}
	classifier := "not_configured"
	if s.assistant.ClassifierAvailable() {
		classifier = "available"
	}
	st.Services["classifier"] = classifier

	vocab := s.store.Vocabulary()
	st.Dynamic = DynamicData{
		Customers:       len(vocab.CustomerNames),
		ProductTerms:    len(vocab.ProductTerms),
		SampleCustomers: sample(vocab.CustomerNames),
		SampleProducts:  sample(vocab.ProductTerms),
	}

	if m, err := memoryStats(); err != nil {
		logger.LoggerFromContext(r.Context(), s.logger).Debugw("Memory stats unavailable", logger.FieldError, err)
	} else {
		st.Memory = m
	}

	st.Status = StatusPartial
	if loaded > 0 && classifier == "available" {
		st.Status = StatusOperational
	}
	return st
}

func memoryStats() (*MemoryStats, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get memory stats")
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return &MemoryStats{
		HostTotal:     v.Total,
		HostAvailable: v.Available,
		HeapAlloc:     ms.HeapAlloc,
	}, nil
}

func sample(terms []string) []string {
	if len(terms) > sampleSize {
		terms = terms[:sampleSize]
	}
	return append([]string{}, terms...)
}
