// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package custom_http_trace

import (
	"context"
	"crypto/tls"
	"encoding/csv"
	"fmt"
	"net/http/httptrace"
	"os"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Header of the csv file, one row per connection event
var Header = []string{
	"Timestamp", "Event", "Duration (µs)", "Target Address", "Connection Reused", "Requested URL", "Error", "Caller",
}

const durationColumn = 2

// Recorder writes connection events of outgoing requests to a csv file
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

var (
	activeMu sync.RWMutex
	active   *Recorder
)

// Enable starts recording to path, truncating it. Requests built
// before Enable or after the returned stop function are not recorded
func Enable(path string) (stop func() error, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening http trace file: %w", err)
	}
	rec := &Recorder{file: f, writer: csv.NewWriter(f)}
	if err := rec.writer.Write(Header); err != nil {
		_ = f.Close()
		return nil, err
	}
	rec.writer.Flush()

	activeMu.Lock()
	active = rec
	activeMu.Unlock()

	return func() error {
		activeMu.Lock()
		if active == rec {
			active = nil
		}
		activeMu.Unlock()
		return rec.close()
	}, nil
}

func current() *Recorder {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

func (r *Recorder) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		_ = r.file.Close()
		return err
	}
	return r.file.Close()
}

func (r *Recorder) record(event, addr string, duration time.Duration, reused bool, url string, err error, caller string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reusedStr := ""
	if reused {
		reusedStr = "true"
	}
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	if werr := r.writer.Write([]string{
		time.Now().Format(time.RFC3339),
		event,
		strconv.FormatInt(int64(duration/time.Microsecond), 10),
		addr,
		reusedStr,
		url,
		errStr,
		caller,
	}); werr != nil {
		log.Warnf("could not record http trace event: %v", werr)
		return
	}
	r.writer.Flush()
}

// WithClientTrace attaches connection tracing for a request to target.
// The context is returned unchanged when recording is off
func WithClientTrace(ctx context.Context, target string) context.Context {
	rec := current()
	if rec == nil {
		return ctx
	}
	caller := "unknown"
	if pc, file, line, ok := runtime.Caller(1); ok {
		caller = fmt.Sprintf("%s (%s:%d)", runtime.FuncForPC(pc).Name(), file, line)
	}
	return httptrace.WithClientTrace(ctx, rec.clientTrace(target, caller))
}

func (r *Recorder) clientTrace(target, caller string) *httptrace.ClientTrace {
	var dnsStart, connStart, connEnd, tlsStart time.Time

	return &httptrace.ClientTrace{
		// runs for new and reused connections
		GetConn: func(hostPort string) {
			connStart = time.Now()
		},
		GotConn: func(info httptrace.GotConnInfo) {
			connEnd = time.Now()
			addr := ""
			if info.Conn != nil {
				addr = info.Conn.RemoteAddr().String()
			}
			r.record("GotConn", addr, connEnd.Sub(connStart), info.Reused, target, nil, caller)
		},
		DNSStart: func(info httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			addr := ""
			if len(info.Addrs) > 0 {
				addr = info.Addrs[0].String()
			}
			r.record("DNS", addr, time.Since(dnsStart), false, target, info.Err, caller)
		},
		TLSHandshakeStart: func() {
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			r.record("TLSHandshake", state.ServerName, time.Since(tlsStart), false, target, err, caller)
		},
		PutIdleConn: func(err error) {
			r.record("PutIdleConn", "", 0, false, target, err, caller)
		},
		GotFirstResponseByte: func() {
			r.record("GotFirstResponseByte", "", time.Since(connEnd), false, target, nil, caller)
		},
	}
}

// SortByDuration rewrites the csv file at path with the slowest
// events first, keeping the header on top
func SortByDuration(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	records, err := csv.NewReader(f).ReadAll()
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("reading http trace: %w", err)
	}
	if len(records) < 2 {
		return nil
	}

	rows := records[1:]
	duration := func(row []string) int64 {
		if len(row) <= durationColumn {
			return 0
		}
		d, _ := strconv.ParseInt(row[durationColumn], 10, 64)
		return d
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return duration(rows[i]) > duration(rows[j])
	})

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.WriteAll(records); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
