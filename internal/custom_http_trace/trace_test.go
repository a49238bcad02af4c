// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package custom_http_trace

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Helper function to create a test CSV file
func createTestCSV(t *testing.T, filePath string, records [][]string) {
	file, err := os.Create(filePath)
	require.NoError(t, err)
	defer file.Close()

	writer := csv.NewWriter(file)
	require.NoError(t, writer.WriteAll(records))
}

// Helper function to read the CSV file for validation
func readCSV(t *testing.T, filePath string) [][]string {
	file, err := os.Open(filePath)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return records
}

func TestSortByDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "http_trace.csv")

	testData := [][]string{
		Header,
		{"01-01 11:01:01", "GotConn", "300", "192.168.1.1", "false", "http://example.com", "", "caller1"},
		{"01-01 11:01:02", "GotConn", "100", "192.168.1.2", "false", "http://example.com", "", "caller2"},
		{"01-01 11:01:03", "GotConn", "200", "192.168.1.3", "false", "http://example.com", "", "caller3"},
		{"01-01 11:01:04", "GotConn", "900", "192.168.1.3", "false", "http://example.com", "", "caller3"},
		{"01-01 11:01:04", "GotConn", "400", "192.168.1.3", "false", "http://example.com", "", "caller3"},
	}
	createTestCSV(t, path, testData)

	require.NoError(t, SortByDuration(path))

	sortedData := readCSV(t, path)
	require.Equal(t, testData[0], sortedData[0])
	require.Len(t, sortedData, len(testData))

	require.Equal(t, "900", sortedData[1][durationColumn])
	require.Equal(t, "400", sortedData[2][durationColumn])
	require.Equal(t, "300", sortedData[3][durationColumn])
	require.Equal(t, "200", sortedData[4][durationColumn])
	require.Equal(t, "100", sortedData[5][durationColumn])
}

func TestWithClientTraceDisabled(t *testing.T) {
	ctx := context.Background()
	traced := WithClientTrace(ctx, "http://example.com")
	require.Nil(t, httptrace.ContextClientTrace(traced))
}

func TestRecordsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "http_trace.csv")
	stop, err := Enable(path)
	require.NoError(t, err)

	ctx := WithClientTrace(context.Background(), srv.URL)
	require.NotNil(t, httptrace.ContextClientTrace(ctx))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.NoError(t, stop())

	records := readCSV(t, path)
	require.Equal(t, Header, records[0])
	require.Greater(t, len(records), 1)

	events := make(map[string]bool)
	for _, row := range records[1:] {
		events[row[1]] = true
		require.Equal(t, srv.URL, row[5])
		require.Contains(t, row[7], "TestRecordsRequests")
	}
	require.True(t, events["GotConn"])

	// recording stops with the returned function
	require.Nil(t, httptrace.ContextClientTrace(WithClientTrace(context.Background(), srv.URL)))
}
