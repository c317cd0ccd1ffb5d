package export

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestReportName(t *testing.T) {
	day := time.Date(2024, 1, 9, 23, 0, 0, 0, time.UTC)
	if got, want := ReportName(day), "orders_report_2024-01-09.csv"; got != want {
		t.Errorf("ReportName() = %q, want %q", got, want)
	}
}

// TestUpload tests the PUT against an S3-compatible fake and the presigned link.
func TestUpload(t *testing.T) {
	var (
		mu      sync.Mutex
		gotPath string
		gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath, gotBody = r.URL.Path, string(b)
		mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exp, err := NewS3Exporter(context.Background(), srv.URL, "us-east-1", "reports", "key", "secret")
	if err != nil {
		t.Fatalf("NewS3Exporter() error = %v", err)
	}

	report := "Order ID,Date,Status,Total Amount,Items,Quantities\n"
	url, err := exp.Upload(context.Background(), "orders_report_2024-01-09.csv", []byte(report))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/reports/orders_report_2024-01-09.csv" {
		t.Errorf("PUT path = %q", gotPath)
	}
	if !strings.Contains(gotBody, report) {
		t.Errorf("PUT body = %q, want %q", gotBody, report)
	}
	if !strings.HasPrefix(url, srv.URL+"/reports/orders_report_2024-01-09.csv?") || !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("presigned URL = %q", url)
	}
}
