package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/ch4nbin/stigma-dei-policy-pipeline/models"
)

type stubExtractor struct {
	name    string
	records []models.Record
	err     error
	calls   int
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Extract(ctx context.Context) ([]models.Record, error) {
	s.calls++
	return s.records, s.err
}

func TestWithFallback_PrimaryWins(t *testing.T) {
	primary := &stubExtractor{name: "document", records: []models.Record{{RowID: "1"}}}
	fallback := &stubExtractor{name: "live"}

	records, strategy, err := WithFallback(context.Background(), primary, fallback)
	if err != nil {
		t.Fatalf("WithFallback: %v", err)
	}
	if strategy != "document" {
		t.Errorf("strategy = %q, want %q", strategy, "document")
	}
	if len(records) != 1 || records[0].RowID != "1" {
		t.Errorf("records = %v", records)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback ran %d times despite a healthy primary", fallback.calls)
	}
}

func TestWithFallback_FallsBackOnPrimaryError(t *testing.T) {
	primary := &stubExtractor{name: "document", err: errors.New("bad markup")}
	fallback := &stubExtractor{name: "live", records: []models.Record{{RowID: "2"}}}

	records, strategy, err := WithFallback(context.Background(), primary, fallback)
	if err != nil {
		t.Fatalf("WithFallback: %v", err)
	}
	if strategy != "live" {
		t.Errorf("strategy = %q, want %q", strategy, "live")
	}
	if len(records) != 1 || records[0].RowID != "2" {
		t.Errorf("records = %v", records)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls: primary %d, fallback %d", primary.calls, fallback.calls)
	}
}

func TestWithFallback_BothFail(t *testing.T) {
	primary := &stubExtractor{name: "document", err: errors.New("bad markup")}
	fallback := &stubExtractor{name: "live", err: errors.New("no rows")}

	records, strategy, err := WithFallback(context.Background(), primary, fallback)
	if err == nil {
		t.Fatal("expected an error when both strategies fail")
	}
	if !models.HasCode(err, models.ErrCodeExtraction) {
		t.Errorf("error should carry the extraction code: %v", err)
	}
	if records != nil || strategy != "" {
		t.Errorf("failed dispatch should return nothing, got %v / %q", records, strategy)
	}
}
