package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordersAreNoopBeforeRegister(t *testing.T) {
	if clickIngestTotal != nil {
		t.Skip("metrics already registered in this process")
	}
	RecordClickIngest(ClickResultCreated)
	ObserveAggregation("rank_colleges", time.Millisecond, errors.New("boom"))
}

func TestClickIngestAndAggregationCounters(t *testing.T) {
	MustRegister()
	MustRegister()

	before := testutil.ToFloat64(clickIngestTotal.WithLabelValues(ClickResultDuplicate))
	RecordClickIngest(ClickResultDuplicate)
	RecordClickIngest(" ")
	if got := testutil.ToFloat64(clickIngestTotal.WithLabelValues(ClickResultDuplicate)); got != before+1 {
		t.Fatalf("expected duplicate counter %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(clickIngestTotal.WithLabelValues("unknown")); got < 1 {
		t.Fatalf("expected blank result to count as unknown, got %v", got)
	}

	failuresBefore := testutil.ToFloat64(aggregationFailures.WithLabelValues("rank_students"))
	ObserveAggregation("rank_students", 5*time.Millisecond, nil)
	ObserveAggregation("rank_students", 5*time.Millisecond, errors.New("scan failed"))
	if got := testutil.ToFloat64(aggregationFailures.WithLabelValues("rank_students")); got != failuresBefore+1 {
		t.Fatalf("expected one failure recorded, got %v", got-failuresBefore)
	}
}
