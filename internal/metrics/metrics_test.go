package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCrawl_CountsByOutcome(t *testing.T) {
	beforeOK := testutil.ToFloat64(CrawlTotal.WithLabelValues(OutcomeSuccess))
	beforeFail := testutil.ToFloat64(CrawlTotal.WithLabelValues("timeout"))

	RecordCrawl(OutcomeSuccess, 0.2)
	RecordCrawl(OutcomeSuccess, 0.3)
	RecordCrawl("timeout", 10)

	if got := testutil.ToFloat64(CrawlTotal.WithLabelValues(OutcomeSuccess)) - beforeOK; got != 2 {
		t.Fatalf("success delta=%v, want 2", got)
	}
	if got := testutil.ToFloat64(CrawlTotal.WithLabelValues("timeout")) - beforeFail; got != 1 {
		t.Fatalf("timeout delta=%v, want 1", got)
	}
}

func TestRecordFetchAndExtraction_Observe(t *testing.T) {
	RecordFetch(2048)
	RecordExtraction(120)
	if n := testutil.CollectAndCount(FetchBodyBytes); n != 1 {
		t.Fatalf("FetchBodyBytes series=%d, want 1", n)
	}
	if n := testutil.CollectAndCount(ExtractedTextChars); n != 1 {
		t.Fatalf("ExtractedTextChars series=%d, want 1", n)
	}
}
