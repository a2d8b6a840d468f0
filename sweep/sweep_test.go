package sweep

import (
	"testing"

	"github.com/jacentio/strata/store"
)

func TestNew_DefaultsLogger(t *testing.T) {
	sw := New(store.New(store.DefaultConfig()), nil)
	if sw.logger == nil {
		t.Error("expected a default logger when none is supplied")
	}
	if sw.store == nil {
		t.Error("expected the store to be retained")
	}
}

func TestReport_ZeroValue(t *testing.T) {
	var r Report
	if r.Parents != 0 || r.Orphans != 0 || r.ChunksDeleted != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}
}
