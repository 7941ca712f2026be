//go:build cgo

package store

import (
	"context"
	"testing"
)

func TestCGODriver(t *testing.T) {
	st, err := OpenSQLiteStore(DriverCGO, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteStore(%s) failed: %v", DriverCGO, err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.SaveSession(ctx, testSession("cgo")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	loaded, err := st.LoadSession(ctx, "cgo")
	if err != nil || loaded == nil {
		t.Fatalf("Expected session via cgo driver, got %v, %v", loaded, err)
	}
	if loaded.Phase != "GlobalAnalysisComplete" {
		t.Errorf("Phase mismatch: got %s", loaded.Phase)
	}
}
