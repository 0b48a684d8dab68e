package qubes_test

import (
	"errors"
	"reflect"
	"testing"

	"qubesadm/internal/qubes"
	"qubesadm/internal/wire"
)

const vmListFixture = "vm1 class=AppVM state=running\nvm2 class=TemplateVM state=halted\n"

func newListApp(t *testing.T) (*qubes.App, *fakeCaller) {
	t.Helper()
	caller := &fakeCaller{respond: func(req wire.Request) ([]byte, error) {
		if req.Method != "mgmt.vm.List" || req.Dest != "dom0" {
			t.Errorf("unexpected call: %+v", req)
		}
		return []byte("0\x00" + vmListFixture), nil
	}}
	return qubes.New(caller, nil), caller
}

func TestRefreshPopulatesOnce(t *testing.T) {
	app, caller := newListApp(t)

	names, err := app.Domains.Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"vm1", "vm2"}) {
		t.Fatalf("unexpected names: %v", names)
	}
	if len(caller.calls) != 1 {
		t.Fatalf("expected 1 list call, got %d", len(caller.calls))
	}

	// Unforced reads hit the cache.
	if _, err := app.Domains.Names(); err != nil {
		t.Fatalf("Names (cached): %v", err)
	}
	if ok, err := app.Domains.Contains("vm1"); err != nil || !ok {
		t.Fatalf("Contains vm1: ok=%v err=%v", ok, err)
	}
	if err := app.Domains.Refresh(false); err != nil {
		t.Fatalf("Refresh(false): %v", err)
	}
	if len(caller.calls) != 1 {
		t.Fatalf("cached reads issued extra calls: %d", len(caller.calls))
	}

	// Force invalidates and re-fetches exactly once.
	if err := app.Domains.Refresh(true); err != nil {
		t.Fatalf("Refresh(true): %v", err)
	}
	if len(caller.calls) != 2 {
		t.Fatalf("expected exactly one more call after force, got %d", len(caller.calls))
	}
}

func TestGetReturnsHandleOrNotFound(t *testing.T) {
	app, _ := newListApp(t)

	vm, err := app.Domains.Get("vm1")
	if err != nil {
		t.Fatalf("Get vm1: %v", err)
	}
	if vm.Name != "vm1" || vm.Class != "AppVM" {
		t.Fatalf("unexpected handle: %+v", vm)
	}

	_, err = app.Domains.Get("vm3")
	if !errors.Is(err, qubes.ErrVMNotFound) {
		t.Fatalf("expected ErrVMNotFound, got %v", err)
	}
}

func TestAllYieldsFreshHandles(t *testing.T) {
	app, caller := newListApp(t)

	first, err := app.Domains.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	second, err := app.Domains.All()
	if err != nil {
		t.Fatalf("All (cached): %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 handles each, got %d and %d", len(first), len(second))
	}
	if first[0] == second[0] {
		t.Fatal("expected a fresh wrapper per iteration")
	}
	if len(caller.calls) != 1 {
		t.Fatalf("iteration should reuse the cache, got %d calls", len(caller.calls))
	}
}

func TestRecordsAreCopies(t *testing.T) {
	app, _ := newListApp(t)

	records, err := app.Domains.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 || records[0].Props["state"] != "running" {
		t.Fatalf("unexpected records: %+v", records)
	}
	records[0].Props["state"] = "mutated"

	again, err := app.Domains.Records()
	if err != nil {
		t.Fatalf("Records (cached): %v", err)
	}
	if again[0].Props["state"] != "running" {
		t.Fatal("cache-owned record leaked to the caller")
	}
}

func TestRefreshKeepsOldCacheOnFailure(t *testing.T) {
	healthy := true
	caller := &fakeCaller{respond: func(req wire.Request) ([]byte, error) {
		if healthy {
			return []byte("0\x00" + vmListFixture), nil
		}
		return nil, errors.New("connect to qubesd: connection refused")
	}}
	app := qubes.New(caller, nil)

	if err := app.Domains.Refresh(false); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	healthy = false
	if err := app.Domains.Refresh(true); err == nil {
		t.Fatal("expected forced refresh to fail")
	}
	// Previous contents survive a failed replacement.
	ok, err := app.Domains.Contains("vm1")
	if err != nil || !ok {
		t.Fatalf("expected stale cache to remain usable: ok=%v err=%v", ok, err)
	}
}

func TestRefreshRejectsMalformedListEntries(t *testing.T) {
	caller := &fakeCaller{respond: func(wire.Request) ([]byte, error) {
		return []byte("0\x00vm1 class=AppVM\nvm2 oops\n"), nil
	}}
	app := qubes.New(caller, nil)

	err := app.Domains.Refresh(false)
	var protoErr *wire.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %T (%v)", err, err)
	}
}
