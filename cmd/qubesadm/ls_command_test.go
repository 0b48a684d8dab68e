package main

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"qubesadm/internal/qubes"
	"qubesadm/internal/wire"
)

// fakeCaller answers dispatcher calls from a canned routing function.
type fakeCaller struct {
	respond func(req wire.Request) ([]byte, error)
}

func (f *fakeCaller) Call(req wire.Request) ([]byte, error) {
	return f.respond(req)
}

func newFakeApp(respond func(req wire.Request) ([]byte, error)) *qubes.App {
	return qubes.New(&fakeCaller{respond: respond}, nil)
}

func vmListFixtureApp() func(req wire.Request) ([]byte, error) {
	labels := map[string]string{"dom0": "black", "vault": "purple", "work": "blue"}
	return func(req wire.Request) ([]byte, error) {
		switch {
		case req.Method == "mgmt.vm.List":
			return []byte("0\x00work class=AppVM state=running\ndom0 class=AdminVM state=running\nvault class=AppVM state=halted\n"), nil
		case req.Method == "mgmt.vm.property.Get" && req.Arg == "label":
			return []byte("0\x00default=False type=label " + labels[req.Dest]), nil
		}
		return nil, fmt.Errorf("unexpected call %s to %s", req.Method, req.Dest)
	}
}

func TestBuildVMListEntries(t *testing.T) {
	app := newFakeApp(vmListFixtureApp())

	entries, err := buildVMListEntries(app)
	if err != nil {
		t.Fatalf("buildVMListEntries: %v", err)
	}

	want := []vmListEntry{
		{Name: "dom0", State: "running", Class: "AdminVM", Label: "black"},
		{Name: "vault", State: "halted", Class: "AppVM", Label: "purple"},
		{Name: "work", State: "running", Class: "AppVM", Label: "blue"},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("got %+v, want %+v", entries, want)
	}
}

func TestBuildVMListEntriesDropsVanishedQube(t *testing.T) {
	base := vmListFixtureApp()
	app := newFakeApp(func(req wire.Request) ([]byte, error) {
		if req.Dest == "vault" {
			return []byte("2\x00QubesNoSuchVMError\x00no such qube: vault"), nil
		}
		return base(req)
	})

	entries, err := buildVMListEntries(app)
	if err != nil {
		t.Fatalf("buildVMListEntries: %v", err)
	}
	for _, e := range entries {
		if e.Name == "vault" {
			t.Fatalf("vanished qube still listed: %+v", entries)
		}
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
}

func TestRenderRowsPlainIsPipeable(t *testing.T) {
	out := renderRows("plain", []string{"NAME", "STATE"}, [][]string{
		{"work", "running"},
		{"vault", "halted"},
	})
	if out != "work running\nvault halted\n" {
		t.Fatalf("unexpected plain output: %q", out)
	}
}

func TestRenderRowsTableIncludesHeaders(t *testing.T) {
	out := renderRows("table", []string{"NAME", "STATE"}, [][]string{{"work", "running"}})
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "work") {
		t.Fatalf("unexpected table output: %q", out)
	}
}

func TestWriteJSONIndentsOutput(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	err := writeJSON(cmd, []vmListEntry{{Name: "work", State: "running", Class: "AppVM", Label: "blue"}})
	if err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\"label\": \"blue\"") {
		t.Fatalf("missing label field: %q", out)
	}
	if !strings.HasPrefix(out, "[\n  {") || !strings.HasSuffix(out, "\n") {
		t.Fatalf("unexpected JSON shape: %q", out)
	}
}

func TestResolveOutputFormatHonorsExplicitChoice(t *testing.T) {
	if got := resolveOutputFormat("plain"); got != "plain" {
		t.Fatalf("explicit plain: got %q", got)
	}
	if got := resolveOutputFormat("table"); got != "table" {
		t.Fatalf("explicit table: got %q", got)
	}
	// Auto under tests (no TTY) resolves to plain.
	if got := resolveOutputFormat("auto"); got != "plain" {
		t.Fatalf("auto without TTY: got %q", got)
	}
}
