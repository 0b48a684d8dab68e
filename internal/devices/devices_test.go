package devices_test

import (
	"errors"
	"testing"

	"qubesadm/internal/devices"
	"qubesadm/internal/wire"
)

type call struct {
	dest, method, arg string
	payload           string
}

type fakeCaller struct {
	calls   []call
	respond func(dest, method, arg string) ([]byte, error)
}

func (f *fakeCaller) Call(dest, method, arg string, payload []byte) ([]byte, error) {
	f.calls = append(f.calls, call{dest: dest, method: method, arg: arg, payload: string(payload)})
	return f.respond(dest, method, arg)
}

func TestAvailableParsesDescriptions(t *testing.T) {
	caller := &fakeCaller{respond: func(dest, method, arg string) ([]byte, error) {
		if dest != "sys-usb" || method != "mgmt.vm.device.usb.Available" {
			t.Errorf("unexpected call %s %s", dest, method)
		}
		return []byte("2-1 vendor=Logitech description=USB Receiver\n2-3 description=Mass Storage Device\n"), nil
	}}
	col := devices.NewCollection(caller, "sys-usb", "usb")

	infos, err := col.Available()
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(infos))
	}
	if infos[0].Ident != "2-1" || infos[0].Description != "USB Receiver" ||
		infos[0].Data["vendor"] != "Logitech" {
		t.Fatalf("unexpected first device: %+v", infos[0])
	}
	if infos[1].ID() != "sys-usb+2-3" || infos[1].Description != "Mass Storage Device" {
		t.Fatalf("unexpected second device: %+v", infos[1])
	}
}

func TestAttachedParsesAssignments(t *testing.T) {
	caller := &fakeCaller{respond: func(dest, method, arg string) ([]byte, error) {
		return []byte("sys-usb+2-1 required=yes read-only=yes\nsys-net+0000:00:14.0 required=no\n"), nil
	}}
	col := devices.NewCollection(caller, "work", "usb")

	assignments, err := col.Attached()
	if err != nil {
		t.Fatalf("Attached: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assignments))
	}
	first := assignments[0]
	if first.BackendDomain != "sys-usb" || first.Ident != "2-1" || !first.Required ||
		first.Options["read-only"] != "yes" {
		t.Fatalf("unexpected assignment: %+v", first)
	}
	if assignments[1].Required {
		t.Fatal("second assignment should not be required")
	}
}

func TestAttachEncodesArgAndOptions(t *testing.T) {
	caller := &fakeCaller{respond: func(dest, method, arg string) ([]byte, error) {
		return nil, nil
	}}
	col := devices.NewCollection(caller, "work", "block")

	err := col.Attach(devices.Assignment{
		BackendDomain: "sys-usb",
		Ident:         "sda",
		Required:      false,
		Options:       map[string]string{"read-only": "yes", "frontend-dev": "xvdi"},
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if len(caller.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(caller.calls))
	}
	got := caller.calls[0]
	if got.dest != "work" || got.method != "mgmt.vm.device.block.Attach" || got.arg != "sys-usb+sda" {
		t.Fatalf("unexpected call: %+v", got)
	}
	if got.payload != "required=no frontend-dev=xvdi read-only=yes" {
		t.Fatalf("unexpected payload: %q", got.payload)
	}
}

func TestDetachAndUnassignCarryNoPayload(t *testing.T) {
	caller := &fakeCaller{respond: func(dest, method, arg string) ([]byte, error) {
		return nil, nil
	}}
	col := devices.NewCollection(caller, "work", "pci")
	a := devices.Assignment{BackendDomain: "dom0", Ident: "0000:00:14.0"}

	if err := col.Detach(a); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if err := col.Unassign(a); err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	for _, c := range caller.calls {
		if c.payload != "" {
			t.Fatalf("expected empty payload for %s, got %q", c.method, c.payload)
		}
		if c.arg != "dom0+0000:00:14.0" {
			t.Fatalf("unexpected arg: %q", c.arg)
		}
	}
}

func TestListClasses(t *testing.T) {
	caller := &fakeCaller{respond: func(dest, method, arg string) ([]byte, error) {
		if dest != "dom0" || method != "mgmt.deviceclass.List" {
			t.Errorf("unexpected call %s %s", dest, method)
		}
		return []byte("block\npci\nusb\n"), nil
	}}
	classes, err := devices.ListClasses(caller)
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(classes) != 3 || classes[2] != "usb" {
		t.Fatalf("unexpected classes: %v", classes)
	}
}

func TestMalformedAssignmentLine(t *testing.T) {
	caller := &fakeCaller{respond: func(dest, method, arg string) ([]byte, error) {
		return []byte("not-an-assignment\n"), nil
	}}
	col := devices.NewCollection(caller, "work", "usb")

	_, err := col.Assigned()
	var protoErr *wire.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %T (%v)", err, err)
	}
}
