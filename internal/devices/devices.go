package devices

import (
	"fmt"
	"sort"
	"strings"

	"qubesadm/internal/wire"
)

// Caller is the dispatcher seam this package needs; satisfied by
// *qubes.App.
type Caller interface {
	Call(dest, method, arg string, payload []byte) ([]byte, error)
}

// Info describes one device exposed by a backend domain.
type Info struct {
	BackendDomain string
	Ident         string
	Description   string
	Data          map[string]string
}

// ID returns the BACKEND+IDENT form used on the wire and in CLI
// arguments.
func (i Info) ID() string {
	return i.BackendDomain + "+" + i.Ident
}

// Assignment binds a backend device to a frontend qube, optionally
// with per-assignment options and a required-at-startup flag.
type Assignment struct {
	BackendDomain string
	Ident         string
	Required      bool
	Options       map[string]string
}

// ID returns the BACKEND+IDENT form used on the wire.
func (a Assignment) ID() string {
	return a.BackendDomain + "+" + a.Ident
}

// Collection addresses the devices of one class as seen from one qube.
type Collection struct {
	caller Caller
	vm     string
	class  string
}

// NewCollection builds a collection for the given qube and device
// class ("pci", "usb", "block", ...).
func NewCollection(caller Caller, vmName, class string) Collection {
	return Collection{caller: caller, vm: vmName, class: class}
}

func (c Collection) method(op string) string {
	return "mgmt.vm.device." + c.class + "." + op
}

// Available lists the devices this qube exposes as a backend.
func (c Collection) Available() ([]Info, error) {
	data, err := c.caller.Call(c.vm, c.method("Available"), "", nil)
	if err != nil {
		return nil, err
	}
	var infos []Info
	for _, line := range splitLines(data) {
		info, err := parseInfo(c.vm, line)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Attached lists assignments currently attached to this qube.
func (c Collection) Attached() ([]Assignment, error) {
	return c.listAssignments("Attached")
}

// Assigned lists persistent assignments of this qube.
func (c Collection) Assigned() ([]Assignment, error) {
	return c.listAssignments("Assigned")
}

func (c Collection) listAssignments(op string) ([]Assignment, error) {
	data, err := c.caller.Call(c.vm, c.method(op), "", nil)
	if err != nil {
		return nil, err
	}
	var assignments []Assignment
	for _, line := range splitLines(data) {
		a, err := parseAssignment(line)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}

// Attach attaches the device to this qube now.
func (c Collection) Attach(a Assignment) error {
	_, err := c.caller.Call(c.vm, c.method("Attach"), a.ID(), encodeOptions(a))
	return err
}

// Detach detaches the device from this qube.
func (c Collection) Detach(a Assignment) error {
	_, err := c.caller.Call(c.vm, c.method("Detach"), a.ID(), nil)
	return err
}

// Assign records a persistent assignment so the device attaches
// automatically on qube startup.
func (c Collection) Assign(a Assignment) error {
	_, err := c.caller.Call(c.vm, c.method("Assign"), a.ID(), encodeOptions(a))
	return err
}

// Unassign removes a persistent assignment.
func (c Collection) Unassign(a Assignment) error {
	_, err := c.caller.Call(c.vm, c.method("Unassign"), a.ID(), nil)
	return err
}

// ListClasses returns the device classes the daemon knows about.
func ListClasses(caller Caller) ([]string, error) {
	data, err := caller.Call("dom0", "mgmt.deviceclass.List", "", nil)
	if err != nil {
		return nil, err
	}
	return splitLines(data), nil
}

func splitLines(data []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseInfo decodes "ident key=value ... description=free text". The
// description key is always last so its value may contain spaces.
func parseInfo(backend, line string) (Info, error) {
	fields := strings.Fields(line)
	info := Info{BackendDomain: backend, Ident: fields[0], Data: map[string]string{}}
	for i := 1; i < len(fields); i++ {
		key, value, ok := strings.Cut(fields[i], "=")
		if !ok {
			return Info{}, &wire.ProtocolError{
				Detail: fmt.Sprintf("device entry %q: token %q is not key=value", info.Ident, fields[i]),
			}
		}
		if key == "description" {
			rest := append([]string{value}, fields[i+1:]...)
			info.Description = strings.Join(rest, " ")
			break
		}
		info.Data[key] = value
	}
	return info, nil
}

// parseAssignment decodes "backend+ident key=value ...". A required=yes
// token maps to the Required flag; everything else lands in Options.
func parseAssignment(line string) (Assignment, error) {
	fields := strings.Fields(line)
	backend, ident, ok := strings.Cut(fields[0], "+")
	if !ok {
		return Assignment{}, &wire.ProtocolError{
			Detail: fmt.Sprintf("assignment entry %q: missing BACKEND+IDENT", fields[0]),
		}
	}
	a := Assignment{BackendDomain: backend, Ident: ident, Options: map[string]string{}}
	for _, token := range fields[1:] {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			return Assignment{}, &wire.ProtocolError{
				Detail: fmt.Sprintf("assignment entry %q: token %q is not key=value", fields[0], token),
			}
		}
		if key == "required" {
			a.Required = value == "yes"
			continue
		}
		a.Options[key] = value
	}
	return a, nil
}

// encodeOptions serializes assignment options as the request payload:
// space-joined key=value tokens in sorted order, with the required
// flag always first.
func encodeOptions(a Assignment) []byte {
	tokens := []string{"required=" + yesNo(a.Required)}
	keys := make([]string, 0, len(a.Options))
	for key := range a.Options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		tokens = append(tokens, key+"="+a.Options[key])
	}
	return []byte(strings.Join(tokens, " "))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
