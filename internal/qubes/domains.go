package qubes

import (
	"fmt"
	"sort"
	"strings"

	"qubesadm/internal/wire"
)

// Record is one parsed line of the VM list response: the qube name and
// its space-separated key=value properties.
type Record struct {
	Name  string
	Props map[string]string
}

// VMCollection is a lazily populated, force-invalidatable cache of the
// daemon's VM list. A nil map means unpopulated; every read operation
// refreshes at most once per process lifetime unless forced.
type VMCollection struct {
	app *App
	vms map[string]Record
}

func newVMCollection(app *App) *VMCollection {
	return &VMCollection{app: app}
}

// Refresh populates the cache from one mgmt.vm.List call. It is a
// no-op when the cache is already populated and force is false. The
// map is replaced atomically: a call or parse failure leaves the
// previous contents in place.
func (c *VMCollection) Refresh(force bool) error {
	if !force && c.vms != nil {
		return nil
	}
	data, err := c.app.Call("dom0", "mgmt.vm.List", "", nil)
	if err != nil {
		return err
	}
	parsed, err := parseVMList(data)
	if err != nil {
		return err
	}
	c.vms = parsed
	return nil
}

func parseVMList(data []byte) (map[string]Record, error) {
	vms := make(map[string]Record)
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		rec := Record{Name: fields[0], Props: make(map[string]string, len(fields)-1)}
		for _, token := range fields[1:] {
			key, value, ok := strings.Cut(token, "=")
			if !ok {
				return nil, &wire.ProtocolError{
					Detail: fmt.Sprintf("VM list entry %q: token %q is not key=value", rec.Name, token),
				}
			}
			rec.Props[key] = value
		}
		vms[rec.Name] = rec
	}
	return vms, nil
}

// Contains reports whether the daemon knows a qube by this name,
// refreshing the cache if needed.
func (c *VMCollection) Contains(name string) (bool, error) {
	if err := c.Refresh(false); err != nil {
		return false, err
	}
	_, ok := c.vms[name]
	return ok, nil
}

// Get returns a handle to the named qube, or ErrVMNotFound when the
// cache (refreshed if needed) has no such entry.
func (c *VMCollection) Get(name string) (*VM, error) {
	if err := c.Refresh(false); err != nil {
		return nil, err
	}
	rec, ok := c.vms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVMNotFound, name)
	}
	return newVM(c.app, rec.Name, rec.Props["class"]), nil
}

// Names returns the cached qube names, sorted for stable output.
func (c *VMCollection) Names() ([]string, error) {
	if err := c.Refresh(false); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(c.vms))
	for name := range c.vms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// All returns a fresh handle per cached qube, sorted by name.
func (c *VMCollection) All() ([]*VM, error) {
	names, err := c.Names()
	if err != nil {
		return nil, err
	}
	vms := make([]*VM, 0, len(names))
	for _, name := range names {
		vms = append(vms, newVM(c.app, name, c.vms[name].Props["class"]))
	}
	return vms, nil
}

// Records returns copies of the cached entries, sorted by name. The
// cache retains exclusive ownership of its own maps.
func (c *VMCollection) Records() ([]Record, error) {
	names, err := c.Names()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(names))
	for _, name := range names {
		rec := c.vms[name]
		props := make(map[string]string, len(rec.Props))
		for k, v := range rec.Props {
			props[k] = v
		}
		records = append(records, Record{Name: rec.Name, Props: props})
	}
	return records, nil
}
