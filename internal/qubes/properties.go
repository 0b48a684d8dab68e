package qubes

import (
	"fmt"
	"strings"
)

// Property is a decoded property.Get response.
type Property struct {
	Name  string
	Value string
	// Type is the daemon-side value type (str, int, bool, label, vm).
	Type string
	// IsDefault reports whether the value is inherited rather than
	// explicitly set on this object.
	IsDefault bool
}

// PropertyHolder implements generic property access for one remote
// object: the global scope (prefix mgmt.global., dest dom0) or a
// single qube (prefix mgmt.vm., dest set to the qube name). Every
// operation is exactly one dispatcher round trip.
type PropertyHolder struct {
	app          *App
	methodPrefix string
	dest         string
}

// GetProperty fetches and decodes one property.
func (h *PropertyHolder) GetProperty(name string) (Property, error) {
	data, err := h.app.Call(h.dest, h.methodPrefix+"property.Get", name, nil)
	if err != nil {
		return Property{}, err
	}
	return parseProperty(name, data)
}

// SetProperty assigns a property value, sent as the request payload.
func (h *PropertyHolder) SetProperty(name, value string) error {
	_, err := h.app.Call(h.dest, h.methodPrefix+"property.Set", name, []byte(value))
	return err
}

// ResetProperty reverts a property to its inherited default.
func (h *PropertyHolder) ResetProperty(name string) error {
	_, err := h.app.Call(h.dest, h.methodPrefix+"property.Reset", name, nil)
	return err
}

// ListProperties returns the property names the daemon exposes for
// this object, one per response line.
func (h *PropertyHolder) ListProperties() ([]string, error) {
	data, err := h.app.Call(h.dest, h.methodPrefix+"property.List", "", nil)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// parseProperty decodes the "default={True|False} type={type} {value}"
// body of a property.Get response. The value part may be empty and may
// contain spaces.
func parseProperty(name string, data []byte) (Property, error) {
	body := strings.TrimSuffix(string(data), "\n")
	parts := strings.SplitN(body, " ", 3)
	if len(parts) < 2 ||
		!strings.HasPrefix(parts[0], "default=") ||
		!strings.HasPrefix(parts[1], "type=") {
		return Property{}, fmt.Errorf("property %s: unparseable response %q", name, body)
	}
	prop := Property{
		Name:      name,
		Type:      strings.TrimPrefix(parts[1], "type="),
		IsDefault: strings.TrimPrefix(parts[0], "default=") == "True",
	}
	if len(parts) == 3 {
		prop.Value = parts[2]
	}
	return prop, nil
}
