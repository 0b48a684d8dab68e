package qubes

// VM is a client-side handle to one qube. It carries no state beyond
// the name and class captured from the VM list; everything else is a
// property round trip.
type VM struct {
	PropertyHolder

	Name  string
	Class string
}

func newVM(app *App, name, class string) *VM {
	return &VM{
		PropertyHolder: PropertyHolder{app: app, methodPrefix: "mgmt.vm.", dest: name},
		Name:           name,
		Class:          class,
	}
}

func (vm *VM) String() string {
	return vm.Name
}
