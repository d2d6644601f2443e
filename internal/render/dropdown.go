package render

// DropdownState is the state of one fragment's menu.
type DropdownState string

const (
	Closed DropdownState = "closed"
	Open   DropdownState = "open"
)

// Dropdown is the menu state machine of one painted fragment. It survives
// repaints of the same key and is dropped with it.
type Dropdown struct {
	state DropdownState
}

// Toggle opens a closed dropdown and closes an open one.
func (d *Dropdown) Toggle() {
	if d.state == Open {
		d.state = Closed
		return
	}
	d.state = Open
}

// Close closes the dropdown. Closing a closed dropdown is a no-op.
func (d *Dropdown) Close() {
	d.state = Closed
}

// State returns the current state.
func (d *Dropdown) State() DropdownState {
	if d.state == "" {
		return Closed
	}
	return d.state
}
