// Package menu models the backup menu's visibility as an explicit state
// machine. Transitions are driven by user events plus a transition-end
// notification from the presentation layer, instead of fixed timers, so the
// fade sequencing is deterministic and testable.
package menu

// State is the menu's visibility state.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// View reflects controller state into the presentation layer. The
// accessibility attributes (expanded on the trigger, hidden on the menu)
// must always agree with the visual state, so the controller sets them
// together on every transition.
type View interface {
	// SetExpanded sets the trigger's accessibility-expanded attribute.
	SetExpanded(expanded bool)
	// SetHidden sets the menu container's accessibility-hidden attribute.
	SetHidden(hidden bool)
	// SetVisible shows or removes the menu element entirely.
	SetVisible(visible bool)
	// SetInteractive enables or disables pointer interaction while the
	// opacity transition runs.
	SetInteractive(interactive bool)
}

// ClickTarget describes where a document-level click landed, relative to
// the widget.
type ClickTarget struct {
	InMenu    bool
	OnTrigger bool
}

// Controller owns the menu's show/hide state. A nil view (the page has no
// menu widget) yields a controller whose methods are all silent no-ops.
type Controller struct {
	view  View
	state State
}

// NewController returns a controller in the closed state. Passing a nil
// view disables the controller entirely.
func NewController(view View) *Controller {
	c := &Controller{view: view}
	if view != nil {
		// Reflect the initial closed state so attributes and visuals agree
		// from the first paint.
		view.SetExpanded(false)
		view.SetHidden(true)
		view.SetVisible(false)
		view.SetInteractive(false)
	}
	return c
}

// State returns the current visibility state.
func (c *Controller) State() State {
	return c.state
}

// Enabled reports whether the widget is present on the page.
func (c *Controller) Enabled() bool {
	return c.view != nil
}

// Toggle handles a trigger click: close when open, open when closed. The
// event plumbing must not also deliver the same click to HandleOutsideClick,
// or the click would immediately re-close the menu it just opened.
func (c *Controller) Toggle() {
	switch c.state {
	case StateOpen, StateOpening:
		c.Close()
	default:
		c.Open()
	}
}

// Open begins the opening transition: the menu becomes visible and
// interactive immediately, the accessibility attributes flip, and the state
// settles to open on the view's transition-end notification.
func (c *Controller) Open() {
	if c.view == nil {
		return
	}
	if c.state == StateOpen || c.state == StateOpening {
		return
	}
	c.state = StateOpening
	c.view.SetExpanded(true)
	c.view.SetHidden(false)
	c.view.SetVisible(true)
	c.view.SetInteractive(true)
}

// Close begins the closing transition: pointer interaction stops and the
// accessibility attributes flip immediately; the element is fully removed
// on transition end. Closing never surfaces an error.
func (c *Controller) Close() {
	if c.view == nil {
		return
	}
	if c.state == StateClosed || c.state == StateClosing {
		return
	}
	c.state = StateClosing
	c.view.SetExpanded(false)
	c.view.SetHidden(true)
	c.view.SetInteractive(false)
}

// HandleOutsideClick closes the menu when a click lands neither inside the
// menu nor on the trigger. A no-op while closed.
func (c *Controller) HandleOutsideClick(target ClickTarget) {
	if target.InMenu || target.OnTrigger {
		return
	}
	c.Close()
}

// HandleEscape closes the menu on a cancel-key press regardless of focus
// location. A no-op while closed.
func (c *Controller) HandleEscape() {
	c.Close()
}

// TransitionEnd settles an in-flight transition: opening becomes open, and
// closing becomes closed with the element removed. Panics from the view
// during the deferred hide are swallowed; hiding must never throw.
func (c *Controller) TransitionEnd() {
	switch c.state {
	case StateOpening:
		c.state = StateOpen
	case StateClosing:
		c.state = StateClosed
		c.hideQuietly()
	}
}

func (c *Controller) hideQuietly() {
	defer func() {
		_ = recover()
	}()
	c.view.SetVisible(false)
}
