package session

// EventType identifies a session transition
type EventType int

const (
	EventLogin EventType = iota + 1
	EventLogout
	EventExpired
	EventAuthRequired
)

func (t EventType) String() string {
	switch t {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	case EventExpired:
		return "expired"
	case EventAuthRequired:
		return "auth_required"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the transition has been applied
type Event struct {
	Type EventType

	// User is the user the event concerns, if known
	User *User

	// Endpoint is the request that caused EventExpired or EventAuthRequired
	Endpoint string
}

// Subscribe registers fn for every future event and returns a function that removes it
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) publish(event Event) {
	m.mu.RLock()
	listeners := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

// Navigator is whatever can move the user between screens
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// DefaultLoginPath is where RedirectToLogin sends the user
const DefaultLoginPath = "/login"

// RedirectToLogin returns a listener that navigates to loginPath when the session expired or a
// protected call was attempted without one, unless the navigator is already there.
func RedirectToLogin(nav Navigator, loginPath string) func(Event) {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return func(event Event) {
		if event.Type != EventExpired && event.Type != EventAuthRequired {
			return
		}
		if nav.CurrentPath() == loginPath {
			return
		}
		nav.Navigate(loginPath)
	}
}
