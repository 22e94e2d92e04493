package arena

// EventType names something the presentation layer may want to react to
type EventType string

const (
	EventEntitySpawned EventType = "entity_spawned"
	EventEntityRemoved EventType = "entity_removed"
	EventTankDestroyed EventType = "tank_destroyed"
	EventRoundOver     EventType = "round_over"
	EventSceneChanged  EventType = "scene_changed"
	EventNotice        EventType = "notice"
	EventMenuChanged   EventType = "menu_changed"
)

// Event is delivered synchronously from inside the simulation step
type Event struct {
	Type   EventType
	Entity Entity
	Text   string
	Won    bool
}

// Listener receives events
type Listener interface {
	OnEvent(e Event)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Event)

// OnEvent calls f
func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Dispatcher fans events out to subscribed listeners
type Dispatcher struct {
	listeners map[EventType][]Listener
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[EventType][]Listener)}
}

// Subscribe registers l for events of type t
func (d *Dispatcher) Subscribe(t EventType, l Listener) {
	d.listeners[t] = append(d.listeners[t], l)
}

// Dispatch sends e to every listener of its type
func (d *Dispatcher) Dispatch(e Event) {
	for _, l := range d.listeners[e.Type] {
		l.OnEvent(e)
	}
}
