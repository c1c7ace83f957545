package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventEntityStored  EventType = "EntityStored"
	EventEntityRemoved EventType = "EntityRemoved"
	EventCacheLoaded   EventType = "CacheLoaded"
	EventConfigLoaded  EventType = "ConfigLoaded"
	EventConfigSaved   EventType = "ConfigSaved"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// EntityStoredEvent is emitted when the object cache inserts or overwrites an entity
type EntityStoredEvent struct {
	Entity  Entity
	Created bool   // false when an existing entity was overwritten
	Version uint64 // cache mutation counter after this change
}

func (e EntityStoredEvent) Type() EventType { return EventEntityStored }

// EntityRemovedEvent is emitted when an entity leaves the object cache
type EntityRemovedEvent struct {
	Entity  Entity
	Version uint64
}

func (e EntityRemovedEvent) Type() EventType { return EventEntityRemoved }

// CacheLoadedEvent is emitted after a cache snapshot file has been read
type CacheLoadedEvent struct {
	Path  string
	Count int
}

func (e CacheLoadedEvent) Type() EventType { return EventCacheLoaded }

// ConfigLoadedEvent is emitted when configuration is loaded
type ConfigLoadedEvent struct {
	Path     string
	Defaults bool // no file existed, defaults were used
}

func (e ConfigLoadedEvent) Type() EventType { return EventConfigLoaded }

// ConfigSavedEvent is emitted when configuration is saved
type ConfigSavedEvent struct {
	Path string
}

func (e ConfigSavedEvent) Type() EventType { return EventConfigSaved }
