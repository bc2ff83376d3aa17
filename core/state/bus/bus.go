package bus

import (
	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
)

// Bus wires the state buckets to each other without direct imports.
type Bus struct {
	tokens  Tokens
	checker Checker
	events  eventsdb.IEventsDB
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SetTokens(tokens Tokens) {
	b.tokens = tokens
}

func (b *Bus) Tokens() Tokens {
	return b.tokens
}

func (b *Bus) SetChecker(checker Checker) {
	b.checker = checker
}

func (b *Bus) Checker() Checker {
	return b.checker
}

func (b *Bus) SetEvents(events eventsdb.IEventsDB) {
	b.events = events
}

func (b *Bus) Events() eventsdb.IEventsDB {
	return b.events
}
