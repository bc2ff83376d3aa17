package events

import (
	"encoding/binary"
	"sync"

	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/tendermint/go-amino"
	db "github.com/tendermint/tm-db"
)

// IEventsDB is the append-only per-height audit log.
type IEventsDB interface {
	AddEvent(event Event)
	LoadEvents(height uint64) Events
	CommitEvents(height uint64) error
}

var cdc = amino.NewCodec()

var addressesKey = []byte("addresses")

func init() {
	cdc.RegisterInterface((*Event)(nil), nil)
	cdc.RegisterInterface((*compact)(nil), nil)
	cdc.RegisterConcrete(&trade{}, TypeTradeEvent, nil)
	cdc.RegisterConcrete(&authorize{}, TypeAuthorizeEvent, nil)
	cdc.RegisterConcrete(&GraduationEvent{}, TypeGraduationEvent, nil)
}

type eventsStore struct {
	sync.RWMutex
	db        db.DB
	pending   pendingEvents
	loaded    bool
	addresses []types.Address
	addressID map[types.Address]uint32
	dirty     bool
}

type pendingEvents struct {
	sync.Mutex
	items Events
}

func NewEventsStore(db db.DB) IEventsDB {
	return &eventsStore{
		db:        db,
		pending:   pendingEvents{},
		addressID: make(map[types.Address]uint32),
	}
}

func (store *eventsStore) AddEvent(event Event) {
	store.pending.Lock()
	defer store.pending.Unlock()

	store.pending.items = append(store.pending.items, event)
}

func (store *eventsStore) CommitEvents(height uint64) error {
	store.loadCache()

	store.pending.Lock()
	items := store.pending.items
	store.pending.items = nil
	store.pending.Unlock()

	data := make([]compact, 0, len(items))
	for _, item := range items {
		if event, ok := item.(addressed); ok {
			data = append(data, event.convert(store.saveAddress(event.address())))
			continue
		}
		data = append(data, item)
	}

	bytes, err := cdc.MarshalBinaryBare(data)
	if err != nil {
		return err
	}
	if bytes == nil {
		bytes = []byte{}
	}

	if err := store.saveAddresses(); err != nil {
		return err
	}

	store.Lock()
	defer store.Unlock()

	return store.db.Set(uint64ToBytes(height), bytes)
}

func (store *eventsStore) LoadEvents(height uint64) Events {
	store.loadCache()

	store.RLock()
	has, err := store.db.Has(uint64ToBytes(height))
	if err != nil {
		panic(err)
	}
	if !has {
		store.RUnlock()
		return nil
	}

	bytes, err := store.db.Get(uint64ToBytes(height))
	store.RUnlock()
	if err != nil {
		panic(err)
	}

	resultEvents := make(Events, 0)
	if len(bytes) == 0 {
		return resultEvents
	}

	var items []compact
	if err := cdc.UnmarshalBinaryBare(bytes, &items); err != nil {
		panic(err)
	}

	for _, item := range items {
		if stored, ok := item.(packed); ok {
			store.RLock()
			address := store.addresses[stored.addressID()]
			store.RUnlock()
			resultEvents = append(resultEvents, stored.compile(address))
			continue
		}
		resultEvents = append(resultEvents, item.(Event))
	}

	return resultEvents
}

func (store *eventsStore) loadCache() {
	store.Lock()
	defer store.Unlock()

	if store.loaded {
		return
	}
	store.loaded = true

	bytes, err := store.db.Get(addressesKey)
	if err != nil {
		panic(err)
	}
	if len(bytes) == 0 {
		return
	}

	var table addressTable
	if err := cdc.UnmarshalBinaryBare(bytes, &table); err != nil {
		panic(err)
	}

	store.addresses = table.Addresses
	for id, address := range store.addresses {
		store.addressID[address] = uint32(id)
	}
}

func (store *eventsStore) saveAddress(address types.Address) uint32 {
	store.Lock()
	defer store.Unlock()

	if id, ok := store.addressID[address]; ok {
		return id
	}

	id := uint32(len(store.addresses))
	store.addresses = append(store.addresses, address)
	store.addressID[address] = id
	store.dirty = true

	return id
}

func (store *eventsStore) saveAddresses() error {
	store.Lock()
	defer store.Unlock()

	if !store.dirty {
		return nil
	}
	store.dirty = false

	bytes, err := cdc.MarshalBinaryBare(&addressTable{Addresses: store.addresses})
	if err != nil {
		return err
	}

	return store.db.Set(addressesKey, bytes)
}

type addressTable struct {
	Addresses []types.Address
}

func uint64ToBytes(height uint64) []byte {
	var h = make([]byte, 8)
	binary.BigEndian.PutUint64(h, height)

	return h
}

// MockEvents swallows everything, for hosts that run without an audit
// log.
type MockEvents struct{}

func (e MockEvents) AddEvent(event Event)            {}
func (e MockEvents) LoadEvents(height uint64) Events { return nil }
func (e MockEvents) CommitEvents(height uint64) error {
	return nil
}
