package markets

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/formula"
)

// Model is the state of a single bonding-curve market. Curve parameters
// are immutable after creation, the rest changes trade by trade.
type Model struct {
	Authority      types.Address
	Params         formula.Params
	Supply         *big.Int
	Reserve        *big.Int
	TotalCollected *big.Int
	Authorized     bool
	Paused         bool
	Graduated      bool

	id        types.TokenID
	curve     formula.Curve
	markDirty func(id types.TokenID)
	lock      sync.RWMutex
}

func (m *Model) ID() types.TokenID {
	return m.id
}

// Curve builds the pricing curve for the market's parameters on first
// use. Parameters were validated at creation, so a failure here is a
// state corruption.
func (m *Model) Curve() formula.Curve {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.curve == nil {
		curve, err := formula.NewCurve(m.Params)
		if err != nil {
			panic(fmt.Sprintf("market %d has invalid curve parameters: %s", m.id.Uint32(), err))
		}
		m.curve = curve
	}

	return m.curve
}

func (m *Model) GetSupply() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return big.NewInt(0).Set(m.Supply)
}

func (m *Model) GetReserve() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return big.NewInt(0).Set(m.Reserve)
}

func (m *Model) GetTotalCollected() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return big.NewInt(0).Set(m.TotalCollected)
}

func (m *Model) IsAuthorized() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.Authorized
}

func (m *Model) IsPaused() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.Paused
}

func (m *Model) IsGraduated() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.Graduated
}

// IsTradable reports whether buy and sell orders may execute on the
// curve right now.
func (m *Model) IsTradable() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.Authorized && !m.Paused && !m.Graduated
}

func (m *Model) setAuthorized(authorized bool) {
	m.lock.Lock()
	m.Authorized = authorized
	m.lock.Unlock()

	m.markDirty(m.id)
}

func (m *Model) setPaused(paused bool) {
	m.lock.Lock()
	m.Paused = paused
	m.lock.Unlock()

	m.markDirty(m.id)
}

func (m *Model) setGraduated() {
	m.lock.Lock()
	m.Graduated = true
	m.lock.Unlock()

	m.markDirty(m.id)
}

func (m *Model) addSupply(amount *big.Int) {
	m.lock.Lock()
	m.Supply.Add(m.Supply, amount)
	m.lock.Unlock()

	m.markDirty(m.id)
}

func (m *Model) subSupply(amount *big.Int) {
	m.lock.Lock()
	m.Supply.Sub(m.Supply, amount)
	if m.Supply.Sign() < 0 {
		m.lock.Unlock()
		panic(fmt.Sprintf("market %d has negative supply: %s", m.id.Uint32(), m.Supply.String()))
	}
	m.lock.Unlock()

	m.markDirty(m.id)
}

func (m *Model) addReserve(amount *big.Int) {
	m.lock.Lock()
	m.Reserve.Add(m.Reserve, amount)
	m.lock.Unlock()

	m.markDirty(m.id)
}

func (m *Model) subReserve(amount *big.Int) {
	m.lock.Lock()
	m.Reserve.Sub(m.Reserve, amount)
	if m.Reserve.Sign() < 0 {
		m.lock.Unlock()
		panic(fmt.Sprintf("market %d has negative reserve: %s", m.id.Uint32(), m.Reserve.String()))
	}
	m.lock.Unlock()

	m.markDirty(m.id)
}

func (m *Model) addCollected(amount *big.Int) {
	m.lock.Lock()
	m.TotalCollected.Add(m.TotalCollected, amount)
	m.lock.Unlock()

	m.markDirty(m.id)
}

func (m *Model) wire() *marketData {
	m.lock.RLock()
	defer m.lock.RUnlock()

	data := &marketData{
		Authority:           m.Authority,
		Model:               byte(m.Params.Model),
		GraduationThreshold: m.Params.GraduationThreshold.Bytes(),
		Supply:              m.Supply.Bytes(),
		Reserve:             m.Reserve.Bytes(),
		TotalCollected:      m.TotalCollected.Bytes(),
		Authorized:          m.Authorized,
		Paused:              m.Paused,
		Graduated:           m.Graduated,
	}

	switch m.Params.Model {
	case formula.ModelLinear:
		data.Base = m.Params.Base.Bytes()
		data.Slope = m.Params.Slope.Bytes()
	case formula.ModelSqrt:
		data.InitialPrice = m.Params.InitialPrice.Bytes()
		data.VirtualReserve = m.Params.VirtualReserve.Bytes()
		data.VirtualSupply = m.Params.VirtualSupply.Bytes()
	}

	return data
}

// marketData is the persisted form of a market. Amounts are stored as
// unsigned big-endian bytes.
type marketData struct {
	Authority           types.Address
	Model               byte
	Base                []byte
	Slope               []byte
	InitialPrice        []byte
	VirtualReserve      []byte
	VirtualSupply       []byte
	GraduationThreshold []byte
	Supply              []byte
	Reserve             []byte
	TotalCollected      []byte
	Authorized          bool
	Paused              bool
	Graduated           bool
}

func (d *marketData) model() *Model {
	return &Model{
		Authority: d.Authority,
		Params: formula.Params{
			Model:               formula.Model(d.Model),
			Base:                big.NewInt(0).SetBytes(d.Base),
			Slope:               big.NewInt(0).SetBytes(d.Slope),
			InitialPrice:        big.NewInt(0).SetBytes(d.InitialPrice),
			VirtualReserve:      big.NewInt(0).SetBytes(d.VirtualReserve),
			VirtualSupply:       big.NewInt(0).SetBytes(d.VirtualSupply),
			GraduationThreshold: big.NewInt(0).SetBytes(d.GraduationThreshold),
		},
		Supply:         big.NewInt(0).SetBytes(d.Supply),
		Reserve:        big.NewInt(0).SetBytes(d.Reserve),
		TotalCollected: big.NewInt(0).SetBytes(d.TotalCollected),
		Authorized:     d.Authorized,
		Paused:         d.Paused,
		Graduated:      d.Graduated,
	}
}

// GraduationRecord is written once when a market crosses its threshold
// and freezes. Pending stays true until the venue handoff lands.
type GraduationRecord struct {
	Height          uint64
	Time            uint64
	FinalSupply     *big.Int
	TotalCollected  *big.Int
	LiquidityValue  *big.Int
	LiquidityTokens *big.Int
	FeeValue        *big.Int
	Venue           types.VenueType
	Pending         bool

	id        types.TokenID
	markDirty func(id types.TokenID)
	lock      sync.RWMutex
}

func (r *GraduationRecord) IsPending() bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.Pending
}

// SetCompleted marks the venue handoff as done.
func (r *GraduationRecord) SetCompleted() {
	r.lock.Lock()
	r.Pending = false
	r.lock.Unlock()

	r.markDirty(r.id)
}

func (r *GraduationRecord) wire() *graduationData {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return &graduationData{
		Height:          r.Height,
		Time:            r.Time,
		FinalSupply:     r.FinalSupply.Bytes(),
		TotalCollected:  r.TotalCollected.Bytes(),
		LiquidityValue:  r.LiquidityValue.Bytes(),
		LiquidityTokens: r.LiquidityTokens.Bytes(),
		FeeValue:        r.FeeValue.Bytes(),
		Venue:           byte(r.Venue),
		Pending:         r.Pending,
	}
}

type graduationData struct {
	Height          uint64
	Time            uint64
	FinalSupply     []byte
	TotalCollected  []byte
	LiquidityValue  []byte
	LiquidityTokens []byte
	FeeValue        []byte
	Venue           byte
	Pending         bool
}

func (d *graduationData) record() *GraduationRecord {
	return &GraduationRecord{
		Height:          d.Height,
		Time:            d.Time,
		FinalSupply:     big.NewInt(0).SetBytes(d.FinalSupply),
		TotalCollected:  big.NewInt(0).SetBytes(d.TotalCollected),
		LiquidityValue:  big.NewInt(0).SetBytes(d.LiquidityValue),
		LiquidityTokens: big.NewInt(0).SetBytes(d.LiquidityTokens),
		FeeValue:        big.NewInt(0).SetBytes(d.FeeValue),
		Venue:           types.VenueType(d.Venue),
		Pending:         d.Pending,
	}
}
