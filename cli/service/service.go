package service

import (
	"encoding/hex"
	"net/http"
	"runtime"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EmberTeam/ember-go-engine/config"
	"github.com/EmberTeam/ember-go-engine/core/engine"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/version"
)

// Manager is the operator side of a running engine, served over the
// manager socket in the home dir.
type Manager struct {
	ember *engine.Engine
	cfg   *config.Config
}

func NewManager(ember *engine.Engine, cfg *config.Config) *Manager {
	return &Manager{ember: ember, cfg: cfg}
}

// StatusResponse is the reply of the status command
type StatusResponse struct {
	Version           string `json:"version"`
	LatestBlockHash   string `json:"latest_block_hash"`
	LatestBlockHeight uint64 `json:"latest_block_height"`
	InitialHeight     uint64 `json:"initial_height"`
	KeepLastStates    int64  `json:"keep_last_states"`
	MarketsCount      uint32 `json:"markets_count"`
}

// DashboardResponse is one frame of the live dashboard
type DashboardResponse struct {
	LatestHeight    uint64  `json:"latest_height"`
	Timestamp       float64 `json:"timestamp"`
	Duration        float64 `json:"duration"`
	MemoryUsage     uint64  `json:"memory_usage"`
	MarketsCount    uint32  `json:"markets_count"`
	GraduatedCount  uint32  `json:"graduated_count"`
	PendingHandoffs uint32  `json:"pending_handoffs"`
}

func (m *Manager) status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Version:           version.Version,
		LatestBlockHash:   hex.EncodeToString(m.ember.LastBlockHash()),
		LatestBlockHeight: m.ember.Height(),
		InitialHeight:     m.ember.InitialHeight(),
		KeepLastStates:    m.cfg.KeepLastStates,
		MarketsCount:      m.ember.CurrentState().Markets().MarketsCount(),
	})
}

func (m *Manager) markets(c *gin.Context) {
	cState := m.ember.CurrentState()

	count := cState.Markets().MarketsCount()
	result := make([]*engine.MarketInfo, 0, count)
	for id := types.TokenID(1); uint32(id) <= count; id++ {
		if info := engine.MarketInfoFromState(cState, id); info != nil {
			result = append(result, info)
		}
	}

	c.JSON(http.StatusOK, result)
}

func (m *Manager) dashboard(c *gin.Context) {
	statisticData := m.ember.StatisticData()
	if statisticData == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Dashboard is not available, please enable prometheus in configuration",
		})
		return
	}
	info := statisticData.GetLastBlockInfo()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	cState := m.ember.CurrentState()
	count := cState.Markets().MarketsCount()

	var graduated, pending uint32
	for id := types.TokenID(1); uint32(id) <= count; id++ {
		record := cState.Markets().GetGraduation(id)
		if record == nil {
			continue
		}
		graduated++
		if record.IsPending() {
			pending++
		}
	}

	c.JSON(http.StatusOK, DashboardResponse{
		LatestHeight:    info.Height,
		Timestamp:       info.Timestamp,
		Duration:        info.Duration,
		MemoryUsage:     mem.Sys,
		MarketsCount:    count,
		GraduatedCount:  graduated,
		PendingHandoffs: pending,
	})
}

func (m *Manager) pruneBlocks(c *gin.Context) {
	from, err := strconv.ParseInt(c.Query("from"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := strconv.ParseInt(c.Query("to"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current := m.ember.Height()
	if to >= int64(current) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "cannot delete latest saved version (" + strconv.FormatUint(current, 10) + ")",
		})
		return
	}

	if err := m.ember.DeleteStateVersions(from, to); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": to - from})
}

// Handler builds the route table of the manager service
func (m *Manager) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/status", m.status)
	r.GET("/markets", m.markets)
	r.GET("/dashboard", m.dashboard)
	r.GET("/prune_blocks", m.pruneBlocks)

	return r
}
