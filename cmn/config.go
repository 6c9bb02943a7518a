// Package cmn provides configuration shared by every runtime component:
// listen/controller addresses, queue sizing, cache bounds, and stats
// cadence. Modeled on the teacher's cmn.Config + GCO ("global config
// owner") pattern: components read a cached *Config pointer rather than
// re-parsing JSON or taking a lock on every hot-path access.
package cmn

import (
	"os"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	// Config is the runtime's local configuration: everything the core
	// needs injected at init per spec.md §6 ("Environment & CLI").
	Config struct {
		LocalRuntimeID uint32        `json:"local_runtime_id"`
		ListenAddr     string        `json:"listen_addr"`
		ControllerAddr string        `json:"controller_addr"`
		LogDir         string        `json:"log_dir"`
		Queue          QueueConfig   `json:"queue"`
		Cache          CacheConfig   `json:"cache"`
		Stats          StatsConfig   `json:"stats"`
		ShutdownGrace  time.Duration `json:"shutdown_grace"`
	}

	QueueConfig struct {
		DataCapacity int `json:"data_capacity"` // bounded FIFO capacity for the data channel
		ControlCap   int `json:"control_cap"`   // not read by package worker, which drains at most 64 control actions per tick
	}

	CacheConfig struct {
		WWWDir           string  `json:"www_dir"`
		MaxFiles         int     `json:"max_files"`
		MaxKBSize        int64   `json:"max_kb_size"`
		MaxOccupancyRate float64 `json:"max_occupancy_rate"`
		WriteMSUType     uint32  `json:"write_msu_type"`
		FileIOMSUType    uint32  `json:"fileio_msu_type"`
	}

	StatsConfig struct {
		Period        time.Duration `json:"period"`
		PromNamespace string        `json:"prom_namespace"`
	}
)

// DefaultConfig returns sane defaults, equivalent in spirit to the
// teacher's compiled-in config template.
func DefaultConfig() *Config {
	return &Config{
		Queue: QueueConfig{DataCapacity: 1024, ControlCap: 64},
		Cache: CacheConfig{
			WWWDir:           "www/",
			MaxFiles:         1 << 20, // effectively unbounded unless configured otherwise
			MaxKBSize:        1 << 20,
			MaxOccupancyRate: 0.2,
		},
		Stats:         StatsConfig{Period: 10 * time.Second},
		ShutdownGrace: 5 * time.Second,
	}
}

// Load reads a JSON config file from path using jsoniter, the teacher's
// own JSON codec of choice (faster allocs than encoding/json, drop-in
// compatible decode semantics).
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GCO ("global config owner") publishes the active *Config so hot paths
// can read a cached pointer with acquire semantics instead of re-parsing
// or locking, mirroring the teacher's cmn.GCO singleton.
var gco atomic.Value

func PutGCO(c *Config) { gco.Store(c) }

func GCO() *Config {
	v := gco.Load()
	if v == nil {
		return DefaultConfig()
	}
	return v.(*Config)
}
