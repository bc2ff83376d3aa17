package utils

import (
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb/opt"
	db "github.com/tendermint/tm-db"
)

// Storage opens and keeps the state and events databases under the node home
// dir. Databases not initialized explicitly are opened with default options on
// first use.
type Storage struct {
	home      string
	configDir string

	stateDB db.DB
	eventDB db.DB
}

func NewStorage(home string, configDir string) *Storage {
	return &Storage{home: home, configDir: configDir}
}

// GetEmberHome returns the home dir the storage was created with, falling back
// to the flag, the EMBERHOME env var and the default location.
func (s *Storage) GetEmberHome() string {
	if s.home != "" {
		return s.home
	}

	return GetEmberHome()
}

// GetEmberConfigPath returns the config file path the storage was created
// with, falling back to config.toml under the home dir.
func (s *Storage) GetEmberConfigPath() string {
	if s.configDir != "" {
		return s.configDir
	}

	return GetEmberConfigPath()
}

// InitStateLevelDB opens the state database at path relative to the home dir.
func (s *Storage) InitStateLevelDB(path string, options *opt.Options) (db.DB, error) {
	levelDB, err := db.NewGoLevelDBWithOpts(filepath.Base(path), filepath.Join(s.GetEmberHome(), filepath.Dir(path)), options)
	if err != nil {
		return nil, err
	}

	s.stateDB = levelDB

	return s.stateDB, nil
}

// InitEventLevelDB opens the events database at path relative to the home dir.
func (s *Storage) InitEventLevelDB(path string, options *opt.Options) (db.DB, error) {
	levelDB, err := db.NewGoLevelDBWithOpts(filepath.Base(path), filepath.Join(s.GetEmberHome(), filepath.Dir(path)), options)
	if err != nil {
		return nil, err
	}

	s.eventDB = levelDB

	return s.eventDB, nil
}

func (s *Storage) StateDB() db.DB {
	if s.stateDB == nil {
		if _, err := s.InitStateLevelDB("data/state", nil); err != nil {
			panic(err)
		}
	}

	return s.stateDB
}

func (s *Storage) EventDB() db.DB {
	if s.eventDB == nil {
		if _, err := s.InitEventLevelDB("data/events", nil); err != nil {
			panic(err)
		}
	}

	return s.eventDB
}
