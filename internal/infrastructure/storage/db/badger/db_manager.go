package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

// DbManager holds the badgerhold stores backing the wallet repositories.
// Accounts and proposals share a store; notes get a dedicated one since the
// note set dominates both size and write volume.
type DbManager struct {
	Store     *badgerhold.Store
	NoteStore *badgerhold.Store
}

// NewDbManager opens (or creates) the badger stores under the given data
// directory. An empty dir opens throwaway in-memory stores.
func NewDbManager(baseDbDir string, logger badger.Logger) (*DbManager, error) {
	mainDir, noteDir := "", ""
	if baseDbDir != "" {
		mainDir = filepath.Join(baseDbDir, "wallet")
		noteDir = filepath.Join(baseDbDir, "notes")
	}

	store, err := createDb(mainDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening wallet db: %w", err)
	}
	noteStore, err := createDb(noteDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening notes db: %w", err)
	}

	return &DbManager{Store: store, NoteStore: noteStore}, nil
}

// Close closes the underlying stores.
func (d *DbManager) Close() error {
	if err := d.Store.Close(); err != nil {
		return err
	}
	return d.NoteStore.Close()
}

// JSONEncode is a custom JSON based encoder for badger.
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer
	if err := json.NewEncoder(&buff).Encode(value); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger.
func JSONDecode(data []byte, value interface{}) error {
	return json.NewDecoder(bytes.NewReader(data)).Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	if dbDir == "" {
		opts = opts.WithInMemory(true)
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
