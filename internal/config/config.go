package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// NodeEndpointKey is the endpoint where the full node REST gateway is listening
	NodeEndpointKey = "NODE_ENDPOINT"
	// NodeRequestLimitKey represents the number of requests per second allowed towards the node
	NodeRequestLimitKey = "NODE_REQUEST_LIMIT"
	// ProverEndpointKey is the endpoint of the external proving service
	ProverEndpointKey = "PROVER_ENDPOINT"
	// MinConfirmationsKey is the number of confirmations required to spend a trusted note
	MinConfirmationsKey = "MIN_CONFIRMATIONS"
	// UntrustedMinConfirmationsKey is the number of confirmations required to spend a note received from a third party
	UntrustedMinConfirmationsKey = "UNTRUSTED_MIN_CONFIRMATIONS"
	// AllowTransparentZeroConfKey permits spending unconfirmed change held in the transparent pool
	AllowTransparentZeroConfKey = "ALLOW_TRANSPARENT_ZERO_CONF"
	// ReservationTTLKey is the duration in seconds of the lock on notes we reserve for pending proposals, before releasing them for double spending
	ReservationTTLKey = "RESERVATION_TTL"
	// TxExpiryDeltaKey is the number of blocks after the current tip at which unmined transactions expire
	TxExpiryDeltaKey = "TX_EXPIRY_DELTA"
	// MaxOrchardActionsKey caps the number of orchard actions of a single transaction
	MaxOrchardActionsKey = "MAX_ORCHARD_ACTIONS"
	// MaxSaplingSpendsKey caps the number of sapling spends of a single transaction
	MaxSaplingSpendsKey = "MAX_SAPLING_SPENDS"
	// MaxTransparentInputsKey caps the number of transparent inputs of a single transaction
	MaxTransparentInputsKey = "MAX_TRANSPARENT_INPUTS"
	// MaintenanceIntervalKey is the interval in seconds between background maintenance runs
	MaintenanceIntervalKey = "MAINTENANCE_INTERVAL"
	// TargetNoteCountKey is the number of spendable shielded notes the maintenance loop keeps per account
	TargetNoteCountKey = "TARGET_NOTE_COUNT"
	// MinSplitValueKey is the minimum value in zatoshis of a note produced by splitting
	MinSplitValueKey = "MIN_SPLIT_VALUE"
	// UnlockTimeoutKey is the duration in seconds after which an unlocked wallet locks itself again. Zero keeps it unlocked
	UnlockTimeoutKey = "UNLOCK_TIMEOUT"

	DbLocation       = "db"
	KeystoreLocation = "keystore"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("zwallet-daemon", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("ZWALLET")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(NodeEndpointKey, "http://localhost:8232")
	vip.SetDefault(NodeRequestLimitKey, 100)
	vip.SetDefault(ProverEndpointKey, "http://localhost:9067")
	vip.SetDefault(MinConfirmationsKey, 3)
	vip.SetDefault(UntrustedMinConfirmationsKey, 10)
	vip.SetDefault(AllowTransparentZeroConfKey, false)
	vip.SetDefault(ReservationTTLKey, 120)
	vip.SetDefault(TxExpiryDeltaKey, 40)
	vip.SetDefault(MaxOrchardActionsKey, 50)
	vip.SetDefault(MaxSaplingSpendsKey, 50)
	vip.SetDefault(MaxTransparentInputsKey, 50)
	vip.SetDefault(MaintenanceIntervalKey, 600)
	vip.SetDefault(TargetNoteCountKey, 4)
	vip.SetDefault(MinSplitValueKey, 1_000_000)
	vip.SetDefault(UnlockTimeoutKey, 0)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

//GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the given key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	if GetString(NodeEndpointKey) == "" {
		return fmt.Errorf("node endpoint must not be null")
	}

	if GetInt(MinConfirmationsKey) < 0 ||
		GetInt(UntrustedMinConfirmationsKey) < 0 {
		return fmt.Errorf("confirmation thresholds must not be negative")
	}

	if GetInt(ReservationTTLKey) <= 0 {
		return fmt.Errorf("reservation ttl must be a positive number of seconds")
	}

	if GetInt(TxExpiryDeltaKey) <= 0 {
		return fmt.Errorf("tx expiry delta must be a positive number of blocks")
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return err
	}
	return makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
