package securestore

// SecureStorage is a key/value store that encrypts the values it persists.
// The store is locked until unlocked with a password; while locked, every
// read or write of bucket data fails.
type SecureStorage interface {
	// Lock locks the store, wiping the in-memory encryption key.
	Lock()
	// IsLocked returns whether the store is locked.
	IsLocked() bool
	// CreateUnlock creates or unlocks the store with a password.
	CreateUnlock(password *[]byte) error
	// ChangePassword re-encrypts the store's encryption key with a new
	// password.
	ChangePassword(oldPw, newPw []byte) error
	// CreateBucket creates a collection of key/value pairs.
	CreateBucket(key []byte) error
	// AddToBucket adds the key/value entry to some bucket, encrypting the
	// value.
	AddToBucket(bucketKey, key, value []byte) error
	// GetFromBucket retrieves and decrypts a value from some bucket. A
	// missing key yields a nil value and no error.
	GetFromBucket(bucketKey, key []byte) ([]byte, error)
	// GetAllFromBucket retrieves and decrypts all key/value pairs of a
	// bucket.
	GetAllFromBucket(bucketKey []byte) (map[string][]byte, error)
	// RemoveFromBucket removes a key/value pair from a bucket.
	RemoveFromBucket(bucketKey, key []byte) error
	// Close closes the connection to the underlying database.
	Close() error
}
