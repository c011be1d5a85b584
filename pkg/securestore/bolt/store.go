// Package boltsecurestore provides a bolt-backed implementation of the
// securestore.SecureStorage interface.
//
// A random data encryption key protects every stored value with
// ChaCha20-Poly1305. The data key itself is sealed with a key stretched from
// the user password via scrypt, so changing the password never requires
// re-encrypting the stored data.
package boltsecurestore

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/zwallet-network/zwallet-daemon/pkg/securestore"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// EncKeyLen is the length of the data encryption key.
	EncKeyLen = 32

	saltLen = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var (
	// rootBucketName is the top-level bucket holding all user buckets.
	rootBucketName = []byte("root")

	// encKeyID is the database key holding the sealed data encryption
	// key. The record layout is salt || nonce || sealed key.
	encKeyID = []byte("enckey")
)

type boltSecureStorage struct {
	db *bolt.DB

	encKeyMtx sync.RWMutex
	encKey    []byte
}

// NewSecureStorage opens (or creates) the encrypted store at
// datadir/filename.
func NewSecureStorage(datadir, filename string) (securestore.SecureStorage, error) {
	if _, err := os.Stat(datadir); os.IsNotExist(err) {
		if err := os.MkdirAll(datadir, 0700); err != nil {
			return nil, err
		}
	}

	db, err := bolt.Open(filepath.Join(datadir, filename), 0600, nil)
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &boltSecureStorage{db: db}, nil
}

func (s *boltSecureStorage) IsLocked() bool {
	s.encKeyMtx.RLock()
	defer s.encKeyMtx.RUnlock()
	return s.encKey == nil
}

func (s *boltSecureStorage) Lock() {
	s.encKeyMtx.Lock()
	defer s.encKeyMtx.Unlock()
	s.zeroEncKey()
}

func (s *boltSecureStorage) CreateUnlock(password *[]byte) error {
	s.encKeyMtx.Lock()
	defer s.encKeyMtx.Unlock()

	if s.encKey != nil {
		return nil
	}
	if password == nil {
		return ErrPasswordRequired
	}

	var sealed []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		sealed = tx.Bucket(rootBucketName).Get(encKeyID)
		return nil
	}); err != nil {
		return err
	}

	if sealed == nil {
		return s.createEncKey(*password)
	}

	encKey, err := openEncKey(sealed, *password)
	if err != nil {
		return err
	}
	s.encKey = encKey
	return nil
}

func (s *boltSecureStorage) ChangePassword(oldPw, newPw []byte) error {
	s.encKeyMtx.Lock()
	defer s.encKeyMtx.Unlock()

	var sealed []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		sealed = tx.Bucket(rootBucketName).Get(encKeyID)
		return nil
	}); err != nil {
		return err
	}
	if sealed == nil {
		return ErrWrongPassword
	}

	encKey, err := openEncKey(sealed, oldPw)
	if err != nil {
		return err
	}

	resealed, err := sealEncKey(encKey, newPw)
	if err != nil {
		return err
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucketName).Put(encKeyID, resealed)
	}); err != nil {
		return err
	}

	s.zeroEncKey()
	s.encKey = encKey
	return nil
}

func (s *boltSecureStorage) CreateBucket(key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.Bucket(rootBucketName).CreateBucketIfNotExists(key)
		return err
	})
}

func (s *boltSecureStorage) AddToBucket(bucketKey, key, value []byte) error {
	ciphertext, err := s.encrypt(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(rootBucketName).Bucket(bucketKey)
		if bucket == nil {
			return ErrBucketNotFound
		}
		return bucket.Put(key, ciphertext)
	})
}

func (s *boltSecureStorage) GetFromBucket(bucketKey, key []byte) ([]byte, error) {
	var ciphertext []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(rootBucketName).Bucket(bucketKey)
		if bucket == nil {
			return ErrBucketNotFound
		}
		if v := bucket.Get(key); v != nil {
			ciphertext = make([]byte, len(v))
			copy(ciphertext, v)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if ciphertext == nil {
		return nil, nil
	}
	return s.decrypt(ciphertext)
}

func (s *boltSecureStorage) GetAllFromBucket(bucketKey []byte) (map[string][]byte, error) {
	ciphertexts := make(map[string][]byte)
	if err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(rootBucketName).Bucket(bucketKey)
		if bucket == nil {
			return ErrBucketNotFound
		}
		return bucket.ForEach(func(k, v []byte) error {
			if v == nil {
				return nil
			}
			kk := make([]byte, len(k))
			copy(kk, k)
			vv := make([]byte, len(v))
			copy(vv, v)
			ciphertexts[string(kk)] = vv
			return nil
		})
	}); err != nil {
		return nil, err
	}

	values := make(map[string][]byte, len(ciphertexts))
	for k, v := range ciphertexts {
		value, err := s.decrypt(v)
		if err != nil {
			return nil, err
		}
		values[k] = value
	}
	return values, nil
}

func (s *boltSecureStorage) RemoveFromBucket(bucketKey, key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(rootBucketName).Bucket(bucketKey)
		if bucket == nil {
			return ErrBucketNotFound
		}
		return bucket.Delete(key)
	})
}

func (s *boltSecureStorage) Close() error {
	s.Lock()
	return s.db.Close()
}

func (s *boltSecureStorage) createEncKey(password []byte) error {
	encKey := make([]byte, EncKeyLen)
	if _, err := rand.Read(encKey); err != nil {
		return err
	}

	sealed, err := sealEncKey(encKey, password)
	if err != nil {
		return err
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucketName).Put(encKeyID, sealed)
	}); err != nil {
		return err
	}

	s.encKey = encKey
	return nil
}

func (s *boltSecureStorage) encrypt(plaintext []byte) ([]byte, error) {
	s.encKeyMtx.RLock()
	defer s.encKeyMtx.RUnlock()

	if s.encKey == nil {
		return nil, ErrStoreLocked
	}
	return seal(s.encKey, plaintext)
}

func (s *boltSecureStorage) decrypt(ciphertext []byte) ([]byte, error) {
	s.encKeyMtx.RLock()
	defer s.encKeyMtx.RUnlock()

	if s.encKey == nil {
		return nil, ErrStoreLocked
	}
	return open(s.encKey, ciphertext)
}

func (s *boltSecureStorage) zeroEncKey() {
	for i := range s.encKey {
		s.encKey[i] = 0
	}
	s.encKey = nil
}

func sealEncKey(encKey, password []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	sealingKey, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, EncKeyLen)
	if err != nil {
		return nil, err
	}

	sealed, err := seal(sealingKey, encKey)
	if err != nil {
		return nil, err
	}
	return append(salt, sealed...), nil
}

func openEncKey(record, password []byte) ([]byte, error) {
	if len(record) <= saltLen {
		return nil, ErrCorruptedValue
	}
	salt, sealed := record[:saltLen], record[saltLen:]

	sealingKey, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, EncKeyLen)
	if err != nil {
		return nil, err
	}

	encKey, err := open(sealingKey, sealed)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return encKey, nil
}

func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrCorruptedValue
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrCorruptedValue
	}
	return plaintext, nil
}
