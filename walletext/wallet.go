package walletext

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

var bucketExtensions = []byte("extensions")

// Wallet is a concrete extension host backed by a bbolt database. Each
// registered extension's payload is stored under its ID in a single bucket.
// Payloads are written whenever an extension reports a change and read back
// by LoadExtensions after a restart.
type Wallet struct {
	db   *bbolt.DB
	seal *sealer // nil when payloads are stored in the clear

	mu         sync.Mutex
	extensions map[string]Extension
}

// OpenWallet opens or creates the wallet database at dbPath. The parent
// directory is created if it does not exist.
func OpenWallet(dbPath string) (*Wallet, error) {
	return openWallet(dbPath, nil)
}

// OpenWalletWithPassphrase opens the wallet database at dbPath with extension
// payloads sealed under the given passphrase. A wallet created with a
// passphrase must always be reopened with the same one.
func OpenWalletWithPassphrase(dbPath, passphrase string) (*Wallet, error) {
	return openWallet(dbPath, &sealer{passphrase: []byte(passphrase)})
}

func openWallet(dbPath string, seal *sealer) (*Wallet, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("walletext: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("walletext: open wallet db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketExtensions)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("walletext: create bucket: %w", err)
	}

	return &Wallet{
		db:         db,
		seal:       seal,
		extensions: make(map[string]Extension),
	}, nil
}

// Close closes the underlying database.
func (w *Wallet) Close() error { return w.db.Close() }

// Register adds an extension to this wallet. The extension's payload is not
// loaded until LoadExtensions is called.
func (w *Wallet) Register(ext Extension) error {
	if ext == nil {
		return fmt.Errorf("%w: extension", ErrNilParam)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.extensions[ext.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateExtension, ext.ID())
	}
	w.extensions[ext.ID()] = ext
	return nil
}

// NotifyExtensionChanged serializes the extension and writes its payload to
// the database. Extensions call this after every mutation; failures are
// logged rather than returned since the caller has already moved on.
func (w *Wallet) NotifyExtensionChanged(ext Extension) {
	payload, err := ext.Serialize()
	if err != nil {
		log.WithError(err).WithField("extension", ext.ID()).
			Error("walletext: serialize extension failed")
		return
	}

	if w.seal != nil {
		payload, err = w.seal.seal(payload)
		if err != nil {
			log.WithError(err).WithField("extension", ext.ID()).
				Error("walletext: seal extension payload failed")
			return
		}
	}

	err = w.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketExtensions).Put([]byte(ext.ID()), payload)
	})
	if err != nil {
		log.WithError(err).WithField("extension", ext.ID()).
			Error("walletext: persist extension payload failed")
	}
}

// LoadExtensions reads the persisted payload of every registered extension
// and hands it to the extension's Deserialize hook. An absent payload is fine
// for non-mandatory extensions, which simply start empty; for a mandatory
// extension it fails the whole load. Extensions are loaded in ID order so
// failures are deterministic.
func (w *Wallet) LoadExtensions() error {
	w.mu.Lock()
	ids := make([]string, 0, len(w.extensions))
	for id := range w.extensions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	exts := make([]Extension, 0, len(ids))
	for _, id := range ids {
		exts = append(exts, w.extensions[id])
	}
	w.mu.Unlock()

	for _, ext := range exts {
		var payload []byte
		err := w.db.View(func(tx *bbolt.Tx) error {
			if data := tx.Bucket(bucketExtensions).Get([]byte(ext.ID())); data != nil {
				payload = make([]byte, len(data))
				copy(payload, data)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walletext: read extension %s: %w", ext.ID(), err)
		}

		if payload == nil {
			if ext.Mandatory() {
				return fmt.Errorf("%w: %s", ErrMandatoryExtension, ext.ID())
			}
			continue
		}

		if w.seal != nil {
			payload, err = w.seal.open(payload)
			if err != nil {
				return fmt.Errorf("walletext: unseal extension %s: %w", ext.ID(), err)
			}
		}

		if err := ext.Deserialize(w, payload); err != nil {
			return fmt.Errorf("walletext: load extension %s: %w", ext.ID(), err)
		}
	}
	return nil
}
