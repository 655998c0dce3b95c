package benchmarks

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/Giulio2002/filechan"
	mdbxgo "github.com/erigontech/mdbx-go/mdbx"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"
)

// Cached benchmark data directory
const benchCacheDir = "testdata/benchdb"

// recordSize is the size of one value. Record i lives at offset
// i*recordSize in the flat file and under the 8-byte big-endian key i in
// the key-value stores.
const recordSize = 256

var (
	cacheMu  sync.Mutex
	flatPath = make(map[string]string)
	mdbxEnvs = make(map[string]*mdbxgo.Env)
	boltDBs  = make(map[string]*bolt.DB)
	rocksDBs = make(map[string]*gorocksdb.DB)
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func recordKey(key []byte, i int) {
	binary.BigEndian.PutUint64(key, uint64(i))
}

func recordValue(val []byte, i int) {
	for j := 0; j+8 <= len(val); j += 8 {
		binary.BigEndian.PutUint64(val[j:], uint64(i))
	}
}

// randomOrder returns a fixed permutation of [0, n).
func randomOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := int(uint64(i*17+31) % uint64(i+1))
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// getCachedFlatFile returns the path of a file holding numRecords records,
// creating it if needed.
func getCachedFlatFile(b *testing.B, numRecords int) string {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("flat_%d", numRecords)
	if path, ok := flatPath[key]; ok {
		return path
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}

	path := filepath.Join(benchCacheDir, fmt.Sprintf("records_%d.dat", numRecords))
	if !fileExists(path) {
		b.Logf("Creating cached flat file with %d records...", numRecords)
		populateFlatFile(b, path, numRecords)
	} else {
		b.Logf("Using cached flat file with %d records", numRecords)
	}

	flatPath[key] = path
	return path
}

func populateFlatFile(b *testing.B, path string, numRecords int) {
	ch, err := filechan.Open(path, filechan.ReadWrite|filechan.Create|filechan.TruncateExisting, 0644)
	if err != nil {
		b.Fatal(err)
	}
	defer ch.Close()

	// Write in batches of records through a single vectored write.
	const batchSize = 4096
	bufs := make([][]byte, batchSize)
	for i := range bufs {
		bufs[i] = make([]byte, recordSize)
	}
	for i := 0; i < numRecords; i += batchSize {
		n := min(batchSize, numRecords-i)
		for j := 0; j < n; j++ {
			recordValue(bufs[j], i+j)
		}
		if _, err := ch.WriteVec(bufs, 0, n); err != nil {
			b.Fatal(err)
		}
	}
	if err := ch.Force(true); err != nil {
		b.Fatal(err)
	}
}

// openReadOnly opens the cached flat file as a read-only channel for one
// benchmark.
func openReadOnly(b *testing.B, numRecords int) *filechan.ReadOnlyChannel {
	ro, err := filechan.OpenReadOnly(getCachedFlatFile(b, numRecords))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { ro.Close() })
	return ro
}

// getCachedMdbx returns a cached mdbx-go environment holding numRecords
// records, creating it if needed.
func getCachedMdbx(b *testing.B, numRecords int) *mdbxgo.Env {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("mdbx_%d", numRecords)
	if env, ok := mdbxEnvs[key]; ok {
		return env
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("records_%d_mdbx.db", numRecords))
	exists := fileExists(path)

	runtime.LockOSThread()
	env, err := mdbxgo.NewEnv(mdbxgo.Label("bench"))
	if err != nil {
		runtime.UnlockOSThread()
		b.Fatal(err)
	}
	env.SetOption(mdbxgo.OptMaxDB, 10)
	env.SetGeometry(-1, -1, 1<<32, -1, -1, 4096) // 4GB max
	if err := env.Open(path, mdbxgo.NoSubdir|mdbxgo.NoMetaSync|mdbxgo.WriteMap, 0644); err != nil {
		runtime.UnlockOSThread()
		b.Fatal(err)
	}
	runtime.UnlockOSThread()

	if !exists {
		b.Logf("Creating cached mdbx DB with %d records...", numRecords)
		populateMdbx(b, env, numRecords)
	} else {
		b.Logf("Using cached mdbx DB with %d records", numRecords)
	}

	mdbxEnvs[key] = env
	return env
}

func populateMdbx(b *testing.B, env *mdbxgo.Env, numRecords int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	txn, err := env.BeginTxn(nil, 0)
	if err != nil {
		b.Fatal(err)
	}
	dbi, err := txn.OpenDBI("bench", mdbxgo.Create, nil, nil)
	if err != nil {
		b.Fatal(err)
	}

	batchSize := 100_000
	key := make([]byte, 8)
	val := make([]byte, recordSize)

	for i := 0; i < numRecords; i++ {
		recordKey(key, i)
		recordValue(val, i)

		if err := txn.Put(dbi, key, val, mdbxgo.Upsert); err != nil {
			b.Fatal(err)
		}

		if (i+1)%batchSize == 0 {
			if _, err := txn.Commit(); err != nil {
				b.Fatal(err)
			}
			txn, err = env.BeginTxn(nil, 0)
			if err != nil {
				b.Fatal(err)
			}
		}
	}

	if _, err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
}

// getCachedBoltDB returns a cached BoltDB database, creating it if needed.
func getCachedBoltDB(b *testing.B, numRecords int) *bolt.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("bolt_%d", numRecords)
	if db, ok := boltDBs[key]; ok {
		return db
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("records_%d_bolt.db", numRecords))
	exists := fileExists(path)

	db, err := bolt.Open(path, 0644, &bolt.Options{
		NoSync:         true,
		NoFreelistSync: true,
	})
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached BoltDB with %d records...", numRecords)
		populateBoltDB(b, db, numRecords)
	} else {
		b.Logf("Using cached BoltDB with %d records", numRecords)
	}

	boltDBs[key] = db
	return db
}

func populateBoltDB(b *testing.B, db *bolt.DB, numRecords int) {
	batchSize := 100_000
	key := make([]byte, 8)
	val := make([]byte, recordSize)

	for start := 0; start < numRecords; start += batchSize {
		end := min(start+batchSize, numRecords)
		err := db.Update(func(tx *bolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte("bench"))
			if err != nil {
				return err
			}
			for i := start; i < end; i++ {
				recordKey(key, i)
				recordValue(val, i)
				if err := bucket.Put(key, val); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// getCachedRocksDB returns a cached RocksDB database, creating it if needed.
func getCachedRocksDB(b *testing.B, numRecords int) *gorocksdb.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("rocks_%d", numRecords)
	if db, ok := rocksDBs[key]; ok {
		return db
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("records_%d_rocks.db", numRecords))
	exists := fileExists(path)

	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetWriteBufferSize(64 * 1024 * 1024) // 64MB write buffer
	opts.SetMaxWriteBufferNumber(3)
	opts.SetTargetFileSizeBase(64 * 1024 * 1024)

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached RocksDB with %d records...", numRecords)
		populateRocksDB(b, db, numRecords)
	} else {
		b.Logf("Using cached RocksDB with %d records", numRecords)
	}

	rocksDBs[key] = db
	return db
}

func populateRocksDB(b *testing.B, db *gorocksdb.DB, numRecords int) {
	wo := gorocksdb.NewDefaultWriteOptions()
	defer wo.Destroy()

	key := make([]byte, 8)
	val := make([]byte, recordSize)

	batch := gorocksdb.NewWriteBatch()
	defer batch.Destroy()

	batchSize := 100_000

	for i := 0; i < numRecords; i++ {
		recordKey(key, i)
		recordValue(val, i)

		batch.Put(key, val)

		if (i+1)%batchSize == 0 {
			if err := db.Write(wo, batch); err != nil {
				b.Fatal(err)
			}
			batch.Clear()
		}
	}

	if batch.Count() > 0 {
		if err := db.Write(wo, batch); err != nil {
			b.Fatal(err)
		}
	}
}

// CleanupBenchCache closes all cached databases.
// Call this in TestMain or after benchmarks complete.
func CleanupBenchCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	for _, env := range mdbxEnvs {
		env.Close()
	}
	for _, db := range boltDBs {
		db.Close()
	}
	for _, db := range rocksDBs {
		db.Close()
	}
	flatPath = make(map[string]string)
	mdbxEnvs = make(map[string]*mdbxgo.Env)
	boltDBs = make(map[string]*bolt.DB)
	rocksDBs = make(map[string]*gorocksdb.DB)
}

// DeleteBenchCache removes all cached data files.
func DeleteBenchCache() error {
	return os.RemoveAll(benchCacheDir)
}
