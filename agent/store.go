package main

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	notepadBucket = []byte("notepad")
	journalBucket = []byte("journal")
	textKey       = []byte("text")
)

// Store keeps the local notepad text and a per-topic journal of applied
// frames in a bbolt file.
type Store struct {
	db *bolt.DB
}

// OpenStore opens or creates the state file at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(notepadBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(journalBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init state %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the saved text. ok is false when nothing has been saved yet.
func (s *Store) Load() (text string, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(notepadBucket).Get(textKey)
		if v != nil {
			text, ok = string(v), true
		}
		return nil
	})
	return text, ok, err
}

// Save replaces the saved text.
func (s *Store) Save(text string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(notepadBucket).Put(textKey, []byte(text))
	})
}

// Append records a frame applied on topic and returns its sequence number.
func (s *Store) Append(topic string, data []byte) (uint64, error) {
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(journalBucket).CreateBucketIfNotExists([]byte(topic))
		if err != nil {
			return err
		}
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, append([]byte(nil), data...))
	})
	return seq, err
}

// Journal returns the frames recorded for topic in the order they were applied.
func (s *Store) Journal(topic string) ([][]byte, error) {
	var frames [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(journalBucket).Bucket([]byte(topic))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			frames = append(frames, append([]byte(nil), v...))
			return nil
		})
	})
	return frames, err
}
