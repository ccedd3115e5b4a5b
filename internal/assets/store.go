// Package assets serves named resources out of a zip bundle. The producer
// fetches assets by name over the platform message bridge; a miss answers
// with the empty completion rather than an error, keeping bundle problems
// out of the frame pipeline.
package assets

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/poitch/engine/internal/platformmsg"
)

var ErrEmptyBundle = errors.New("assets: empty bundle")

// Store reads entries from an in-memory zip bundle. Lookups are safe for
// concurrent use.
type Store struct {
	mu sync.Mutex
	r  *zip.Reader
}

// FromBytes opens a bundle held in memory. The byte slice must not be
// modified afterwards.
func FromBytes(bundle []byte) (*Store, error) {
	if len(bundle) == 0 {
		return nil, ErrEmptyBundle
	}
	r, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return nil, fmt.Errorf("assets: open bundle: %w", err)
	}
	return &Store{r: r}, nil
}

// GetAsBuffer returns the contents of the named entry, or false when the
// entry does not exist or cannot be read.
func (s *Store) GetAsBuffer(name string) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.r.Open(name)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false
	}
	return data, true
}

// MessageHandler answers fetch-by-name requests: the payload is the asset
// name, the response is the asset bytes or the empty completion on a miss.
// Messages without a response carry no way to answer and are declined.
func MessageHandler(store *Store) platformmsg.HandlerFunc {
	return func(msg *platformmsg.Message) bool {
		if msg.Response == nil {
			return false
		}
		name := string(msg.Data)
		if data, ok := store.GetAsBuffer(name); ok {
			msg.Response.Complete(data)
		} else {
			msg.Response.CompleteEmpty()
		}
		return true
	}
}
