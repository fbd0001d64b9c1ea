// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package program

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// DefaultCacheSize is the number of programs retained by a Loader if no
// other size is configured.
const DefaultCacheSize = 128

// Loader loads program artifacts and retains recently loaded programs in
// an LRU cache keyed by the hash of the artifact. Since programs are
// immutable, cached instances are shared among all callers.
type Loader struct {
	cache *lru.Cache[common.Hash, *cairo.Program]
}

// NewLoader creates a loader caching up to cacheSize programs. If set to 0,
// DefaultCacheSize is used. If negative, no cache is used.
func NewLoader(cacheSize int) (*Loader, error) {
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}
	var cache *lru.Cache[common.Hash, *cairo.Program]
	if cacheSize > 0 {
		var err error
		cache, err = lru.New[common.Hash, *cairo.Program](cacheSize)
		if err != nil {
			return nil, err
		}
	}
	return &Loader{cache: cache}, nil
}

// Load parses the given artifact unless a program with the same artifact
// hash is cached.
func (l *Loader) Load(data []byte) (*cairo.Program, error) {
	if l.cache == nil {
		return Load(data)
	}
	key := common.Hash(hashOf(data))
	if res, found := l.cache.Get(key); found {
		return res, nil
	}
	res, err := Load(data)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, res)
	return res, nil
}

// LoadFile reads the artifact stored at the given path and loads it.
func (l *Loader) LoadFile(path string) (*cairo.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.Load(data)
}

// Len returns the number of cached programs.
func (l *Loader) Len() int {
	if l.cache == nil {
		return 0
	}
	return l.cache.Len()
}
