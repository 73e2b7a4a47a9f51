package workspace

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// manifestLoader reads each manifest at most once per discovery, even when
// several globs match the same directory concurrently.
type manifestLoader struct {
	group singleflight.Group
	cache sync.Map
}

func (l *manifestLoader) Load(path string) (*Manifest, error) {
	if v, ok := l.cache.Load(path); ok {
		return v.(*Manifest), nil
	}
	v, err, _ := l.group.Do(path, func() (interface{}, error) {
		m, err := ReadManifest(path)
		if err != nil {
			return nil, err
		}
		l.cache.Store(path, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Manifest), nil
}
