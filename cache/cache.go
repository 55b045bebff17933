package cache

import (
	"fmt"
	"io/ioutil"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/bthost/bleadv"
)

type configCache struct {
	filename string
	lock     sync.RWMutex
}

// New returns a profile cache persisted as json in filename.
func New(filename string) bleadv.ConfigCache {
	cc := configCache{
		filename: filename,
	}

	return &cc
}

func (cc *configCache) Store(name string, profile bleadv.Profile, replace bool) error {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	cache, err := cc.loadExisting()
	if err != nil {
		return err
	}

	_, ok := cache[name]
	if ok && !replace {
		return fmt.Errorf("cache already contains profile %q", name)
	}

	cache[name] = profile

	return cc.storeCache(cache)
}

func (cc *configCache) Load(name string) (bleadv.Profile, error) {
	cc.lock.RLock()
	defer cc.lock.RUnlock()

	cache, err := cc.loadExisting()
	if err != nil {
		return bleadv.Profile{}, err
	}

	p, ok := cache[name]
	if !ok {
		return bleadv.Profile{}, fmt.Errorf("profile %q not found in cache", name)
	}

	return p, nil
}

func (cc *configCache) Clear() error {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	err := os.Remove(cc.filename)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (cc *configCache) loadExisting() (map[string]bleadv.Profile, error) {
	_, err := os.Stat(cc.filename)
	if os.IsNotExist(err) {
		return map[string]bleadv.Profile{}, nil
	}

	in, err := ioutil.ReadFile(cc.filename)
	if err != nil {
		return nil, err
	}

	var cache map[string]bleadv.Profile
	err = jsoniter.Unmarshal(in, &cache)
	if err != nil {
		return nil, err
	}

	return cache, nil
}

func (cc *configCache) storeCache(cache map[string]bleadv.Profile) error {
	out, err := jsoniter.Marshal(cache)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(cc.filename, out, 0644)
}
