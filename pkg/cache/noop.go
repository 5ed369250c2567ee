package cache

import "time"

// NoopStore never stores anything; every read is a miss
type NoopStore struct{}

func (NoopStore) Get(string) ([]byte, bool)          { return nil, false }
func (NoopStore) Set(string, []byte, time.Duration) {}
func (NoopStore) Clear(string)                      {}
func (NoopStore) ClearAll()                         {}
