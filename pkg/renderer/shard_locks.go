package renderer

import "sync"

// numShards must be a power of two
const numShards = 1024

// shardLocks guards HitPoint statistics during concurrent photon deposits
type shardLocks struct{ mu [numShards]sync.Mutex }

func (sl *shardLocks) lock(idx int32)   { sl.mu[idx&(numShards-1)].Lock() }
func (sl *shardLocks) unlock(idx int32) { sl.mu[idx&(numShards-1)].Unlock() }
