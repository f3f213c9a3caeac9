package main

import (
	"time"

	"github.com/google/uuid"
)

// defaultSnapshotName mirrors original_source/src/cas.rs's
// "MAP-{rfc3339}" naming convention for time-derived object names, with
// a short uuid suffix so two appends started in the same second never
// collide under concurrent CLI invocations.
func defaultSnapshotName() string {
	return time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}
