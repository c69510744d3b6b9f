// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Snapshot is a diagnostic dump of a RateWindow, bson tagged so it can
// be shipped as is to a document store. It is never fed back into the
// admission logic and may be torn under concurrent admissions.
type Snapshot struct {
	ID       string        `bson:"_id" json:"id"`
	Caller   string        `bson:"caller,omitempty" json:"caller,omitempty"`
	Capacity int           `bson:"capacity" json:"capacity"`
	Window   time.Duration `bson:"window" json:"window"`
	Now      int64         `bson:"now" json:"now"`
	Cursor   uint64        `bson:"cursor" json:"cursor"`
	Slots    []int64       `bson:"slots" json:"slots"`
}

// Snapshot captures the cursor and every slot stamp, along with the
// function that asked for it
func (w *RateWindow) Snapshot() Snapshot {
	return w.snapshot(2)
}

// skip counts frames above snapshot, as in runtime.Caller
func (w *RateWindow) snapshot(skip int) Snapshot {
	snap := Snapshot{
		ID:       w.id.String(),
		Capacity: len(w.slots),
		Window:   w.window,
		Now:      w.clock(),
		Cursor:   w.cursor.Load(),
		Slots:    make([]int64, len(w.slots)),
	}
	if pc, _, _, ok := runtime.Caller(skip); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			snap.Caller = fn.Name()
		}
	}
	for i := range w.slots {
		snap.Slots[i] = w.slots[i].stamp.Load()
	}
	return snap
}

// Document encodes the snapshot as a bson document
func (s Snapshot) Document() (bson.Raw, error) {
	b, err := bson.Marshal(s)
	if err != nil {
		return nil, err
	}
	return bson.Raw(b), nil
}

func (s Snapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Window:%s,Caller:%s,Cursor:%d,data:", s.ID, s.Caller, s.Cursor)
	for i, ts := range s.Slots {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if ts == neverClaimed {
			sb.WriteByte('-')
			continue
		}
		sb.WriteString(strconv.FormatInt(ts, 10))
	}
	return sb.String()
}

// String renders the diagnostic dump of the window
func (w *RateWindow) String() string {
	return w.snapshot(2).String()
}
