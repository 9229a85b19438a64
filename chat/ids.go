package chat

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// discordEpoch is the first millisecond of 2015, the epoch of Discord snowflakes.
const discordEpoch int64 = 1420070400000

const timestampShift = 22

func init() {
	snowflake.Epoch = discordEpoch
}

// CreatedAt returns the creation time encoded in a message id.
func CreatedAt(id string) (time.Time, error) {
	sf, err := snowflake.ParseString(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse message id %q: %w", id, err)
	}
	return time.UnixMilli(sf.Time()), nil
}

// IDAt returns the smallest message id that could have been created at t.
func IDAt(t time.Time) string {
	return snowflake.ID((t.UnixMilli() - discordEpoch) << timestampShift).String()
}
