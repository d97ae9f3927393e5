package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionAt(t *testing.T) {
	playing := PlayerState{
		Action:    ActionPlay,
		Position:  10,
		UpdatedAt: 1_000_000,
		Rate:      1,
	}

	assert.Equal(t, 10.0, playing.PositionAt(1_000_000))
	assert.Equal(t, 15.0, playing.PositionAt(1_005_000))

	playing.Rate = 2
	assert.Equal(t, 20.0, playing.PositionAt(1_005_000))

	paused := playing
	paused.Action = ActionPause
	assert.Equal(t, 10.0, paused.PositionAt(1_005_000))

	// a clock instant before the reference never rewinds the projection
	assert.Equal(t, 10.0, playing.PositionAt(999_000))
}

func TestApplyLoad(t *testing.T) {
	next := Apply(nil, Command{Kind: CommandLoad, VideoId: "abc"}, 500, 1)

	assert.Equal(t, "abc", next.VideoId)
	assert.Equal(t, ActionPause, next.Action)
	assert.Equal(t, 0.0, next.Position)
	assert.Equal(t, int64(500), next.UpdatedAt)
	assert.Equal(t, 1.0, next.Rate)
	assert.Equal(t, int64(1), next.Seq)
}

func TestApplyPlayInheritsVideoAndRate(t *testing.T) {
	prev := Apply(nil, Command{Kind: CommandLoad, VideoId: "abc"}, 500, 1)
	prev.Rate = 1.5

	next := Apply(&prev, Command{Kind: CommandPlay, Position: 42}, 900, 2)

	assert.Equal(t, "abc", next.VideoId, "video id must be carried forward")
	assert.Equal(t, ActionPlay, next.Action)
	assert.Equal(t, 42.0, next.Position)
	assert.Equal(t, 1.5, next.Rate, "rate must be carried forward")
	assert.Equal(t, int64(2), next.Seq)
}

func TestApplyPlayOverrides(t *testing.T) {
	prev := Apply(nil, Command{Kind: CommandLoad, VideoId: "abc"}, 500, 1)

	next := Apply(&prev, Command{Kind: CommandPlay, VideoId: "xyz", Position: 3, Rate: 2}, 900, 2)

	assert.Equal(t, "xyz", next.VideoId)
	assert.Equal(t, 2.0, next.Rate)
}

func TestApplyPauseFromIdle(t *testing.T) {
	next := Apply(nil, Command{Kind: CommandPause, Position: 7}, 900, 1)

	assert.Equal(t, ActionPause, next.Action)
	assert.Equal(t, 7.0, next.Position)
	assert.Equal(t, 1.0, next.Rate, "rate defaults to 1 when never set")
}
