package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoints(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		position int
		points   int
	}{
		{1, 100},
		{2, 90},
		{3, 80},
		{9, 20},
		{10, 10},
		{11, 10}, // floor reached
		{15, 10},
		{1000, 10},
	}

	for _, tt := range tests {
		req.Equal(tt.points, Points(tt.position), "position %d", tt.position)
	}
}

func TestRoomNames(t *testing.T) {
	req := require.New(t)

	req.EqualValues("user:7", PersonalRoom(7))
	req.EqualValues("feed:7", BroadcastRoom(7))
	// Personal and broadcast rooms of the same user never collide.
	req.NotEqual(PersonalRoom(7), BroadcastRoom(7))
}
