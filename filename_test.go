package ckpt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name    string
		epoch   int
		metrics map[string]float64
		suffix  string
		want    string
	}{
		{
			name:    "single metric",
			epoch:   3,
			metrics: map[string]float64{"acc": 0.87},
			suffix:  DefaultSuffix,
			want:    "epoch=3-acc=0.8700.ckpt",
		},
		{
			name:    "keys sorted",
			epoch:   12,
			metrics: map[string]float64{"loss/val": 0.1877, "acc/val": 0.9312},
			suffix:  DefaultSuffix,
			want:    "epoch=12-acc/val=0.9312-loss/val=0.1877.ckpt",
		},
		{
			name:    "no metrics",
			epoch:   0,
			metrics: nil,
			suffix:  DefaultSuffix,
			want:    "epoch=0.ckpt",
		},
		{
			name:    "custom suffix",
			epoch:   5,
			metrics: map[string]float64{"acc": 1},
			suffix:  ".pth",
			want:    "epoch=5-acc=1.0000.pth",
		},
		{
			name:    "negative value",
			epoch:   7,
			metrics: map[string]float64{"logprob": -2.5},
			suffix:  DefaultSuffix,
			want:    "epoch=7-logprob=-2.5000.ckpt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Filename(tt.epoch, tt.metrics, tt.suffix))
		})
	}
}

func TestEpochPrefix(t *testing.T) {
	require.Equal(t, "epoch=1-", EpochPrefix(1))
	require.Equal(t, "epoch=10-", EpochPrefix(10))

	// The trailing hyphen keeps epoch 1 from matching epoch 10's blobs.
	name10 := Filename(10, map[string]float64{"acc": 0.9}, DefaultSuffix)
	require.False(t, strings.HasPrefix(name10, EpochPrefix(1)))
	require.True(t, strings.HasPrefix(name10, EpochPrefix(10)))
}
