package contract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampler struct{}

func (*sampler) Run(context.Context) error { return nil }

func TestWorkerName(t *testing.T) {
	req := require.New(t)
	req.Equal("sampler", WorkerName(&sampler{}))
	req.Equal("unknown", WorkerName(nil))
}
