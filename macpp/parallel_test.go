package macpp

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForEachChain(t *testing.T) {
	chains := make([]*offspringChain, 9)
	for i := range chains {
		chains[i] = &offspringChain{}
	}
	for _, threads := range []int{0, 1, 4, 20} {
		var calls atomic.Int64
		err := forEachChain(chains, threads, func(c *offspringChain) error {
			calls.Add(1)
			c.proposed++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(len(chains)), calls.Load(), "threads %d", threads)
	}
	for _, c := range chains {
		assert.Equal(t, 4, c.proposed)
	}

	boom := errors.New("boom")
	for _, threads := range []int{1, 3} {
		err := forEachChain(chains, threads, func(c *offspringChain) error {
			if c == chains[5] {
				return boom
			}
			return nil
		})
		assert.ErrorIs(t, err, boom, "threads %d", threads)
	}
}
