package macpp

import "golang.org/x/sync/errgroup"

// forEachChain applies fn to every chain using at most threads goroutines
// and waits for all of them. Each call must touch only its own chain. The
// first error is returned after every goroutine has finished.
func forEachChain(chains []*offspringChain, threads int, fn func(*offspringChain) error) error {
	if threads <= 1 || len(chains) <= 1 {
		for _, c := range chains {
			if err := fn(c); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(threads)
	for _, c := range chains {
		g.Go(func() error { return fn(c) })
	}
	return g.Wait()
}
