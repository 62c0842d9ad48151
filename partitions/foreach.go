package partitions

import (
	"context"
	"runtime"
	"sync"
)

// ForEach runs fn once for every partition of the layout on at most workers
// goroutines (runtime.NumCPU() when workers < 1). It stops handing out
// partitions after the first error or when ctx is canceled, and returns the
// error of the lowest numbered failing partition, or ctx.Err().
func ForEach(ctx context.Context, layout *PartitionLayout, workers int, fn func(p *Partition) error) error {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > layout.NumPartitions {
		workers = layout.NumPartitions
	}

	errs := make([]error, layout.NumPartitions)
	next := make(chan int)
	var (
		wg     sync.WaitGroup
		failed sync.Once
		stop   = make(chan struct{})
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range next {
				if err := fn(&layout.Partitions[id]); err != nil {
					errs[id] = err
					failed.Do(func() { close(stop) })
				}
			}
		}()
	}

dispatch:
	for id := 0; id < layout.NumPartitions; id++ {
		select {
		case next <- id:
		case <-stop:
			break dispatch
		case <-ctx.Done():
			break dispatch
		}
	}
	close(next)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}
