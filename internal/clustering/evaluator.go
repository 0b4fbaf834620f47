package clustering

// Evaluator judges whether a partition is good enough to stop merging.
type Evaluator interface {
	IsAcceptable(partition []int) bool
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(partition []int) bool

func (f EvaluatorFunc) IsAcceptable(partition []int) bool { return f(partition) }

// MaxClusters accepts partitions with at most n clusters.
func MaxClusters(n int) Evaluator {
	return EvaluatorFunc(func(partition []int) bool {
		return Count(partition) <= n
	})
}
