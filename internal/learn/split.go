package learn

import (
	"math"

	"github.com/rotisserie/eris"
)

// TrainTestSplit shuffles n row indices with a seeded permutation and cuts
// it into train and test sets. The test set holds ceil(testSize*n) rows and
// comes first in the permutation.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, eris.Errorf("split: test size %v must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain <= 0 {
		return nil, nil, eris.Errorf("split: %d samples with test size %v leaves an empty split", n, testSize)
	}

	perm := NewRandomState(seed).Permutation(n)
	return perm[nTest:], perm[:nTest], nil
}
