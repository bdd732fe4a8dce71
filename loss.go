package wgan

import (
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// CriticLoss Builds mean(fake_score - real_score + penalty).
// All three arguments must be (batchSize, 1) nodes on the same graph.
func CriticLoss(realScore, fakeScore, penalty *gorgonia.Node) (*gorgonia.Node, error) {
	gap, err := gorgonia.Sub(fakeScore, realScore)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (fake-real)")
	}
	penalized, err := gorgonia.Add(gap, penalty)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x+penalty)")
	}
	loss, err := gorgonia.Mean(penalized)
	if err != nil {
		return nil, errors.Wrap(err, "Can't reduce critic loss to mean")
	}
	return loss, nil
}

// WassersteinEstimate Builds mean(real_score - fake_score).
// Informational metric only - it is never minimized directly.
func WassersteinEstimate(realScore, fakeScore *gorgonia.Node) (*gorgonia.Node, error) {
	gap, err := gorgonia.Sub(realScore, fakeScore)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (real-fake)")
	}
	estimate, err := gorgonia.Mean(gap)
	if err != nil {
		return nil, errors.Wrap(err, "Can't reduce distance estimate to mean")
	}
	return estimate, nil
}

// GeneratorLoss Builds -mean(fake_score)
func GeneratorLoss(fakeScore *gorgonia.Node) (*gorgonia.Node, error) {
	mean, err := gorgonia.Mean(fakeScore)
	if err != nil {
		return nil, errors.Wrap(err, "Can't reduce generator loss to mean")
	}
	loss, err := gorgonia.Neg(mean)
	if err != nil {
		return nil, errors.Wrap(err, "Can't negate mean score")
	}
	return loss, nil
}
